// Package extract recovers email addresses from HTML pages.
//
// A Decoder runs an ordered chain of strategies over one page. Each
// strategy is independent and additive; the decoder validates every
// decoded form and keeps the first occurrence of each address
// (case-insensitive). Strategies cover plain addresses, [at]/[dot]
// token obfuscation, HTML entities, JavaScript escapes, data-* attributes,
// string concatenation in scripts and mailto links.
package extract
