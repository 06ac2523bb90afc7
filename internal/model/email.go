package model

import "strings"

// SourcePattern identifies which decoding strategy produced a candidate.
type SourcePattern int

const (
	// PatternPlain is a literal local@domain.tld match.
	PatternPlain SourcePattern = iota

	// PatternAtToken is an address whose at-sign was written as a token
	// such as [at], (at) or a bare "at".
	PatternAtToken

	// PatternDotToken is an address with a literal at-sign whose dots were
	// written as tokens such as [dot] or (dot).
	PatternDotToken

	// PatternHTMLEntity is an address written with numeric character
	// references (&#64; and &#46;).
	PatternHTMLEntity

	// PatternUnicodeEscape is an address written with script escapes
	// (\x40 and the \u-prefixed form).
	PatternUnicodeEscape

	// PatternDataAttribute is an address assembled from data-* attributes.
	PatternDataAttribute

	// PatternJSConcat is an address assembled from concatenated script
	// string literals.
	PatternJSConcat

	// PatternMailto is the target of a mailto: link.
	PatternMailto
)

// String returns the snake_case name of the pattern.
func (p SourcePattern) String() string {
	switch p {
	case PatternPlain:
		return "plain"
	case PatternAtToken:
		return "at_token"
	case PatternDotToken:
		return "dot_token"
	case PatternHTMLEntity:
		return "html_entity"
	case PatternUnicodeEscape:
		return "unicode_escape"
	case PatternDataAttribute:
		return "data_attribute"
	case PatternJSConcat:
		return "js_concat"
	case PatternMailto:
		return "mailto"
	default:
		return "unknown"
	}
}

// EmailCandidate is an address recovered from a page before classification.
type EmailCandidate struct {
	// Raw is the text as it appeared in the page.
	Raw string `json:"raw"`

	// Decoded is the recovered address. It is the dedup key, compared
	// case-insensitively.
	Decoded string `json:"decoded"`

	// Source is the strategy that produced the candidate.
	Source SourcePattern `json:"source"`
}

// Key returns the case-insensitive dedup key of the candidate.
func (c EmailCandidate) Key() string {
	return EmailKey(c.Decoded)
}

// EmailKey folds an address into its dedup key.
func EmailKey(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// HasEmailShape is the structural acceptance test for decoded addresses:
// the string contains an at-sign and the part after the last at-sign
// contains a dot.
func HasEmailShape(s string) bool {
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return false
	}
	return strings.Contains(s[at+1:], ".")
}

// LocalPart returns the part of the address before the last at-sign.
func LocalPart(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return address
	}
	return address[:at]
}

// DomainPart returns the part of the address after the last at-sign.
func DomainPart(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return ""
	}
	return address[at+1:]
}
