// Package fetch retrieves pages from business websites under a politeness
// policy.
//
// A Policy holds the state shared by every crawl: the robots.txt cache,
// the HTTP clients, the user-agent pool, the delay window and the per-host
// rate limiter. Policy.NewSession returns a Session that owns the visited
// set for one website; Session.Fetch never returns an error, the outcome
// is classified in the returned model.FetchResult.
//
// Fetch sequence for one URL:
//  1. Normalize the URL and short-circuit duplicates (skipped_duplicate).
//  2. Check robots.txt. Disallowed contact/about/team pages are fetched
//     anyway and flagged ContactOnly when the override is enabled.
//  3. Up to MaxRetries attempts, each preceded by a random politeness
//     delay. Transient failures (network errors, timeouts, 408, 425, 429,
//     5xx) back off exponentially; other statuses end the loop.
//  4. A certificate verification failure is retried once without
//     verification when TLS fallback is enabled.
//  5. 2xx responses that are not HTML become skipped_non_html.
package fetch
