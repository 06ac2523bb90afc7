package model

import "fmt"

// Depth is the position of a target in a crawl session's frontier.
type Depth int

const (
	// DepthPrimary is the seed page of a website.
	DepthPrimary Depth = iota

	// DepthContact is a contact, about or team page linked from the seed.
	DepthContact

	// DepthSecondary is a page whose URL hints at a contact mechanism
	// (email, enquiry, support) linked from the seed.
	DepthSecondary
)

// String returns a human-readable name of the depth.
func (d Depth) String() string {
	switch d {
	case DepthPrimary:
		return "primary"
	case DepthContact:
		return "contact"
	case DepthSecondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// CrawlTarget is one page a crawl session intends to fetch.
// Its identity is the normalized form of URL.
type CrawlTarget struct {
	// URL is the absolute URL to fetch.
	URL string `json:"url"`

	// Origin is the seed URL the target was discovered from.
	Origin string `json:"origin"`

	// Depth tells whether the target is the seed, a contact page or a
	// secondary page.
	Depth Depth `json:"depth"`

	// Visited is set once the session has fetched (or skipped) the target.
	Visited bool `json:"visited"`
}

// Key returns the normalized identity of the target. Targets whose URL
// cannot be normalized fall back to the raw string.
func (t CrawlTarget) Key() string {
	key, err := NormalizeURL(t.URL)
	if err != nil {
		return t.URL
	}
	return key
}

// FetchStatus classifies the outcome of a fetch.
type FetchStatus int

const (
	// StatusOK means an HTML body was retrieved.
	StatusOK FetchStatus = iota

	// StatusHTTPError means the server answered with a non-2xx code.
	StatusHTTPError

	// StatusNetworkError covers timeouts, resets, DNS failures and body
	// read failures that survived every retry.
	StatusNetworkError

	// StatusRobotsDenied means robots.txt disallows the path.
	StatusRobotsDenied

	// StatusSkippedDuplicate means the URL was already fetched in this
	// session.
	StatusSkippedDuplicate

	// StatusSkippedNonHTML means the response was not HTML or XHTML.
	StatusSkippedNonHTML
)

// String returns the snake_case name of the status.
func (s FetchStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusHTTPError:
		return "http_error"
	case StatusNetworkError:
		return "network_error"
	case StatusRobotsDenied:
		return "robots_denied"
	case StatusSkippedDuplicate:
		return "skipped_duplicate"
	case StatusSkippedNonHTML:
		return "skipped_non_html"
	default:
		return "unknown"
	}
}

// FetchResult is the immutable outcome of fetching one target.
type FetchResult struct {
	// URL is the URL that was requested.
	URL string `json:"url"`

	// FinalURL is the URL after redirects. Relative links on the page
	// resolve against it.
	FinalURL string `json:"final_url,omitempty"`

	// Status classifies the outcome.
	Status FetchStatus `json:"status"`

	// StatusCode is the last HTTP status code seen, zero when no response
	// arrived.
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the response Content-Type header, if any.
	ContentType string `json:"content_type,omitempty"`

	// Body is the decoded response body. It may be set on non-OK results
	// when a body was read before the failure.
	Body string `json:"-"`

	// ContactOnly is set when robots.txt disallowed the path but it was
	// fetched anyway because it looks like a contact page.
	ContactOnly bool `json:"contact_only,omitempty"`

	// Attempts is the number of network attempts made.
	Attempts int `json:"attempts"`

	// Err is the last error seen, nil for successful fetches.
	Err error `json:"-"`
}

// BaseURL returns FinalURL, falling back to URL.
func (r FetchResult) BaseURL() string {
	if r.FinalURL != "" {
		return r.FinalURL
	}
	return r.URL
}

// OK reports whether the fetch produced an HTML body.
func (r FetchResult) OK() bool {
	return r.Status == StatusOK
}

// HasBody reports whether any body text was obtained.
func (r FetchResult) HasBody() bool {
	return r.Body != ""
}

// String renders the status with its HTTP code when relevant.
func (r FetchResult) String() string {
	if r.Status == StatusHTTPError {
		return fmt.Sprintf("%s(%d)", r.Status, r.StatusCode)
	}
	return r.Status.String()
}
