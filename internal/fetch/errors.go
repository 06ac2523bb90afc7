package fetch

import "errors"

var (
	// ErrTransientNetwork marks failures that are worth retrying:
	// connection errors, timeouts, body read errors and retryable HTTP
	// statuses.
	ErrTransientNetwork = errors.New("transient network failure")

	// ErrPolicyDenied is returned when robots.txt forbids a fetch.
	ErrPolicyDenied = errors.New("fetch denied by policy")

	// ErrContentMismatch is returned when a successful response is not an
	// HTML document.
	ErrContentMismatch = errors.New("response is not HTML")

	// ErrUnsupportedProxy is returned for proxy URLs other than http,
	// https and socks5.
	ErrUnsupportedProxy = errors.New("unsupported proxy scheme")
)
