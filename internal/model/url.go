package model

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrEmptyURL is returned when normalizing a blank URL.
var ErrEmptyURL = errors.New("empty URL")

// volatileParams are query parameters that do not change page identity.
var volatileParams = map[string]bool{
	"fbclid":     true,
	"gclid":      true,
	"dclid":      true,
	"msclkid":    true,
	"mc_cid":     true,
	"mc_eid":     true,
	"ref":        true,
	"sessionid":  true,
	"session":    true,
	"sid":        true,
	"phpsessid":  true,
	"jsessionid": true,
}

// EnsureScheme prefixes scheme-less website strings with https://.
func EnsureScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return "https://" + raw
}

// NormalizeURL returns the identity form of a URL: https is assumed when no
// scheme is given, scheme and host are lowercased, default ports, the
// fragment and trailing slashes are dropped, volatile query parameters are
// removed and the rest are sorted.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}

	u, err := url.Parse(EnsureScheme(raw))
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL has no host: %q", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	switch {
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	escaped := strings.TrimRight(u.EscapedPath(), "/")
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("invalid URL path %q: %w", escaped, err)
	}
	u.Path = path
	u.RawPath = escaped

	if u.RawQuery != "" {
		u.RawQuery = stripVolatileParams(u.Query())
	}
	u.ForceQuery = false

	return u.String(), nil
}

// stripVolatileParams encodes the query without tracking and session
// parameters, keys sorted.
func stripVolatileParams(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		lower := strings.ToLower(key)
		if volatileParams[lower] || strings.HasPrefix(lower, "utm_") {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	kept := make(url.Values, len(keys))
	for _, key := range keys {
		kept[key] = values[key]
	}
	return kept.Encode()
}

// SiteKey returns the normalized form of a website used by the crawl
// history. Unparseable input is lowercased and trimmed instead.
func SiteKey(website string) string {
	key, err := NormalizeURL(website)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(website))
	}
	return key
}
