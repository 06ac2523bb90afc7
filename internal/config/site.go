package config

import (
	"net/http"
	"strings"
)

// SiteConfig holds per-host overrides for crawling one business website.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent to this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent to this host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent pins one identity for this host instead of rotating.
	UserAgent string `yaml:"userAgent,omitempty"`

	// ContactKeywords extends the frontier's contact keywords for this host.
	ContactKeywords []string `yaml:"contactKeywords,omitempty"`

	// Skip excludes the host from crawling entirely.
	Skip bool `yaml:"skip,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merging the
// host-specific entry over the defaults. Hosts are matched
// case-insensitively, with and without a leading "www.".
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if result.Headers != nil {
		merged := make(map[string]string, len(result.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}

	siteConfig, ok := cf.lookupSite(host)
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if siteConfig.Skip {
		result.Skip = true
	}
	if len(siteConfig.ContactKeywords) > 0 {
		keywords := make([]string, 0, len(result.ContactKeywords)+len(siteConfig.ContactKeywords))
		keywords = append(keywords, result.ContactKeywords...)
		result.ContactKeywords = append(keywords, siteConfig.ContactKeywords...)
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}

	return result
}

// lookupSite finds the site entry for host.
func (cf *File) lookupSite(host string) (SiteConfig, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	candidates := []string{host, strings.TrimPrefix(host, "www."), "www." + host}
	for _, c := range candidates {
		for key, site := range cf.Sites {
			if strings.EqualFold(key, c) {
				return site, true
			}
		}
	}
	return SiteConfig{}, false
}

// HTTPHeaders renders the site's cookie and headers as an http.Header.
func (sc SiteConfig) HTTPHeaders() http.Header {
	h := make(http.Header, len(sc.Headers)+1)
	for k, v := range sc.Headers {
		h.Set(k, v)
	}
	if sc.Cookie != "" {
		h.Set("Cookie", sc.Cookie)
	}
	return h
}
