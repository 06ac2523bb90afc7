package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// maxRobotsSize caps the robots.txt body read.
const maxRobotsSize = 512 * 1024

// contactPathKeywords mark paths that may be fetched despite a robots.txt
// disallow rule when the override policy is on.
var contactPathKeywords = []string{"contact", "about", "team", "staff", "people"}

// IsContactPath reports whether path looks like a contact, about or team
// page.
func IsContactPath(path string) bool {
	lower := strings.ToLower(path)
	for _, kw := range contactPathKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// RobotsCache resolves and caches robots.txt rules per origin.
// A nil ruleset means allow-all: robots.txt was missing or could not be
// fetched or parsed.
type RobotsCache struct {
	client *http.Client
	logger *slog.Logger

	mu    sync.RWMutex
	rules map[string]*robotstxt.RobotsData
	group singleflight.Group
}

// NewRobotsCache creates a cache that fetches robots.txt with client.
func NewRobotsCache(client *http.Client, logger *slog.Logger) *RobotsCache {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsCache{
		client: client,
		logger: logger,
		rules:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether userAgent may fetch target.
func (c *RobotsCache) Allowed(ctx context.Context, target *url.URL, userAgent string) bool {
	if target == nil || !target.IsAbs() {
		return true
	}

	rules := c.rulesFor(ctx, target, userAgent)
	if rules == nil {
		return true
	}

	group := rules.FindGroup(userAgent)
	if group == nil {
		return true
	}
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (c *RobotsCache) rulesFor(ctx context.Context, target *url.URL, userAgent string) *robotstxt.RobotsData {
	origin := strings.ToLower(target.Scheme + "://" + target.Host)

	if rules, ok := c.cached(origin); ok {
		return rules
	}

	v, _, _ := c.group.Do(origin, func() (any, error) {
		if rules, ok := c.cached(origin); ok {
			return rules, nil
		}
		rules := c.fetch(ctx, origin, userAgent)
		if ctx.Err() != nil {
			// Cancellation says nothing about the origin.
			return rules, nil
		}
		c.mu.Lock()
		c.rules[origin] = rules
		c.mu.Unlock()
		return rules, nil
	})
	rules, _ := v.(*robotstxt.RobotsData)
	return rules
}

func (c *RobotsCache) cached(origin string) (*robotstxt.RobotsData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rules, ok := c.rules[origin]
	return rules, ok
}

// fetch downloads and parses robots.txt for origin. Every failure is
// logged and treated as allow-all.
func (c *RobotsCache) fetch(ctx context.Context, origin, userAgent string) *robotstxt.RobotsData {
	robotsURL := origin + "/robots.txt"
	logger := c.logger.With("url", robotsURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		logger.Warn("failed to build robots.txt request, allowing all", "error", err)
		return nil
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warn("failed to fetch robots.txt, allowing all", "error", err)
		return nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		logger.Debug("no robots.txt, allowing all")
		return nil
	case resp.StatusCode != http.StatusOK:
		logger.Warn("unexpected robots.txt status, allowing all", "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		logger.Warn("failed to read robots.txt, allowing all", "error", err)
		return nil
	}
	rules, err := robotstxt.FromBytes(body)
	if err != nil {
		logger.Warn("failed to parse robots.txt, allowing all", "error", err)
		return nil
	}
	return rules
}

// Len returns the number of cached origins.
func (c *RobotsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rules)
}
