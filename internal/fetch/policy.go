package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/model"
)

// Options configures a Policy.
type Options struct {
	// Delay is the random politeness delay before every network attempt.
	Delay DelayWindow

	// MaxRetries is the number of attempts per fetch.
	MaxRetries int

	// RetryBaseDelay is the first backoff pause; it doubles per attempt.
	RetryBaseDelay time.Duration

	// Timeout bounds one page request.
	Timeout time.Duration

	// RobotsTimeout bounds one robots.txt request.
	RobotsTimeout time.Duration

	// MaxBodySize caps the decoded body.
	MaxBodySize int64

	// UserAgents is the rotation pool.
	UserAgents []string

	// RequestsPerMinute enables the per-host token bucket when positive.
	RequestsPerMinute int

	// ProxyURL routes requests through an http, https or socks5 proxy.
	ProxyURL string

	RespectRobots              bool
	ContactPagesOverrideRobots bool
	TLSFallback                bool
	IgnoreSSLErrors            bool
}

// OptionsFromConfig returns website crawl options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Delay:                      DelayWindow{Min: cfg.WebsiteDelayMin, Max: cfg.WebsiteDelayMax},
		MaxRetries:                 cfg.MaxRetries,
		RetryBaseDelay:             cfg.RetryBaseDelay,
		Timeout:                    cfg.Timeout,
		RobotsTimeout:              cfg.RobotsTimeout,
		MaxBodySize:                cfg.MaxBodySize,
		UserAgents:                 cfg.UserAgents,
		RequestsPerMinute:          cfg.RequestsPerMinute,
		ProxyURL:                   cfg.ProxyURL,
		RespectRobots:              cfg.RespectRobots,
		ContactPagesOverrideRobots: cfg.ContactPagesOverrideRobots,
		TLSFallback:                cfg.TLSFallback,
		IgnoreSSLErrors:            cfg.IgnoreSSLErrors,
	}
}

// ListingOptionsFromConfig returns options for listing sources, which use
// the wider listing delay window.
func ListingOptionsFromConfig(cfg *config.Config) Options {
	opts := OptionsFromConfig(cfg)
	opts.Delay = DelayWindow{Min: cfg.ListingDelayMin, Max: cfg.ListingDelayMax}
	return opts
}

// Option configures a Policy.
type Option func(*Policy)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

// WithSiteConfig sets the per-host override lookup used for headers,
// cookies and pinned user agents.
func WithSiteConfig(lookup func(host string) config.SiteConfig) Option {
	return func(p *Policy) {
		p.siteConfig = lookup
	}
}

// WithSleep replaces the context-aware sleep used for delays and backoff.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Policy) {
		p.sleep = sleep
	}
}

// Policy holds the fetch state shared by every session: the robots
// cache, the verifying and non-verifying HTTP clients, the user-agent
// pool, the delay window and the optional host limiter.
//
// Design decision: Policy is split from Session because:
//  1. Robots rules and rate limits belong to a host, not to one crawl
//  2. Each crawl needs its own visited set so parallel batches never share it
//  3. Tests can build one Policy against httptest and open many sessions
type Policy struct {
	opts Options

	client   *http.Client
	insecure *http.Client
	robots   *RobotsCache
	agents   *UserAgentPool
	limiter  *HostLimiter

	siteConfig func(host string) config.SiteConfig
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

// NewPolicy creates a Policy. It fails only when the proxy URL is invalid.
func NewPolicy(opts Options, options ...Option) (*Policy, error) {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultTimeout
	}
	if opts.RobotsTimeout <= 0 {
		opts.RobotsTimeout = config.DefaultRobotsTimeout
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = config.DefaultMaxBodySize
	}

	transport, err := newTransport(opts.ProxyURL, opts.IgnoreSSLErrors)
	if err != nil {
		return nil, err
	}
	insecureTransport, err := newTransport(opts.ProxyURL, true)
	if err != nil {
		return nil, err
	}

	p := &Policy{
		opts:     opts,
		client:   &http.Client{Timeout: opts.Timeout, Transport: transport},
		insecure: &http.Client{Timeout: opts.Timeout, Transport: insecureTransport},
		agents:   NewUserAgentPool(opts.UserAgents),
		limiter:  NewHostLimiter(opts.RequestsPerMinute),
		sleep:    sleepContext,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.siteConfig == nil {
		p.siteConfig = func(string) config.SiteConfig { return config.SiteConfig{} }
	}
	p.robots = NewRobotsCache(&http.Client{Timeout: opts.RobotsTimeout, Transport: transport}, p.logger)

	return p, nil
}

// NewSession returns a session with an empty visited set.
func (p *Policy) NewSession() *Session {
	return &Session{
		policy:  p,
		visited: make(map[string]struct{}),
	}
}

// Robots returns the shared robots.txt cache.
func (p *Policy) Robots() *RobotsCache {
	return p.robots
}

// fetch runs the robots check and the retry loop for a normalized URL.
func (p *Policy) fetch(ctx context.Context, target string) model.FetchResult {
	result := model.FetchResult{URL: target}

	u, err := url.Parse(target)
	if err != nil {
		result.Status = model.StatusNetworkError
		result.Err = fmt.Errorf("parse url: %w", err)
		return result
	}
	logger := p.logger.With("url", target)

	if p.opts.RespectRobots {
		if !p.robots.Allowed(ctx, u, p.identity(u.Hostname())) {
			if !p.opts.ContactPagesOverrideRobots || !IsContactPath(u.Path) {
				logger.Debug("robots.txt disallows page")
				result.Status = model.StatusRobotsDenied
				result.Err = fmt.Errorf("%w: robots.txt disallows %s", ErrPolicyDenied, u.EscapedPath())
				return result
			}
			logger.Debug("robots.txt disallows contact page, fetching as contact-only")
			result.ContactOnly = true
		}
	}

	last := result
	for attempt := 1; attempt <= p.opts.MaxRetries; attempt++ {
		if attempt > 1 {
			backoff := p.opts.RetryBaseDelay << (attempt - 2)
			if err := p.sleep(ctx, backoff); err != nil {
				return canceled(last, err)
			}
		}
		if err := p.wait(ctx, u.Hostname()); err != nil {
			return canceled(last, err)
		}

		res, transient := p.attempt(ctx, u)
		res.URL = target
		res.ContactOnly = result.ContactOnly
		res.Attempts = attempt
		last = res

		if !transient {
			return res
		}
		if ctx.Err() != nil {
			return canceled(last, ctx.Err())
		}
		logger.Debug("transient fetch failure", "attempt", attempt, "max_attempts", p.opts.MaxRetries, "status", res.String(), "error", res.Err)
	}

	logger.Warn("giving up after retries", "attempts", last.Attempts, "status", last.String(), "error", last.Err)
	return last
}

// canceled turns the last result into a network error for a cancelled
// context, keeping the attempt count and any body already read.
func canceled(last model.FetchResult, err error) model.FetchResult {
	last.Status = model.StatusNetworkError
	last.Err = err
	return last
}

// wait applies the politeness delay and the host rate limit.
func (p *Policy) wait(ctx context.Context, host string) error {
	if err := p.sleep(ctx, p.opts.Delay.Next()); err != nil {
		return err
	}
	return p.limiter.Wait(ctx, host)
}

// attempt performs one request and classifies the response. The boolean
// reports whether another attempt may succeed.
func (p *Policy) attempt(ctx context.Context, u *url.URL) (model.FetchResult, bool) {
	resp, err := p.do(ctx, p.client, u)
	if err != nil && isCertificateError(err) {
		if !p.opts.TLSFallback || p.opts.IgnoreSSLErrors {
			return model.FetchResult{Status: model.StatusNetworkError, Err: err}, false
		}
		p.logger.Warn("certificate verification failed, retrying without verification", "url", u.String(), "error", err)
		resp, err = p.do(ctx, p.insecure, u)
	}
	if err != nil {
		return model.FetchResult{
			Status: model.StatusNetworkError,
			Err:    fmt.Errorf("%w: %w", ErrTransientNetwork, err),
		}, true
	}

	body, err := readBody(resp, p.opts.MaxBodySize)
	if err != nil {
		return model.FetchResult{
			Status:     model.StatusNetworkError,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %w", ErrTransientNetwork, err),
		}, true
	}

	res := model.FetchResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        string(body),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		res.FinalURL = resp.Request.URL.String()
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if !isHTML(res.ContentType, body) {
			res.Status = model.StatusSkippedNonHTML
			res.Body = ""
			res.Err = fmt.Errorf("%w: %s", ErrContentMismatch, res.ContentType)
			return res, false
		}
		res.Status = model.StatusOK
		res.Body = string(toUTF8(body, res.ContentType))
		return res, false
	case isTransientStatus(resp.StatusCode):
		res.Status = model.StatusHTTPError
		res.Err = fmt.Errorf("%w: HTTP %d", ErrTransientNetwork, resp.StatusCode)
		return res, true
	default:
		res.Status = model.StatusHTTPError
		res.Err = fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
		return res, false
	}
}

// do sends one GET request with the rotated identity and site headers.
func (p *Policy) do(ctx context.Context, client *http.Client, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", p.identity(u.Hostname()))
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range p.siteConfig(u.Hostname()).HTTPHeaders() {
		req.Header[k] = v
	}

	return client.Do(req)
}

// identity returns the pinned user agent for host or a rotated one.
func (p *Policy) identity(host string) string {
	if ua := p.siteConfig(host).UserAgent; ua != "" {
		return ua
	}
	return p.agents.Pick()
}

// isTransientStatus reports whether an HTTP status is worth retrying.
func isTransientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return code >= 500 && code <= 599
}

// IsTransient reports whether err was classified as retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientNetwork)
}
