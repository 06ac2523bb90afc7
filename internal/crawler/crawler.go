package crawler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/contactscan/internal/classify"
	"github.com/nao1215/contactscan/internal/extract"
	"github.com/nao1215/contactscan/internal/fetch"
	"github.com/nao1215/contactscan/internal/model"
)

// ErrNoSessionOpener is returned by New without a session opener.
var ErrNoSessionOpener = errors.New("crawler: session opener is required")

// Fetcher fetches pages within one session. *fetch.Session satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) model.FetchResult
}

// SessionOpener returns a fresh Fetcher with an empty visited set.
type SessionOpener func() Fetcher

// PolicySessions opens sessions on a fetch policy.
func PolicySessions(p *fetch.Policy) SessionOpener {
	return func() Fetcher {
		return p.NewSession()
	}
}

// Extractor recovers candidate addresses from a page.
type Extractor interface {
	Extract(page string) []model.EmailCandidate
	Valid(address string) bool
}

// Classifier flags and filters candidates.
type Classifier interface {
	Classify(candidates []model.EmailCandidate) []model.EmailAddress
	Filter(candidates []model.EmailCandidate) []model.EmailAddress
}

// Verifier drops addresses that cannot receive mail.
type Verifier interface {
	Filter(ctx context.Context, emails []model.EmailAddress) []model.EmailAddress
}

// Observer receives every fetch a session makes.
type Observer interface {
	ObserveFetch(ctx context.Context, website string, target model.CrawlTarget, result model.FetchResult)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, website string, target model.CrawlTarget, result model.FetchResult)

// ObserveFetch calls f.
func (f ObserverFunc) ObserveFetch(ctx context.Context, website string, target model.CrawlTarget, result model.FetchResult) {
	f(ctx, website, target, result)
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithExtractor sets the email decoder.
func WithExtractor(e Extractor) Option {
	return func(c *Crawler) {
		c.extractor = e
	}
}

// WithClassifier sets the business classifier.
func WithClassifier(cl Classifier) Option {
	return func(c *Crawler) {
		c.classifier = cl
	}
}

// WithFrontier sets the frontier.
func WithFrontier(f *Frontier) Option {
	return func(c *Crawler) {
		c.frontier = f
	}
}

// WithVerifier enables mail exchanger checks on the session result.
func WithVerifier(v Verifier) Option {
	return func(c *Crawler) {
		c.verifier = v
	}
}

// WithObserver registers an observer for every fetch.
func WithObserver(o Observer) Option {
	return func(c *Crawler) {
		c.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// Crawler runs crawl sessions. It is safe for concurrent use as long as
// its collaborators are; every call to Crawl opens its own fetch session.
//
// Design decision: Crawl returns emails rather than an error because:
//  1. A failed page contributes nothing but never ends the session
//  2. The worst outcome for one business is an empty list
//  3. Fetch outcomes are still visible through the Observer
type Crawler struct {
	open       SessionOpener
	extractor  Extractor
	classifier Classifier
	frontier   *Frontier
	verifier   Verifier
	observer   Observer
	logger     *slog.Logger
}

// New creates a Crawler. Collaborators that are not set through options
// get their defaults.
func New(open SessionOpener, opts ...Option) (*Crawler, error) {
	if open == nil {
		return nil, ErrNoSessionOpener
	}
	c := &Crawler{open: open}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.extractor == nil {
		d, err := extract.NewDecoder()
		if err != nil {
			return nil, err
		}
		c.extractor = d
	}
	if c.classifier == nil {
		c.classifier = classify.New(classify.WithLogger(c.logger))
	}
	if c.frontier == nil {
		c.frontier = NewFrontier()
	}
	return c, nil
}

// Crawl visits website and returns its contact addresses in first-seen
// order, unique case-insensitively. Failed pages contribute nothing; the
// result is empty when nothing could be fetched.
func (c *Crawler) Crawl(ctx context.Context, website string) []model.EmailAddress {
	seedURL, err := model.NormalizeURL(website)
	if err != nil {
		c.logger.Warn("invalid website", "website", website, "error", err)
		return []model.EmailAddress{}
	}
	c.logger.Info("crawling website", "website", seedURL)

	session := c.open()
	emails := newEmailSet()

	seed := model.CrawlTarget{URL: seedURL, Origin: seedURL, Depth: model.DepthPrimary}
	result := c.fetch(ctx, session, seedURL, &seed)
	if result.OK() {
		emails.add(c.pageEmails(result.Body))
	} else if !result.HasBody() {
		c.logger.Debug("seed fetch failed", "website", seedURL, "status", result.String(), "error", result.Err)
		return emails.list()
	}

	exp, err := c.frontier.Expand(seedURL, result)
	if err != nil {
		c.logger.Warn("frontier expansion failed", "website", seedURL, "error", err)
		return c.verify(ctx, emails.list())
	}

	for i := 1; i < len(exp.Targets); i++ {
		if ctx.Err() != nil {
			break
		}
		target := &exp.Targets[i]
		r := c.fetch(ctx, session, seedURL, target)
		if r.OK() {
			emails.add(c.pageEmails(r.Body))
		}
	}

	emails.add(c.mailtoEmails(exp.Mailto))
	return c.verify(ctx, emails.list())
}

func (c *Crawler) fetch(ctx context.Context, session Fetcher, website string, target *model.CrawlTarget) model.FetchResult {
	result := session.Fetch(ctx, target.URL)
	target.Visited = true

	c.logger.Debug("fetched page",
		"url", target.URL,
		"depth", target.Depth.String(),
		"status", result.String(),
		"attempts", result.Attempts,
		"contact_only", result.ContactOnly,
	)
	if c.observer != nil {
		c.observer.ObserveFetch(ctx, website, *target, result)
	}
	return result
}

func (c *Crawler) pageEmails(body string) []model.EmailAddress {
	return c.classifier.Filter(c.extractor.Extract(body))
}

// mailtoEmails flags mailto addresses without filtering them.
func (c *Crawler) mailtoEmails(addrs []string) []model.EmailAddress {
	candidates := make([]model.EmailCandidate, 0, len(addrs))
	for _, addr := range addrs {
		if !c.extractor.Valid(addr) {
			continue
		}
		candidates = append(candidates, model.EmailCandidate{Raw: "mailto:" + addr, Decoded: addr, Source: model.PatternMailto})
	}
	return c.classifier.Classify(candidates)
}

func (c *Crawler) verify(ctx context.Context, emails []model.EmailAddress) []model.EmailAddress {
	if c.verifier == nil || len(emails) == 0 {
		return emails
	}
	return c.verifier.Filter(ctx, emails)
}

// emailSet keeps addresses in first-seen order, unique case-insensitively.
type emailSet struct {
	seen  map[string]bool
	items []model.EmailAddress
}

func newEmailSet() *emailSet {
	return &emailSet{seen: make(map[string]bool), items: make([]model.EmailAddress, 0)}
}

func (s *emailSet) add(emails []model.EmailAddress) {
	for _, e := range emails {
		key := model.EmailKey(e.Address)
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.items = append(s.items, e)
	}
}

func (s *emailSet) list() []model.EmailAddress {
	return s.items
}
