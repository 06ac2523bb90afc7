package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/extract"
	"github.com/nao1215/contactscan/internal/model"
)

// Expansion is the set of pages a session visits for one website.
type Expansion struct {
	// Targets starts with the seed, followed by contact pages and then
	// secondary pages, each in document order.
	Targets []model.CrawlTarget

	// Mailto holds the addresses of the seed's mailto links, unique
	// case-insensitively, in document order.
	Mailto []string
}

// FrontierOption configures a Frontier.
type FrontierOption func(*Frontier)

// WithContactKeywords replaces the contact keywords.
func WithContactKeywords(keywords []string) FrontierOption {
	return func(f *Frontier) {
		f.contactKeywords = lowerAll(keywords)
	}
}

// WithSecondaryKeywords replaces the secondary keywords.
func WithSecondaryKeywords(keywords []string) FrontierOption {
	return func(f *Frontier) {
		f.secondaryKeywords = lowerAll(keywords)
	}
}

// WithMaxContactPages caps the contact pages per seed.
func WithMaxContactPages(n int) FrontierOption {
	return func(f *Frontier) {
		f.maxContact = n
	}
}

// WithMaxSecondaryPages caps the secondary pages per seed.
func WithMaxSecondaryPages(n int) FrontierOption {
	return func(f *Frontier) {
		f.maxSecondary = n
	}
}

// WithSameSiteOnly restricts targets to the seed's registrable domain.
func WithSameSiteOnly(sameSite bool) FrontierOption {
	return func(f *Frontier) {
		f.sameSiteOnly = sameSite
	}
}

// WithSiteKeywords adds per-host contact keywords from the site
// configuration.
func WithSiteKeywords(lookup func(host string) config.SiteConfig) FrontierOption {
	return func(f *Frontier) {
		f.siteConfig = lookup
	}
}

// Frontier decides which pages linked from a seed are worth fetching.
// The seed comes first, then up to maxContact contact pages, then up to
// maxSecondary secondary pages; mailto addresses are returned separately.
//
// Design decision: Expand is a pure function of the seed page because:
//  1. The crawl never goes deeper than the links on the homepage
//  2. Caps are enforced in one place, so the target count has a fixed bound
//  3. It can be tested without any network access
type Frontier struct {
	contactKeywords   []string
	secondaryKeywords []string
	maxContact        int
	maxSecondary      int
	sameSiteOnly      bool
	siteConfig        func(host string) config.SiteConfig
}

// NewFrontier creates a Frontier with the default keywords and caps.
func NewFrontier(opts ...FrontierOption) *Frontier {
	f := &Frontier{
		contactKeywords:   lowerAll(config.DefaultContactKeywords),
		secondaryKeywords: lowerAll(config.DefaultSecondaryKeywords),
		maxContact:        config.DefaultMaxContactPages,
		maxSecondary:      config.DefaultMaxSecondaryPages,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FrontierFromConfig creates a Frontier from the configuration.
func FrontierFromConfig(cfg *config.Config) *Frontier {
	return NewFrontier(
		WithContactKeywords(cfg.ContactKeywords),
		WithSecondaryKeywords(cfg.SecondaryKeywords),
		WithMaxContactPages(cfg.MaxContactPages),
		WithMaxSecondaryPages(cfg.MaxSecondaryPages),
		WithSameSiteOnly(cfg.SameSiteOnly),
		WithSiteKeywords(cfg.SiteConfig),
	)
}

// MaxTargets is the largest number of targets Expand can return.
func (f *Frontier) MaxTargets() int {
	return 1 + max(f.maxContact, 0) + max(f.maxSecondary, 0)
}

// Expand returns the seed followed by the contact and secondary pages
// linked from page, plus the addresses of its mailto links. Relative
// links resolve against the page's final URL. A page without a body
// expands to the seed alone.
func (f *Frontier) Expand(seedURL string, page model.FetchResult) (*Expansion, error) {
	seedKey, err := model.NormalizeURL(seedURL)
	if err != nil {
		return nil, fmt.Errorf("normalize seed: %w", err)
	}
	seed, err := url.Parse(seedKey)
	if err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	exp := &Expansion{
		Targets: []model.CrawlTarget{{URL: seedKey, Origin: seedKey, Depth: model.DepthPrimary}},
		Mailto:  make([]string, 0),
	}
	if !page.HasBody() {
		return exp, nil
	}

	base := page.BaseURL()
	if base == "" {
		base = seedKey
	}
	parser, err := NewParser(base)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	parsed, err := parser.Parse(strings.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	contactKeywords := f.keywordsFor(seed.Hostname())
	queued := map[string]bool{seedKey: true}
	var contacts, secondaries []model.CrawlTarget

	for _, link := range parsed.Links {
		u, err := url.Parse(link.URL)
		if err != nil {
			continue
		}
		key, err := model.NormalizeURL(link.URL)
		if err != nil {
			continue
		}

		if isContactLink(link, u, contactKeywords) {
			if len(contacts) < f.maxContact && f.accept(seed, u, key, queued) {
				contacts = append(contacts, model.CrawlTarget{URL: link.URL, Origin: seedKey, Depth: model.DepthContact})
			}
			continue
		}
		if containsAny(strings.ToLower(link.URL), f.secondaryKeywords) {
			if len(secondaries) < f.maxSecondary && f.accept(seed, u, key, queued) {
				secondaries = append(secondaries, model.CrawlTarget{URL: link.URL, Origin: seedKey, Depth: model.DepthSecondary})
			}
		}
	}

	exp.Targets = append(exp.Targets, contacts...)
	exp.Targets = append(exp.Targets, secondaries...)
	exp.Mailto = mailtoAddresses(parsed.Mailto)
	return exp, nil
}

// accept reports whether u may be queued, and queues its key.
func (f *Frontier) accept(seed, u *url.URL, key string, queued map[string]bool) bool {
	if queued[key] {
		return false
	}
	if f.sameSiteOnly && !sameSite(seed.Hostname(), u.Hostname()) {
		return false
	}
	queued[key] = true
	return true
}

func (f *Frontier) keywordsFor(host string) []string {
	if f.siteConfig == nil {
		return f.contactKeywords
	}
	extra := f.siteConfig(host).ContactKeywords
	if len(extra) == 0 {
		return f.contactKeywords
	}
	keywords := make([]string, 0, len(f.contactKeywords)+len(extra))
	keywords = append(keywords, f.contactKeywords...)
	return append(keywords, lowerAll(extra)...)
}

// isContactLink matches keywords against the anchor text and URL path.
func isContactLink(link Link, u *url.URL, keywords []string) bool {
	return containsAny(strings.ToLower(link.Text), keywords) || containsAny(strings.ToLower(u.Path), keywords)
}

// sameSite compares the registrable domains of two hosts, falling back
// to plain host equality when either has none.
func sameSite(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return true
	}
	ra, errA := publicsuffix.EffectiveTLDPlusOne(a)
	rb, errB := publicsuffix.EffectiveTLDPlusOne(b)
	if errA != nil || errB != nil {
		return false
	}
	return ra == rb
}

func mailtoAddresses(hrefs []string) []string {
	out := make([]string, 0, len(hrefs))
	seen := make(map[string]bool)
	for _, href := range hrefs {
		for _, addr := range extract.ParseMailto(href) {
			key := model.EmailKey(addr)
			if seen[key] || !model.HasEmailShape(addr) {
				continue
			}
			seen[key] = true
			out = append(out, addr)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
