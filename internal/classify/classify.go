// Package classify separates business (role) mailboxes from personal
// addresses.
package classify

import (
	"log/slog"
	"strings"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/model"
)

// Option configures a Classifier.
type Option func(*Classifier)

// WithPrefixes sets the business local-part prefixes.
func WithPrefixes(prefixes []string) Option {
	return func(c *Classifier) {
		c.prefixes = normalizePrefixes(prefixes)
	}
}

// WithKeepAllWhenNoBusiness controls the Filter fallback.
func WithKeepAllWhenNoBusiness(keep bool) Option {
	return func(c *Classifier) {
		c.keepAll = keep
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// Classifier applies the business-vs-personal heuristic.
type Classifier struct {
	prefixes []string
	keepAll  bool
	logger   *slog.Logger
}

// New creates a Classifier with the default prefixes and the keep-all
// fallback enabled.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		prefixes: normalizePrefixes(config.DefaultBusinessPrefixes),
		keepAll:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// IsBusinessLike reports whether address looks like a role mailbox.
//
// A local part equal to a prefix, or starting with a prefix followed by
// '.', '-' or '_', is business-like. A local part of exactly two
// dot-separated segments, each longer than one character and free of
// digits, reads as firstname.lastname and is personal. Everything else
// is business-like.
func (c *Classifier) IsBusinessLike(address string) bool {
	local := strings.ToLower(model.LocalPart(strings.TrimSpace(address)))

	for _, prefix := range c.prefixes {
		if !strings.HasPrefix(local, prefix) {
			continue
		}
		if len(local) == len(prefix) || strings.IndexByte(".-_", local[len(prefix)]) >= 0 {
			return true
		}
	}

	segments := strings.Split(local, ".")
	if len(segments) == 2 && len(segments[0]) > 1 && len(segments[1]) > 1 && !strings.ContainsAny(local, "0123456789") {
		return false
	}
	return true
}

// Classify flags every candidate without dropping any.
func (c *Classifier) Classify(candidates []model.EmailCandidate) []model.EmailAddress {
	out := make([]model.EmailAddress, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, model.EmailAddress{
			Address:        cand.Decoded,
			IsBusinessLike: c.IsBusinessLike(cand.Decoded),
		})
	}
	return out
}

// Filter keeps the business-like candidates. When none qualifies and the
// keep-all fallback is on, every candidate is returned, so a non-empty
// input never yields an empty result.
func (c *Classifier) Filter(candidates []model.EmailCandidate) []model.EmailAddress {
	all := c.Classify(candidates)

	business := make([]model.EmailAddress, 0, len(all))
	for _, addr := range all {
		if addr.IsBusinessLike {
			business = append(business, addr)
		}
	}

	if len(business) == 0 && len(all) > 0 && c.keepAll {
		c.logger.Debug("no business emails found, keeping all", "count", len(all))
		return all
	}
	return business
}

func normalizePrefixes(prefixes []string) []string {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
