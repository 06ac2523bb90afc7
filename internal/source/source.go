// Package source produces the business records that feed a crawl run.
//
// A Source turns a query into records carrying a name and, usually, a
// website. Sources never attach emails; that is the crawl step's job.
package source

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nao1215/contactscan/internal/model"
)

// Source yields business records for a query. Failures are logged and
// reported as an empty or partial result.
type Source interface {
	Search(ctx context.Context, query string) []model.BusinessRecord
}

// Option configures a source.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Combined concatenates the results of several sources in order.
type Combined []Source

// Search queries every source and stops early when ctx is done.
func (c Combined) Search(ctx context.Context, query string) []model.BusinessRecord {
	var records []model.BusinessRecord
	for _, s := range c {
		if ctx.Err() != nil {
			break
		}
		records = append(records, s.Search(ctx, query)...)
	}
	return records
}

// Limit returns at most n records. A non-positive n keeps everything.
func Limit(records []model.BusinessRecord, n int) []model.BusinessRecord {
	if n <= 0 || len(records) <= n {
		return records
	}
	return records[:n]
}

// MatchesQuery reports whether the record's name, address or website
// contains query, ignoring case. An empty query or "*" matches everything.
func MatchesQuery(record model.BusinessRecord, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || query == "*" {
		return true
	}
	for _, field := range []string{record.Name, record.Address, record.Website} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
