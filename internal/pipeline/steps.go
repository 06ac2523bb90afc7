package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/model"
)

// ErrNoPosition is returned by PersistStep when the context carries no
// record position.
var ErrNoPosition = errors.New("record position missing from context")

// Crawler finds the emails published on one website.
// *crawler.Crawler and source.SimulatedCrawler satisfy it.
type Crawler interface {
	Crawl(ctx context.Context, website string) []model.EmailAddress
}

// History is the cross-run set of crawled websites. *history.History
// satisfies it.
type History interface {
	Contains(website string) bool
	Add(ctx context.Context, website string) error
}

// RunStore persists the businesses of a run. *database.DB satisfies it.
type RunStore interface {
	SaveRunBusiness(ctx context.Context, runID string, position int, record *model.BusinessRecord) error
}

// StepOption configures the steps of this package.
type StepOption func(*stepOptions)

type stepOptions struct {
	logger      *slog.Logger
	skipScraped bool
	siteConfig  func(host string) config.SiteConfig
}

// WithStepLogger sets the step logger.
func WithStepLogger(logger *slog.Logger) StepOption {
	return func(o *stepOptions) {
		o.logger = logger
	}
}

// WithSkipScraped makes HistorySkipStep skip websites already in history.
func WithSkipScraped(skip bool) StepOption {
	return func(o *stepOptions) {
		o.skipScraped = skip
	}
}

// WithSiteConfig sets the per-host override lookup. Hosts configured with
// skip are never crawled.
func WithSiteConfig(lookup func(host string) config.SiteConfig) StepOption {
	return func(o *stepOptions) {
		o.siteConfig = lookup
	}
}

func newStepOptions(opts []StepOption) stepOptions {
	o := stepOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// crawlable reports whether the crawl related steps apply to record.
func crawlable(record *model.BusinessRecord) bool {
	return !record.Skipped && record.HasWebsite()
}

func hostOf(website string) string {
	u, err := url.Parse(model.EnsureScheme(website))
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// HistorySkipStep marks records whose website must not be crawled.
type HistorySkipStep struct {
	history History
	opts    stepOptions
}

// NewHistorySkipStep creates the skip step. history may be nil.
func NewHistorySkipStep(history History, opts ...StepOption) *HistorySkipStep {
	return &HistorySkipStep{history: history, opts: newStepOptions(opts)}
}

// Name returns the step name.
func (s *HistorySkipStep) Name() string {
	return "history_skip"
}

// Do sets Skipped for hosts configured with skip, and for websites in
// history when skipping scraped sites is enabled.
func (s *HistorySkipStep) Do(_ context.Context, record *model.BusinessRecord) error {
	if !crawlable(record) {
		return nil
	}

	if s.opts.siteConfig != nil {
		if host := hostOf(record.Website); host != "" && s.opts.siteConfig(host).Skip {
			s.opts.logger.Info("skipping website excluded by site config", "website", record.Website)
			record.Skipped = true
			record.Emails = nil
			return nil
		}
	}

	if s.opts.skipScraped && s.history != nil && s.history.Contains(record.Website) {
		s.opts.logger.Info("skipping previously crawled website", "website", record.Website)
		record.Skipped = true
		record.Emails = nil
	}
	return nil
}

// CrawlStep attaches the emails found on the record's website.
type CrawlStep struct {
	crawler Crawler
	opts    stepOptions
}

// NewCrawlStep creates the crawl step.
func NewCrawlStep(crawler Crawler, opts ...StepOption) *CrawlStep {
	return &CrawlStep{crawler: crawler, opts: newStepOptions(opts)}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls the website. Records without a website keep an empty list.
func (s *CrawlStep) Do(ctx context.Context, record *model.BusinessRecord) error {
	if record.Skipped {
		return nil
	}
	if !record.HasWebsite() {
		s.opts.logger.Info("no website for business", "business", record.Name)
		return nil
	}

	record.Emails = s.crawler.Crawl(ctx, record.Website)
	s.opts.logger.Info("crawl finished",
		"business", record.Name,
		"website", record.Website,
		"emails", len(record.Emails),
	)
	return ctx.Err()
}

// HistoryRecordStep appends crawled websites to the history, whether or
// not emails were found.
type HistoryRecordStep struct {
	history History
	opts    stepOptions
}

// NewHistoryRecordStep creates the history update step.
func NewHistoryRecordStep(history History, opts ...StepOption) *HistoryRecordStep {
	return &HistoryRecordStep{history: history, opts: newStepOptions(opts)}
}

// Name returns the step name.
func (s *HistoryRecordStep) Name() string {
	return "history_record"
}

// Do records the website. A persistence failure is returned; the site
// stays in the in-memory history.
func (s *HistoryRecordStep) Do(ctx context.Context, record *model.BusinessRecord) error {
	if !crawlable(record) {
		return nil
	}
	return s.history.Add(ctx, record.Website)
}

// PersistStep stores the finished record under the current run.
type PersistStep struct {
	store RunStore
	runID string
	opts  stepOptions
}

// NewPersistStep creates the run persistence step.
func NewPersistStep(store RunStore, runID string, opts ...StepOption) *PersistStep {
	return &PersistStep{store: store, runID: runID, opts: newStepOptions(opts)}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do saves the record at the position carried by ctx.
func (s *PersistStep) Do(ctx context.Context, record *model.BusinessRecord) error {
	position, ok := PositionFrom(ctx)
	if !ok {
		return ErrNoPosition
	}
	if err := s.store.SaveRunBusiness(ctx, s.runID, position, record); err != nil {
		return fmt.Errorf("failed to persist business %q: %w", record.Name, err)
	}
	return nil
}

// Stages selects the steps of a business pipeline.
type Stages struct {
	// Crawler attaches emails. Required.
	Crawler Crawler

	// History enables the skip and record steps when set.
	History History

	// Store and RunID enable the persist step when Store is set.
	Store RunStore
	RunID string

	SkipScraped bool
	SiteConfig  func(host string) config.SiteConfig
	Logger      *slog.Logger
}

// Default returns the business pipeline for stages. It continues after a
// failed step so a storage error never drops the crawl result.
func Default(stages Stages, opts ...Option) *Pipeline {
	if stages.Logger != nil {
		opts = append([]Option{WithLogger(stages.Logger)}, opts...)
	}
	p := New(append([]Option{WithContinueOnError(true)}, opts...)...)

	stepOpts := []StepOption{
		WithStepLogger(stages.Logger),
		WithSkipScraped(stages.SkipScraped),
		WithSiteConfig(stages.SiteConfig),
	}

	p.AddStep(NewHistorySkipStep(stages.History, stepOpts...))
	p.AddStep(NewCrawlStep(stages.Crawler, stepOpts...))
	if stages.History != nil {
		p.AddStep(NewHistoryRecordStep(stages.History, stepOpts...))
	}
	if stages.Store != nil {
		p.AddStep(NewPersistStep(stages.Store, stages.RunID, stepOpts...))
	}
	return p
}
