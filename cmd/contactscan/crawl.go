package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/nao1215/contactscan/internal/classify"
	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/crawler"
	"github.com/nao1215/contactscan/internal/database"
	"github.com/nao1215/contactscan/internal/dedup"
	"github.com/nao1215/contactscan/internal/export"
	"github.com/nao1215/contactscan/internal/extract"
	"github.com/nao1215/contactscan/internal/fetch"
	"github.com/nao1215/contactscan/internal/history"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/pipeline"
	"github.com/nao1215/contactscan/internal/source"
	"github.com/nao1215/contactscan/internal/verify"
	"github.com/spf13/cobra"
)

// errNoSource is returned when a query is given without anything to
// search it in.
var errNoSource = errors.New("no business source: use --source-file, --listing-page, --site or --simulate")

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [query]",
		Short: "Collect contact emails for a list of businesses",
		Long: `Crawl looks up businesses and collects the contact emails published on
their websites.

Businesses come from one or more sources:
- a YAML, JSON or CSV listing file (--source-file)
- listing or profile pages, fetched or saved as HTML (--listing-page)
- websites given directly (--site)
- generated test businesses (--simulate, no network access)

The query filters listing entries by name, address and website. Each
website is crawled once: the homepage, then contact, about and team pages,
then a few secondary pages. Results are exported in every format unless
--output-format picks one.

Examples:
  # Crawl the businesses of a listing file matching a query
  contactscan crawl "software houses in lahore" --source-file businesses.yaml

  # Crawl websites directly and print only JSON
  contactscan crawl --site https://www.example.com --site https://devshop.io -f json

  # Extract businesses from a saved listing page
  contactscan crawl --listing-page ./results.html

  # Dry run without network access
  contactscan crawl --simulate

  # Skip websites crawled by earlier runs, four at a time
  contactscan crawl --source-file businesses.csv --skip-scraped -b 4`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Source flags
	cmd.Flags().Bool("simulate", false,
		"Use generated businesses and a simulated crawler (no network access)")
	cmd.Flags().StringP("source-file", "s", "",
		"YAML, JSON or CSV listing of businesses")
	cmd.Flags().StringArrayP("listing-page", "l", nil,
		"Listing or profile page to extract businesses from, URL or saved HTML (repeatable)")
	cmd.Flags().StringArray("site", nil,
		"Business website to crawl directly (repeatable)")
	cmd.Flags().IntP("max-businesses", "n", config.DefaultMaxBusinesses,
		"Maximum number of businesses to crawl (0 for no limit)")

	// Crawl behavior flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of websites crawled concurrently")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Bool("skip-scraped", false,
		"Skip websites already in the crawl history")
	cmd.Flags().Bool("ignore-ssl-errors", false,
		"Disable certificate verification for every request")
	cmd.Flags().Bool("ignore-robots", false,
		"Do not consult robots.txt")
	cmd.Flags().Bool("verify-mx", false,
		"Drop addresses whose domain has no mail exchanger")

	// Output flags
	cmd.Flags().StringP("output-format", "f", config.OutputFormatAll,
		"Export format: json, csv, markdown, text or all")
	cmd.Flags().String("output-prefix", config.DefaultOutputPrefix,
		"File name prefix for exports")
	cmd.Flags().String("output-dir", "",
		"Directory for exports (default: exports in the XDG data directory)")
	cmd.Flags().StringP("output", "o", "",
		"Write a single-format export to this path instead")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := applyCrawlFlags(cmd, cfg, args); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cfg)

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// applyCrawlFlags overlays the crawl flags the user set onto cfg. Unset
// flags keep the values from the configuration file and environment.
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config, args []string) error {
	flags := cmd.Flags()
	cfg.Query = strings.TrimSpace(strings.Join(args, " "))

	bools := map[string]*bool{
		"simulate":          &cfg.Simulate,
		"skip-scraped":      &cfg.SkipScraped,
		"ignore-ssl-errors": &cfg.IgnoreSSLErrors,
		"verify-mx":         &cfg.VerifyMX,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	ints := map[string]*int{
		"max-businesses": &cfg.MaxBusinesses,
		"batch":          &cfg.BatchSize,
	}
	for name, dst := range ints {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	strs := map[string]*string{
		"source-file":   &cfg.SourceFile,
		"output-format": &cfg.OutputFormat,
		"output-prefix": &cfg.OutputPrefix,
		"output-dir":    &cfg.OutputDir,
		"output":        &cfg.OutputFile,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)

	arrays := map[string]*[]string{
		"listing-page": &cfg.ListingPages,
		"site":         &cfg.Sites,
	}
	for name, dst := range arrays {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetStringArray(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if flags.Changed("timeout") {
		timeout, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = timeout
	}

	if flags.Changed("ignore-robots") {
		ignore, err := flags.GetBool("ignore-robots")
		if err != nil {
			return err
		}
		cfg.RespectRobots = !ignore
	}

	return nil
}

// runCrawl executes one crawl run and writes progress and the summary to
// out. Simulated runs touch neither the network nor the database.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	logger.Info("starting crawl",
		"query", cfg.Query,
		"simulate", cfg.Simulate,
		"batchSize", cfg.BatchSize,
		"historyBackend", cfg.HistoryBackend,
	)

	src, sourceName, err := buildSource(cfg, logger)
	if err != nil {
		return err
	}

	records := collectBusinesses(ctx, src, cfg, logger)
	if len(records) == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintln(out, "No businesses found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d businesses\n\n", len(records))

	stages := pipeline.Stages{
		SkipScraped: cfg.SkipScraped,
		SiteConfig:  cfg.SiteConfig,
		Logger:      logger,
	}

	var (
		db       *database.DB
		run      *database.Run
		observer crawler.Observer
	)
	if !cfg.Simulate {
		db, err = openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore(db, logger)

		run, err = db.CreateRun(ctx, cfg.Query, sourceName)
		if err != nil {
			return err
		}
		logger.Info("run started", "run", run.ID, "source", sourceName)

		stages.History = history.Load(ctx, historyBackend(cfg, db), history.WithLogger(logger))
		stages.Store = db
		stages.RunID = run.ID
		observer = db.FetchLog(run.ID, logger)
	}

	stages.Crawler, err = newCrawler(cfg, observer, logger)
	if err != nil {
		return err
	}

	results, err := crawlBusinesses(ctx, cfg, stages, records, logger, out)
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return err
	}

	report := export.NewReport(cfg.Query, results)
	if run != nil && !interrupted {
		if err := db.FinishRun(ctx, run.ID, len(results), report.EmailCount()); err != nil {
			logger.Warn("failed to finish run", "run", run.ID, "error", err)
		}
	}

	if err := writeExports(cfg, report, out); err != nil {
		return err
	}
	printSummary(out, report, run)

	if interrupted {
		fmt.Fprintln(out, "Interrupted: the exports hold the businesses finished so far.")
	}
	return nil
}

// buildSource combines the configured business sources and names them
// for the run record.
func buildSource(cfg *config.Config, logger *slog.Logger) (source.Source, string, error) {
	if cfg.Simulate {
		count := cfg.MaxBusinesses
		if count <= 0 {
			count = source.DefaultSimulatedCount
		}
		return source.NewSimulatedSource(count, source.WithLogger(logger)), "simulated", nil
	}

	var (
		sources source.Combined
		names   []string
	)
	if cfg.SourceFile != "" {
		sources = append(sources, source.NewFileSource(cfg.SourceFile, source.WithLogger(logger)))
		names = append(names, "file")
	}
	if len(cfg.ListingPages) > 0 {
		policy, err := fetch.NewPolicy(fetch.ListingOptionsFromConfig(cfg), fetch.WithLogger(logger))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create listing fetch policy: %w", err)
		}
		sources = append(sources, source.NewPageSource(policy.NewSession(), cfg.ListingPages, source.WithLogger(logger)))
		names = append(names, "pages")
	}
	if len(cfg.Sites) > 0 {
		sources = append(sources, source.NewStaticSource(cfg.Sites, source.WithLogger(logger)))
		names = append(names, "sites")
	}

	if len(sources) == 0 {
		return nil, "", errNoSource
	}
	return sources, strings.Join(names, "+"), nil
}

// collectBusinesses searches src and keeps the first occurrence of each
// business until MaxBusinesses unique records are collected.
func collectBusinesses(ctx context.Context, src source.Source, cfg *config.Config, logger *slog.Logger) []model.BusinessRecord {
	collector := dedup.NewCollector(dedup.New(dedup.WithLogger(logger)))
	for _, record := range src.Search(ctx, cfg.Query) {
		if cfg.MaxBusinesses > 0 && collector.Len() >= cfg.MaxBusinesses {
			break
		}
		if !collector.Add(record) {
			logger.Info("skipping duplicate business", "business", record.Name, "website", record.Website)
		}
	}
	return source.Limit(collector.Records(), cfg.MaxBusinesses)
}

// newCrawler returns the simulated crawler or a crawler over a fresh fetch
// policy. observer may be nil.
func newCrawler(cfg *config.Config, observer crawler.Observer, logger *slog.Logger) (pipeline.Crawler, error) {
	if cfg.Simulate {
		return source.SimulatedCrawler{}, nil
	}

	policy, err := fetch.NewPolicy(fetch.OptionsFromConfig(cfg),
		fetch.WithLogger(logger),
		fetch.WithSiteConfig(cfg.SiteConfig),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch policy: %w", err)
	}

	decoder, err := extract.NewDecoder(extract.WithPattern(cfg.EmailPattern))
	if err != nil {
		return nil, err
	}

	opts := []crawler.Option{
		crawler.WithExtractor(decoder),
		crawler.WithClassifier(classify.New(
			classify.WithPrefixes(cfg.BusinessPrefixes),
			classify.WithKeepAllWhenNoBusiness(cfg.KeepAllWhenNoBusiness),
			classify.WithLogger(logger),
		)),
		crawler.WithFrontier(crawler.FrontierFromConfig(cfg)),
		crawler.WithLogger(logger),
	}
	if observer != nil {
		opts = append(opts, crawler.WithObserver(observer))
	}
	if cfg.VerifyMX {
		opts = append(opts, crawler.WithVerifier(verify.NewMXVerifier(cfg.DNSServers,
			verify.WithTimeout(cfg.DNSTimeout),
			verify.WithLogger(logger),
		)))
	}

	return crawler.New(crawler.PolicySessions(policy), opts...)
}

// crawlBusinesses runs the business pipeline over records and reports
// each finished business on out. Records never started keep their input
// state.
func crawlBusinesses(
	ctx context.Context,
	cfg *config.Config,
	stages pipeline.Stages,
	records []model.BusinessRecord,
	logger *slog.Logger,
	out io.Writer,
) ([]model.BusinessRecord, error) {
	processor := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline { return pipeline.Default(stages) },
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.BatchSize),
	)

	results := make([]model.BusinessRecord, len(records))
	copy(results, records)

	var (
		mu   sync.Mutex
		done int
	)
	err := processor.ProcessBatchWithCallback(ctx, records, func(record model.BusinessRecord, index int) {
		mu.Lock()
		defer mu.Unlock()
		results[index] = record
		done++
		fmt.Fprintf(out, "[%d/%d] %s\n", done, len(records), describeResult(&record))
	})
	return results, err
}

func describeResult(record *model.BusinessRecord) string {
	switch {
	case record.Skipped:
		return record.Name + ": skipped"
	case !record.HasWebsite():
		return record.Name + ": no website"
	default:
		return fmt.Sprintf("%s: %d emails (%d business)",
			record.Name, len(record.Emails), record.BusinessEmailCount())
	}
}

// writeExports saves the report to the single output file or to one
// generated file per format.
func writeExports(cfg *config.Config, report *export.Report, out io.Writer) error {
	if cfg.OutputFile != "" {
		if err := export.SaveFile(cfg.OutputFile, cfg.OutputFormat, report); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nSaved %s export: %s\n", cfg.OutputFormat, cfg.OutputFile)
		return nil
	}

	formats, err := export.Formats(cfg.OutputFormat)
	if err != nil {
		return err
	}
	paths, err := export.Save(cfg.OutputDir, cfg.OutputPrefix, report, formats)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	for i, path := range paths {
		fmt.Fprintf(out, "Saved %s export: %s\n", formats[i], path)
	}
	return nil
}

func printSummary(out io.Writer, report *export.Report, run *database.Run) {
	fmt.Fprintf(out, "\nBusinesses: %d\n", len(report.Businesses))
	fmt.Fprintf(out, "With emails: %d\n", report.WithEmailsCount())
	fmt.Fprintf(out, "Emails: %d (%d business)\n", report.EmailCount(), report.BusinessEmailCount())
	if skipped := report.SkippedCount(); skipped > 0 {
		fmt.Fprintf(out, "Skipped: %d\n", skipped)
	}
	if run != nil {
		fmt.Fprintf(out, "Run: %s\n", run.ID)
	}
}
