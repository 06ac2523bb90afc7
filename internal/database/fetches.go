package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/contactscan/internal/model"
)

// PageFetch is one logged fetch.
type PageFetch struct {
	ID          int64
	RunID       string
	Website     string
	URL         string
	Depth       string
	Status      string
	StatusCode  int
	ContentType string
	ContactOnly bool
	Attempts    int
	Error       string
	FetchedAt   time.Time
}

// InsertPageFetch logs one fetch.
func (cdb *DB) InsertPageFetch(ctx context.Context, f *PageFetch) error {
	fetchedAt := f.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err := cdb.exec(ctx, `
	INSERT INTO page_fetches (run_id, website, url, depth, status, status_code, content_type, contact_only, attempts, error, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		f.RunID,
		f.Website,
		f.URL,
		f.Depth,
		f.Status,
		f.StatusCode,
		f.ContentType,
		boolToInt(f.ContactOnly),
		f.Attempts,
		f.Error,
		formatTimestamp(fetchedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert page fetch: %w", err)
	}
	return nil
}

// ListPageFetches returns the fetches of a run in insertion order.
func (cdb *DB) ListPageFetches(ctx context.Context, runID string) ([]PageFetch, error) {
	rows, err := cdb.query(ctx, `
	SELECT id, run_id, website, url, depth, status, status_code, content_type, contact_only, attempts, error, fetched_at
	FROM page_fetches
	WHERE run_id = ?
	ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list page fetches: %w", err)
	}
	defer rows.Close()

	var fetches []PageFetch
	for rows.Next() {
		var f PageFetch
		var contactOnly int
		var fetchedAt string
		err := rows.Scan(
			&f.ID,
			&f.RunID,
			&f.Website,
			&f.URL,
			&f.Depth,
			&f.Status,
			&f.StatusCode,
			&f.ContentType,
			&contactOnly,
			&f.Attempts,
			&f.Error,
			&fetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page fetch: %w", err)
		}
		f.ContactOnly = contactOnly != 0
		f.FetchedAt = parseTimestamp(fetchedAt)
		fetches = append(fetches, f)
	}
	return fetches, rows.Err()
}

// FetchLog records the fetches of one run. It satisfies the crawler's
// Observer interface.
type FetchLog struct {
	db     *DB
	runID  string
	logger *slog.Logger
}

// FetchLog returns an observer that logs fetches under runID. Storage
// failures are logged and otherwise ignored.
func (cdb *DB) FetchLog(runID string, logger *slog.Logger) *FetchLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchLog{db: cdb, runID: runID, logger: logger}
}

// ObserveFetch stores one fetch result.
func (l *FetchLog) ObserveFetch(ctx context.Context, website string, target model.CrawlTarget, result model.FetchResult) {
	f := &PageFetch{
		RunID:       l.runID,
		Website:     website,
		URL:         target.URL,
		Depth:       target.Depth.String(),
		Status:      result.String(),
		StatusCode:  result.StatusCode,
		ContentType: result.ContentType,
		ContactOnly: result.ContactOnly,
		Attempts:    result.Attempts,
	}
	if result.Err != nil {
		f.Error = result.Err.Error()
	}
	if err := l.db.InsertPageFetch(ctx, f); err != nil {
		l.logger.Warn("failed to log page fetch", "url", target.URL, "error", err)
	}
}
