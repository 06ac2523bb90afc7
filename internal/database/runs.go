package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/contactscan/internal/model"
)

// Run is one invocation of the crawl command.
type Run struct {
	// ID is a random UUID.
	ID string

	// Query is the search query handed to the business source.
	Query string

	// Source names the business source (simulated, file, pages, sites).
	Source string

	// StartedAt and FinishedAt bound the run. FinishedAt is zero while the
	// run is in progress or when it was interrupted.
	StartedAt  time.Time
	FinishedAt time.Time

	// Businesses and Emails summarize the stored results.
	Businesses int
	Emails     int
}

// CreateRun inserts a new run and returns it.
func (cdb *DB) CreateRun(ctx context.Context, query, source string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Query:     query,
		Source:    source,
		StartedAt: time.Now().UTC(),
	}

	_, err := cdb.exec(ctx, `
	INSERT INTO runs (id, query, source, started_at)
	VALUES (?, ?, ?, ?)
	`, run.ID, run.Query, run.Source, formatTimestamp(run.StartedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// FinishRun marks a run finished and stores its totals.
func (cdb *DB) FinishRun(ctx context.Context, runID string, businesses, emails int) error {
	_, err := cdb.exec(ctx, `
	UPDATE runs SET finished_at = ?, businesses = ?, emails = ?
	WHERE id = ?
	`, now(), businesses, emails, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// SaveRunBusiness stores the record at position within a run, replacing
// any earlier version of it.
func (cdb *DB) SaveRunBusiness(ctx context.Context, runID string, position int, record *model.BusinessRecord) error {
	emails := record.Emails
	if emails == nil {
		emails = []model.EmailAddress{}
	}
	emailsJSON, err := json.Marshal(emails)
	if err != nil {
		return fmt.Errorf("failed to serialize emails: %w", err)
	}

	_, err = cdb.exec(ctx, `
	INSERT INTO run_businesses (run_id, ordinal, name, website, phone, address, emails_json, skipped)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, ordinal) DO UPDATE SET
		name = excluded.name,
		website = excluded.website,
		phone = excluded.phone,
		address = excluded.address,
		emails_json = excluded.emails_json,
		skipped = excluded.skipped
	`,
		runID,
		position,
		record.Name,
		record.Website,
		record.Phone,
		record.Address,
		string(emailsJSON),
		boolToInt(record.Skipped),
	)
	if err != nil {
		return fmt.Errorf("failed to save run business: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. It returns nil when the run does not exist.
func (cdb *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := cdb.queryRow(ctx, `
	SELECT id, query, source, started_at, finished_at, businesses, emails
	FROM runs WHERE id = ?
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs, newest first. A positive limit caps the result.
func (cdb *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, query, source, started_at, finished_at, businesses, emails
	FROM runs
	ORDER BY started_at DESC, id
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRunBusinesses returns the records of a run in position order.
func (cdb *DB) GetRunBusinesses(ctx context.Context, runID string) ([]model.BusinessRecord, error) {
	rows, err := cdb.query(ctx, `
	SELECT name, website, phone, address, emails_json, skipped
	FROM run_businesses
	WHERE run_id = ?
	ORDER BY ordinal
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run businesses: %w", err)
	}
	defer rows.Close()

	var records []model.BusinessRecord
	for rows.Next() {
		var r model.BusinessRecord
		var emailsJSON string
		var skipped int
		if err := rows.Scan(&r.Name, &r.Website, &r.Phone, &r.Address, &emailsJSON, &skipped); err != nil {
			return nil, fmt.Errorf("failed to scan run business: %w", err)
		}
		if err := json.Unmarshal([]byte(emailsJSON), &r.Emails); err != nil {
			return nil, fmt.Errorf("failed to parse emails: %w", err)
		}
		r.Skipped = skipped != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var started, finished string
	if err := s.Scan(&run.ID, &run.Query, &run.Source, &started, &finished, &run.Businesses, &run.Emails); err != nil {
		return nil, err
	}
	run.StartedAt = parseTimestamp(started)
	run.FinishedAt = parseTimestamp(finished)
	return &run, nil
}
