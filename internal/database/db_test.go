package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/contactscan/internal/history"
	"github.com/nao1215/contactscan/internal/model"
)

// postgresDSNEnv names the variable that enables PostgreSQL tests.
const postgresDSNEnv = "CONTACTSCAN_TEST_POSTGRES_DSN"

// setupTestDB creates a temporary SQLite database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// backends returns the databases every storage test runs against.
func backends(t *testing.T) map[string]*DB {
	t.Helper()

	dbs := map[string]*DB{"sqlite": setupTestDB(t)}
	if dsn := os.Getenv(postgresDSNEnv); dsn != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pg, err := OpenPostgres(ctx, dsn)
		if err != nil {
			t.Fatalf("failed to open postgres: %v", err)
		}
		t.Cleanup(func() {
			_ = pg.Close()
		})
		dbs["postgres"] = pg
	}
	return dbs
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		if _, err := Open(dbDir, Options{CreateIfNotExists: false}); err == nil {
			t.Fatal("expected error for missing database")
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created when CreateIfNotExists=false")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "existing-db")
		ctx := context.Background()

		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		if err := db1.AddCrawledSite(ctx, "https://firm.pk"); err != nil {
			t.Fatalf("failed to add site: %v", err)
		}
		_ = db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database with CreateIfNotExists=false: %v", err)
		}
		defer db2.Close()

		ok, err := db2.HasCrawledSite(ctx, "https://firm.pk")
		if err != nil || !ok {
			t.Errorf("expected site to persist, got %v (err %v)", ok, err)
		}
	})
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

func TestRebind(t *testing.T) {
	t.Parallel()

	query := "SELECT a FROM t WHERE b = ? AND c = ?"
	sqlite := &DB{dialect: dialectSQLite}
	pg := &DB{dialect: dialectPostgres}

	if got := sqlite.rebind(query); got != query {
		t.Errorf("sqlite rebind changed the query: %q", got)
	}
	if got := pg.rebind(query); got != "SELECT a FROM t WHERE b = $1 AND c = $2" {
		t.Errorf("unexpected postgres query %q", got)
	}
}

func TestCrawledSites(t *testing.T) {
	t.Parallel()

	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			prefix := "https://" + uuid.NewString()[:8]
			sites := []string{prefix + "-a.pk", prefix + "-b.pk"}

			for _, s := range append(sites, sites[0]) {
				if err := db.AddCrawledSite(ctx, s); err != nil {
					t.Fatalf("AddCrawledSite(%q) error = %v", s, err)
				}
			}

			all, err := db.LoadCrawledSites(ctx)
			if err != nil {
				t.Fatalf("LoadCrawledSites() error = %v", err)
			}
			var mine []string
			for _, s := range all {
				if strings.HasPrefix(s, prefix) {
					mine = append(mine, s)
				}
			}
			if fmt.Sprint(mine) != fmt.Sprint(sites) {
				t.Errorf("expected %v, got %v", sites, mine)
			}

			ok, err := db.HasCrawledSite(ctx, prefix+"-c.pk")
			if err != nil || ok {
				t.Errorf("unexpected site (err %v)", err)
			}
		})
	}
}

func TestHistoryBackend(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	var _ history.Backend = db

	h := history.Load(t.Context(), db)
	if err := h.Add(t.Context(), "firm.pk"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	reloaded := history.Load(t.Context(), db)
	if !reloaded.Contains("https://firm.pk/") {
		t.Errorf("expected site to survive reload, got %v", reloaded.Sites())
	}
}

func TestRuns(t *testing.T) {
	t.Parallel()

	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := db.CreateRun(ctx, "software house lahore", "simulated")
			if err != nil {
				t.Fatalf("CreateRun() error = %v", err)
			}
			if _, err := uuid.Parse(first.ID); err != nil {
				t.Errorf("run id is not a UUID: %q", first.ID)
			}
			second, err := db.CreateRun(ctx, "bakery karachi", "file")
			if err != nil {
				t.Fatalf("CreateRun() error = %v", err)
			}

			records := []model.BusinessRecord{
				{
					Name:    "Techno Soft",
					Website: "https://technosoft.pk",
					Phone:   "+92 300 5551111",
					Emails: []model.EmailAddress{
						{Address: "info@technosoft.pk", IsBusinessLike: true},
						{Address: "ayesha.khan@technosoft.pk"},
					},
				},
				{Name: "Skipped Firm", Website: "https://skipped.pk", Skipped: true},
			}
			for i := range records {
				if err := db.SaveRunBusiness(ctx, first.ID, i, &records[i]); err != nil {
					t.Fatalf("SaveRunBusiness() error = %v", err)
				}
			}
			// Saving a position again replaces it.
			records[1].Address = "Gulberg III, Lahore"
			if err := db.SaveRunBusiness(ctx, first.ID, 1, &records[1]); err != nil {
				t.Fatalf("SaveRunBusiness() error = %v", err)
			}
			if err := db.FinishRun(ctx, first.ID, 2, 2); err != nil {
				t.Fatalf("FinishRun() error = %v", err)
			}

			got, err := db.GetRunBusinesses(ctx, first.ID)
			if err != nil {
				t.Fatalf("GetRunBusinesses() error = %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("expected 2 records, got %d", len(got))
			}
			if got[0].JoinedEmails() != "info@technosoft.pk, ayesha.khan@technosoft.pk" || !got[0].Emails[0].IsBusinessLike {
				t.Errorf("unexpected emails %+v", got[0].Emails)
			}
			if !got[1].Skipped || got[1].Address != "Gulberg III, Lahore" || got[1].Emails == nil {
				t.Errorf("unexpected record %+v", got[1])
			}

			run, err := db.GetRun(ctx, first.ID)
			if err != nil || run == nil {
				t.Fatalf("GetRun() = %v, %v", run, err)
			}
			if run.Businesses != 2 || run.Emails != 2 || run.FinishedAt.IsZero() || run.Source != "simulated" {
				t.Errorf("unexpected run %+v", run)
			}

			pending, err := db.GetRun(ctx, second.ID)
			if err != nil || pending == nil || !pending.FinishedAt.IsZero() {
				t.Errorf("second run should be unfinished, got %+v (err %v)", pending, err)
			}

			missing, err := db.GetRun(ctx, uuid.NewString())
			if err != nil || missing != nil {
				t.Errorf("expected nil for unknown run, got %+v (err %v)", missing, err)
			}

			runs, err := db.ListRuns(ctx, 0)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			pos := map[string]int{}
			for i, r := range runs {
				pos[r.ID] = i
			}
			if pos[second.ID] > pos[first.ID] {
				t.Error("expected newest run first")
			}

			limited, err := db.ListRuns(ctx, 1)
			if err != nil || len(limited) != 1 {
				t.Errorf("expected 1 run, got %d (err %v)", len(limited), err)
			}
		})
	}
}

func TestFetchLog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)
	run, err := db.CreateRun(ctx, "q", "sites")
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	log := db.FetchLog(run.ID, nil)
	log.ObserveFetch(ctx, "https://firm.pk",
		model.CrawlTarget{URL: "https://firm.pk", Depth: model.DepthPrimary},
		model.FetchResult{Status: model.StatusOK, StatusCode: 200, ContentType: "text/html", Attempts: 1},
	)
	log.ObserveFetch(ctx, "https://firm.pk",
		model.CrawlTarget{URL: "https://firm.pk/contact", Depth: model.DepthContact},
		model.FetchResult{Status: model.StatusHTTPError, StatusCode: 503, ContactOnly: true, Attempts: 3, Err: errors.New("busy")},
	)

	fetches, err := db.ListPageFetches(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListPageFetches() error = %v", err)
	}
	if len(fetches) != 2 {
		t.Fatalf("expected 2 fetches, got %d", len(fetches))
	}
	if fetches[0].Status != "ok" || fetches[0].Depth != "primary" || fetches[0].FetchedAt.IsZero() {
		t.Errorf("unexpected first fetch %+v", fetches[0])
	}
	second := fetches[1]
	if second.Status != "http_error(503)" || !second.ContactOnly || second.Attempts != 3 || second.Error != "busy" {
		t.Errorf("unexpected second fetch %+v", second)
	}
}

func TestFetchLog_StorageFailure(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	_ = db.Close()

	var buf bytes.Buffer
	log := db.FetchLog("run", slog.New(slog.NewTextHandler(&buf, nil)))
	log.ObserveFetch(context.Background(), "https://firm.pk", model.CrawlTarget{URL: "https://firm.pk"}, model.FetchResult{})

	if !strings.Contains(buf.String(), "failed to log page fetch") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 4, 5, 6, 7, 8000, time.UTC)
	if got := parseTimestamp(formatTimestamp(ts)); !got.Equal(ts) {
		t.Errorf("round trip gave %v", got)
	}
	if got := parseTimestamp("2026-03-04 05:06:07"); got.IsZero() {
		t.Error("expected sqlite datetime format to parse")
	}
	if got := parseTimestamp("garbage"); !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
	if formatTimestamp(time.Time{}) != "" {
		t.Error("zero time should format empty")
	}
}
