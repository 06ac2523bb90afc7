package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/database"
	"github.com/nao1215/contactscan/internal/history"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/source"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	if cmd.Use != "crawl [query]" {
		t.Errorf("expected use 'crawl [query]', got %q", cmd.Use)
	}

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"simulate", "", "false"},
		{"source-file", "s", ""},
		{"listing-page", "l", "[]"},
		{"site", "", "[]"},
		{"max-businesses", "n", "20"},
		{"batch", "b", "1"},
		{"skip-scraped", "", "false"},
		{"ignore-ssl-errors", "", "false"},
		{"verify-mx", "", "false"},
		{"output-format", "f", "all"},
		{"output-prefix", "", "contacts"},
		{"output", "o", ""},
	}
	for _, tt := range flags {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestApplyCrawlFlags(t *testing.T) {
	t.Parallel()

	t.Run("set flags override the configuration", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		err := cmd.ParseFlags([]string{
			"--site", "https://a.pk", "--site", "https://b.pk",
			"-n", "3", "-b", "4", "-f", "JSON",
			"--ignore-robots", "--skip-scraped", "-t", "5s",
		})
		if err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg := config.NewConfig()
		if err := applyCrawlFlags(cmd, cfg, []string{"software", "houses"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Query != "software houses" {
			t.Errorf("expected query 'software houses', got %q", cfg.Query)
		}
		if strings.Join(cfg.Sites, ",") != "https://a.pk,https://b.pk" {
			t.Errorf("unexpected sites %v", cfg.Sites)
		}
		if cfg.MaxBusinesses != 3 || cfg.BatchSize != 4 {
			t.Errorf("expected max 3 and batch 4, got %d and %d", cfg.MaxBusinesses, cfg.BatchSize)
		}
		if cfg.OutputFormat != config.OutputFormatJSON {
			t.Errorf("expected json format, got %q", cfg.OutputFormat)
		}
		if cfg.RespectRobots {
			t.Error("expected robots.txt to be ignored")
		}
		if !cfg.SkipScraped {
			t.Error("expected skip-scraped to be set")
		}
		if cfg.Timeout != 5*time.Second {
			t.Errorf("expected timeout 5s, got %v", cfg.Timeout)
		}
	})

	t.Run("unset flags keep the configuration", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--simulate"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg := config.NewConfig()
		cfg.MaxBusinesses = 7
		cfg.OutputPrefix = "leads"
		cfg.SkipScraped = true
		if err := applyCrawlFlags(cmd, cfg, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cfg.Simulate {
			t.Error("expected simulate to be set")
		}
		if cfg.MaxBusinesses != 7 {
			t.Errorf("expected max businesses 7, got %d", cfg.MaxBusinesses)
		}
		if cfg.OutputPrefix != "leads" {
			t.Errorf("expected prefix 'leads', got %q", cfg.OutputPrefix)
		}
		if !cfg.SkipScraped {
			t.Error("expected skip-scraped to stay set")
		}
		if cfg.Query != "" {
			t.Errorf("expected empty query, got %q", cfg.Query)
		}
	})
}

func TestBuildSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		setup    func(cfg *config.Config)
		wantName string
		wantErr  error
	}{
		{
			name:     "simulate",
			setup:    func(cfg *config.Config) { cfg.Simulate = true },
			wantName: "simulated",
		},
		{
			name: "file and sites",
			setup: func(cfg *config.Config) {
				cfg.SourceFile = "businesses.yaml"
				cfg.Sites = []string{"https://a.pk"}
			},
			wantName: "file+sites",
		},
		{
			name:     "listing pages",
			setup:    func(cfg *config.Config) { cfg.ListingPages = []string{"results.html"} },
			wantName: "pages",
		},
		{
			name:    "query only",
			setup:   func(cfg *config.Config) { cfg.Query = "software houses" },
			wantErr: errNoSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			tt.setup(cfg)

			src, name, err := buildSource(cfg, discardLogger())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if src == nil {
				t.Fatal("expected a source")
			}
			if name != tt.wantName {
				t.Errorf("expected source name %q, got %q", tt.wantName, name)
			}
		})
	}
}

func TestRunCrawl_Simulated(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	cfg := config.NewConfig()
	cfg.Simulate = true
	cfg.Query = "software houses in lahore"
	cfg.MaxBusinesses = 3
	cfg.OutputFormat = config.OutputFormatJSON
	cfg.OutputDir = outDir

	var out bytes.Buffer
	if err := runCrawl(t.Context(), cfg, discardLogger(), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := out.String()
	for _, want := range []string{"Found 3 businesses", "[3/3]", "Emails: 4 (4 business)"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}

	files, err := filepath.Glob(filepath.Join(outDir, "contacts_*.json"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one json export, got %v (%v)", files, err)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	var records []model.BusinessRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("failed to parse export: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if got := records[1].JoinedEmails(); got != "info@softwarehouse.com.pk, contact@softwarehouse.com.pk" {
		t.Errorf("unexpected emails for second business: %q", got)
	}
}

func TestRunCrawl_SimulatedDropsDuplicateWebsites(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.Simulate = true
	cfg.MaxBusinesses = 8
	cfg.OutputFormat = config.OutputFormatCSV
	cfg.OutputFile = filepath.Join(t.TempDir(), "out", "contacts.csv")

	var out bytes.Buffer
	if err := runCrawl(t.Context(), cfg, discardLogger(), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Found 5 businesses") {
		t.Errorf("expected duplicates by website to be dropped, got:\n%s", out.String())
	}
	if _, err := os.Stat(cfg.OutputFile); err != nil {
		t.Errorf("expected export at %s: %v", cfg.OutputFile, err)
	}
}

func TestCollectBusinesses_CapCountsUniqueRecords(t *testing.T) {
	t.Parallel()

	listing := filepath.Join(t.TempDir(), "businesses.yaml")
	content := "- name: Alpha Soft\n  website: https://alpha.example\n" +
		"- name: Alpha Software\n  website: https://ALPHA.example\n" +
		"- name: Beta Labs\n  website: https://beta.example\n" +
		"- name: Gamma Works\n  website: https://gamma.example\n"
	if err := os.WriteFile(listing, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write listing: %v", err)
	}

	tests := []struct {
		max  int
		want string
	}{
		{max: 2, want: "Alpha Soft, Beta Labs"},
		{max: 3, want: "Alpha Soft, Beta Labs, Gamma Works"},
		{max: 0, want: "Alpha Soft, Beta Labs, Gamma Works"},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.max), func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			cfg.MaxBusinesses = tt.max
			src := source.NewFileSource(listing, source.WithLogger(discardLogger()))

			var names []string
			for _, record := range collectBusinesses(t.Context(), src, cfg, discardLogger()) {
				names = append(names, record.Name)
			}
			if got := strings.Join(names, ", "); got != tt.want {
				t.Errorf("max %d collected %q, want %q", tt.max, got, tt.want)
			}
		})
	}
}

// contactSite serves an obfuscated homepage and a contact page with a
// mailto link.
func contactSite(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			_, _ = io.WriteString(w, `<html><body><p>Write to contact[at]example[dot]com</p><a href="/contact">Contact</a></body></html>`)
		case "/contact":
			w.Header().Set("Content-Type", "text/html")
			_, _ = io.WriteString(w, `<html><body><a href="mailto:info@firm.pk">Email</a></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunCrawl_ListingFileWithSQLiteHistory(t *testing.T) {
	t.Parallel()

	srv := contactSite(t)
	dir := t.TempDir()

	listing := filepath.Join(dir, "businesses.yaml")
	content := "- name: Firm\n  website: " + srv.URL + "\n  address: 1 Mall Road, Lahore\n" +
		"- name: Offline Traders\n  address: 2 Mall Road, Lahore\n"
	if err := os.WriteFile(listing, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write listing: %v", err)
	}

	newCfg := func() *config.Config {
		cfg := config.NewConfig()
		cfg.Query = "lahore"
		cfg.SourceFile = listing
		cfg.WebsiteDelayMin = 0
		cfg.WebsiteDelayMax = 0
		cfg.RetryBaseDelay = 0
		cfg.Timeout = 2 * time.Second
		cfg.RobotsTimeout = time.Second
		cfg.HistoryBackend = config.HistoryBackendSQLite
		cfg.DBDir = dir
		cfg.OutputFormat = config.OutputFormatText
		cfg.OutputDir = filepath.Join(dir, "exports")
		return cfg
	}

	var out bytes.Buffer
	if err := runCrawl(t.Context(), newCfg(), discardLogger(), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Firm: 2 emails (2 business)") {
		t.Errorf("expected two emails for Firm, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Offline Traders: no website") {
		t.Errorf("expected Offline Traders without website, got:\n%s", out.String())
	}

	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(t.Context(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one run, got %v (%v)", runs, err)
	}
	if runs[0].Source != "file" || runs[0].Businesses != 2 || runs[0].Emails != 2 {
		t.Errorf("unexpected run %+v", runs[0])
	}
	if runs[0].FinishedAt.IsZero() {
		t.Error("expected the run to be finished")
	}

	businesses, err := db.GetRunBusinesses(t.Context(), runs[0].ID)
	if err != nil {
		t.Fatalf("failed to get businesses: %v", err)
	}
	if len(businesses) != 2 || businesses[0].Name != "Firm" {
		t.Fatalf("unexpected stored businesses %+v", businesses)
	}
	if got := businesses[0].JoinedEmails(); got != "contact@example.com, info@firm.pk" {
		t.Errorf("unexpected stored emails %q", got)
	}

	fetches, err := db.ListPageFetches(t.Context(), runs[0].ID)
	if err != nil {
		t.Fatalf("failed to list fetches: %v", err)
	}
	if len(fetches) < 2 {
		t.Errorf("expected homepage and contact fetches, got %d", len(fetches))
	}

	if !history.Load(t.Context(), db, history.WithLogger(discardLogger())).Contains(srv.URL) {
		t.Errorf("expected %s in the history", srv.URL)
	}

	// A second run with skip-scraped leaves the website alone.
	cfg := newCfg()
	cfg.SkipScraped = true
	out.Reset()
	if err := runCrawl(t.Context(), cfg, discardLogger(), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Firm: skipped") {
		t.Errorf("expected Firm to be skipped, got:\n%s", out.String())
	}
}

func TestRunCrawl_NoBusinesses(t *testing.T) {
	t.Parallel()

	listing := filepath.Join(t.TempDir(), "businesses.csv")
	if err := os.WriteFile(listing, []byte("name,website\nFirm,https://firm.pk\n"), 0600); err != nil {
		t.Fatalf("failed to write listing: %v", err)
	}

	cfg := config.NewConfig()
	cfg.Query = "karachi"
	cfg.SourceFile = listing

	var out bytes.Buffer
	if err := runCrawl(t.Context(), cfg, discardLogger(), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "No businesses found.") {
		t.Errorf("expected no businesses, got:\n%s", out.String())
	}
}
