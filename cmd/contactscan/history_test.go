package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/contactscan/internal/config"
)

// runRoot executes the root command with args and returns its output.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return buf.String(), err
}

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{config.HistoryBackendJSON, config.HistoryBackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			common := []string{"--history-backend", backend, "--data-dir", t.TempDir()}
			run := func(args ...string) string {
				t.Helper()
				out, err := runRoot(t, append(args, common...)...)
				if err != nil {
					t.Fatalf("%v: unexpected error: %v", args, err)
				}
				return out
			}

			if out := run("history", "list"); !strings.Contains(out, "No websites") {
				t.Errorf("expected empty history, got %q", out)
			}

			out := run("history", "add", "https://www.example.com/", "devshop.io")
			if !strings.Contains(out, "added: https://www.example.com/") || !strings.Contains(out, "added: devshop.io") {
				t.Errorf("unexpected add output %q", out)
			}

			if out := run("history", "add", "https://www.example.com"); !strings.Contains(out, "already recorded") {
				t.Errorf("expected the site to be recorded already, got %q", out)
			}

			if out := run("history", "list"); !strings.Contains(out, "Crawled websites (2)") {
				t.Errorf("expected two sites, got %q", out)
			}

			if out := run("history", "check", "https://www.example.com"); !strings.Contains(out, ": crawled") {
				t.Errorf("expected example.com to be crawled, got %q", out)
			}
			if out := run("history", "check", "https://acme.pk"); !strings.Contains(out, "not crawled") {
				t.Errorf("expected acme.pk to be unknown, got %q", out)
			}
		})
	}

	t.Run("postgres requires a DSN", func(t *testing.T) {
		t.Parallel()

		_, err := runRoot(t, "history", "list", "--history-backend", "postgres", "--postgres-dsn", "")
		if !errors.Is(err, config.ErrMissingPostgresDSN) {
			t.Errorf("expected ErrMissingPostgresDSN, got %v", err)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Parallel()

		_, err := runRoot(t, "history", "list", "--history-backend", "redis")
		if !errors.Is(err, config.ErrInvalidHistoryBackend) {
			t.Errorf("expected ErrInvalidHistoryBackend, got %v", err)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		_, err := runRoot(t, "history", "list", "-c", "does-not-exist.yaml")
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}
