package main

import (
	"context"
	"fmt"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/database"
	"github.com/nao1215/contactscan/internal/history"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or edit the crawl history",
		Long: `History manages the list of websites crawled by earlier runs. Websites in
the history are skipped by "crawl --skip-scraped".

The backend is selected with --history-backend (json, sqlite or postgres).

Examples:
  # List crawled websites
  contactscan history list

  # Mark websites as crawled
  contactscan history add https://www.example.com devshop.io

  # Check one website in the SQLite history
  contactscan history check example.com --history-backend sqlite`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List crawled websites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd, func(_ context.Context, h *history.History) error {
				out := cmd.OutOrStdout()
				sites := h.Sites()
				if len(sites) == 0 {
					fmt.Fprintln(out, "No websites in the crawl history.")
					return nil
				}
				fmt.Fprintf(out, "Crawled websites (%d):\n\n", len(sites))
				for _, site := range sites {
					fmt.Fprintf(out, "  • %s\n", site)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <website>...",
		Short: "Mark websites as crawled",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(ctx context.Context, h *history.History) error {
				out := cmd.OutOrStdout()
				for _, site := range args {
					if h.Contains(site) {
						fmt.Fprintf(out, "already recorded: %s\n", site)
						continue
					}
					if err := h.Add(ctx, site); err != nil {
						return err
					}
					fmt.Fprintf(out, "added: %s\n", site)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check <website>",
		Short: "Report whether a website was crawled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, func(_ context.Context, h *history.History) error {
				state := "not crawled"
				if h.Contains(args[0]) {
					state = "crawled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], state)
				return nil
			})
		},
	})

	return cmd
}

// withHistory loads the configured history and passes it to fn. The
// database is opened only for the sqlite and postgres backends.
func withHistory(cmd *cobra.Command, fn func(ctx context.Context, h *history.History) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	switch cfg.HistoryBackend {
	case config.HistoryBackendJSON, config.HistoryBackendSQLite:
	case config.HistoryBackendPostgres:
		if cfg.PostgresDSN == "" {
			return config.ErrMissingPostgresDSN
		}
	default:
		return config.ErrInvalidHistoryBackend
	}

	logger := newLogger(cfg)
	ctx := cmd.Context()

	var db *database.DB
	if cfg.HistoryBackend != config.HistoryBackendJSON {
		db, err = openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore(db, logger)
	}

	return fn(ctx, history.Load(ctx, historyBackend(cfg, db), history.WithLogger(logger)))
}
