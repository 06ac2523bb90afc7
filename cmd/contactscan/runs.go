package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nao1215/contactscan/internal/database"
	"github.com/nao1215/contactscan/internal/export"
	"github.com/spf13/cobra"
)

// errRunNotFound is returned when a run ID is unknown.
var errRunNotFound = errors.New("run not found")

// NewRunsCmd creates the runs command.
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show stored crawl runs",
		Long: `Runs lists the crawl runs stored in the database, newest first. With a run
ID it prints the businesses and emails of that run.

Examples:
  # List the last 20 runs
  contactscan runs

  # Show one run as Markdown
  contactscan runs 0b6f7c1e-5d0a-4c3e-9f43-8f1d2a7c9e10 --markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRunsCmd,
	}

	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of runs to list (0 for all)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the run as a Markdown report")

	return cmd
}

// runRunsCmd executes the runs command.
func runRunsCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := cmd.Context()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(db, logger)

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		printRuns(out, runs)
		return nil
	}

	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	run, err := db.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w: %s", errRunNotFound, args[0])
	}
	businesses, err := db.GetRunBusinesses(ctx, run.ID)
	if err != nil {
		return err
	}

	report := &export.Report{
		Query:       run.Query,
		GeneratedAt: run.StartedAt,
		Businesses:  businesses,
	}
	if markdownOutput {
		_, err = export.NewMarkdownWriter(out).Write(report)
		return err
	}

	printRunHeader(out, run)
	_, err = export.NewTextWriter(out, export.WithVerbose(true)).Write(report)
	return err
}

func printRuns(out io.Writer, runs []database.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return
	}

	fmt.Fprintf(out, "Crawl runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %-10s  %10s  %6s  %s\n",
		"ID", "Started", "Source", "Businesses", "Emails", "Query")
	for _, run := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %-10s  %10d  %6d  %s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Source,
			run.Businesses,
			run.Emails,
			run.Query,
		)
	}
}

func printRunHeader(out io.Writer, run *database.Run) {
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Query:    %s\n", run.Query)
	fmt.Fprintf(out, "Source:   %s\n", run.Source)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.FinishedAt.IsZero() {
		fmt.Fprintln(out, "Finished: not finished")
	} else {
		fmt.Fprintf(out, "Finished: %s\n", run.FinishedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintln(out)
}
