package main

import (
	"fmt"
	"os"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for contactscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contactscan",
		Short: "Collect business contact emails from company websites",
		Long: `contactscan collects the contact email addresses that businesses publish
on their own websites.

For every business it visits the homepage, follows contact, about and team
links, decodes obfuscated addresses and keeps role mailboxes such as info@
or sales@. Results are exported as JSON, CSV, Markdown or plain text, and
crawled websites are remembered so later runs can skip them.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .contactscan in current or home directory)")
	cmd.PersistentFlags().String("history-backend", config.HistoryBackendJSON,
		"Crawl history storage: json, sqlite or postgres")
	cmd.PersistentFlags().String("postgres-dsn", "",
		"PostgreSQL connection string for the postgres history backend")
	cmd.PersistentFlags().String("data-dir", "",
		"Directory for the database and history file (default: XDG data directory)")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewRunsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
