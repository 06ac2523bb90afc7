package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/database"
	"github.com/nao1215/contactscan/internal/history"
	"github.com/nao1215/contactscan/internal/log"
	"github.com/spf13/cobra"
)

// loadConfig builds the configuration shared by every subcommand from
// defaults, .env, the configuration file, CONTACTSCAN_* variables and the
// global flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently keep the defaults.
	cfg.ConfigFilePath = getString(cmd, "config")
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.Verbose = getBool(cmd, "verbose")
	cfg.LogJSON = getBool(cmd, "log-json")
	if flagChanged(cmd, "history-backend") {
		cfg.HistoryBackend = strings.ToLower(getString(cmd, "history-backend"))
	}
	if flagChanged(cmd, "postgres-dsn") {
		cfg.PostgresDSN = getString(cmd, "postgres-dsn")
	}
	if flagChanged(cmd, "data-dir") {
		dir := getString(cmd, "data-dir")
		cfg.DBDir = dir
		cfg.HistoryFile = filepath.Join(dir, config.DefaultHistoryFile)
	}

	return cfg, nil
}

// getBool retrieves a bool flag from the command or the root's persistent
// flags.
func getBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// getString retrieves a string flag from the command or the root's
// persistent flags.
func getString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}

func flagChanged(cmd *cobra.Command, name string) bool {
	return cmd.Flags().Changed(name) || cmd.Root().PersistentFlags().Changed(name)
}

// newLogger creates the process logger and installs it as the default.
func newLogger(cfg *config.Config) *slog.Logger {
	logger := log.NewLogger(os.Stderr, cfg.Verbose, cfg.LogJSON)
	slog.SetDefault(logger)
	return logger
}

// openStore opens the run database: PostgreSQL for the postgres backend,
// SQLite in the data directory otherwise.
func openStore(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	if cfg.HistoryBackend == config.HistoryBackendPostgres {
		db, err := database.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db, nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// historyBackend returns the JSON history file for the json backend and
// the run database otherwise.
func historyBackend(cfg *config.Config, db *database.DB) history.Backend {
	if cfg.HistoryBackend == config.HistoryBackendJSON || db == nil {
		return history.NewFileBackend(cfg.HistoryFile)
	}
	return db
}

func closeStore(db *database.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("failed to close database", "error", err)
	}
}
