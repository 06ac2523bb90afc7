package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the SQLite database file inside the database directory.
const FileName = "contactscan.db"

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// DB provides storage for crawl history, runs and fetch logs.
type DB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dialect selects placeholder style and schema.
	dialect dialect

	// dbPath is the path to the SQLite database file, empty for PostgreSQL.
	dbPath string
}

// Options configures SQLite behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the SQLite database in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*DB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &DB{db: db, dialect: dialectSQLite, dbPath: dbPath}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := cdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// OpenPostgres connects to PostgreSQL with a lib/pq connection string and
// creates the schema if needed.
func OpenPostgres(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	cdb := &DB{db: db, dialect: dialectPostgres}
	if err := cdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Close closes the database connection.
func (cdb *DB) Close() error {
	return cdb.db.Close()
}

// Path returns the SQLite file path, empty for PostgreSQL.
func (cdb *DB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *DB) createTables(ctx context.Context) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if cdb.dialect == dialectPostgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	schema := `
	CREATE TABLE IF NOT EXISTS crawled_sites (
		site TEXT PRIMARY KEY,
		crawled_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL DEFAULT '',
		businesses INTEGER NOT NULL DEFAULT 0,
		emails INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_businesses (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		ordinal INTEGER NOT NULL,
		name TEXT NOT NULL,
		website TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		emails_json TEXT NOT NULL DEFAULT '[]',
		skipped INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, ordinal)
	);

	CREATE TABLE IF NOT EXISTS page_fetches (
		id ` + idColumn + `,
		run_id TEXT NOT NULL,
		website TEXT NOT NULL,
		url TEXT NOT NULL,
		depth TEXT NOT NULL,
		status TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		content_type TEXT NOT NULL DEFAULT '',
		contact_only INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		fetched_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fetches_run ON page_fetches(run_id);
	CREATE INDEX IF NOT EXISTS idx_fetches_website ON page_fetches(website);
	`

	_, err := cdb.db.ExecContext(ctx, schema)
	return err
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (cdb *DB) rebind(query string) string {
	if cdb.dialect != dialectPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (cdb *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return cdb.db.ExecContext(ctx, cdb.rebind(query), args...)
}

func (cdb *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return cdb.db.QueryContext(ctx, cdb.rebind(query), args...)
}

func (cdb *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return cdb.db.QueryRowContext(ctx, cdb.rebind(query), args...)
}

// now returns the storage form of the current time.
func now() string {
	return formatTimestamp(time.Now())
}

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
