// Package database stores crawl history, run results and the page fetch
// log in SQLite or PostgreSQL.
//
// SQLite (via modernc.org/sqlite) is the default: a single file in the
// data directory, CGO-free, opened with one connection and WAL journaling.
// PostgreSQL (via github.com/lib/pq) lets several machines share one crawl
// history. Both use the same schema; queries are written with "?"
// placeholders and rebound for PostgreSQL.
//
// Tables:
//   - crawled_sites: normalized websites already crawled
//   - runs: one row per crawl run, identified by a UUID
//   - run_businesses: the records a run produced, in order
//   - page_fetches: every fetch a run made, for auditing
package database
