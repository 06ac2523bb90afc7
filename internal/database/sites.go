package database

import (
	"context"
	"fmt"
)

// LoadCrawledSites returns every crawled site in insertion order.
func (cdb *DB) LoadCrawledSites(ctx context.Context) ([]string, error) {
	rows, err := cdb.query(ctx, `SELECT site FROM crawled_sites ORDER BY crawled_at, site`)
	if err != nil {
		return nil, fmt.Errorf("failed to load crawled sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan crawled site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// AddCrawledSite records site. Existing sites keep their first timestamp.
func (cdb *DB) AddCrawledSite(ctx context.Context, site string) error {
	_, err := cdb.exec(ctx, `
	INSERT INTO crawled_sites (site, crawled_at)
	VALUES (?, ?)
	ON CONFLICT(site) DO NOTHING
	`, site, now())
	if err != nil {
		return fmt.Errorf("failed to add crawled site: %w", err)
	}
	return nil
}

// HasCrawledSite reports whether site is recorded.
func (cdb *DB) HasCrawledSite(ctx context.Context, site string) (bool, error) {
	var count int
	if err := cdb.queryRow(ctx, `SELECT COUNT(*) FROM crawled_sites WHERE site = ?`, site).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check crawled site: %w", err)
	}
	return count > 0, nil
}
