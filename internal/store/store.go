// Package store keeps scraped jobs in a local SQLite database next to the
// CSV artifact. Unlike the CSV, the table is keyed by job URL, so the same
// posting rediscovered on a later page (or a later run) stays a single
// row — output de-duplication lives here, not in the pagination layer.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"handshake-scraper/internal/domain"
	"handshake-scraper/internal/locator"
)

type DB struct {
	pool *sql.DB
}

func Open(path string) (*DB, error) {
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	pool.SetMaxOpenConns(1) // sqlite wants a single writer
	pool.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}

	db := &DB{pool: pool}
	if err := db.migrate(); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) migrate() error {
	_, err := d.pool.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
  url TEXT PRIMARY KEY,
  company_name TEXT NOT NULL DEFAULT '',
  company_sector TEXT NOT NULL DEFAULT '',
  company_headcount TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  posted_at TEXT NOT NULL DEFAULT '',
  duration TEXT NOT NULL DEFAULT '',
  start TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  scraped_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_scraped_at ON jobs(scraped_at DESC);
`)
	return err
}

// Append inserts the record, ignoring URLs already present. Implements
// sink.Sink, so it slots in next to the CSV writer.
func (d *DB) Append(rec domain.JobRecord) error {
	_, err := d.pool.Exec(`
INSERT OR IGNORE INTO jobs
  (url, company_name, company_sector, company_headcount, title, posted_at, duration, start, location, description, scraped_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?);`,
		rec.Link,
		rec.Get(locator.FieldCompanyName),
		rec.Get(locator.FieldCompanySector),
		rec.Get(locator.FieldCompanyHeadcount),
		rec.Get(locator.FieldJobTitle),
		rec.Get(locator.FieldJobPostedAt),
		rec.Get(locator.FieldJobDuration),
		rec.Get(locator.FieldJobStart),
		rec.Get(locator.FieldJobLocation),
		rec.Get(locator.FieldJobDescription),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Finalize closes the database. A run with zero appends is fine here; the
// CSV sink owns the empty-run warning.
func (d *DB) Finalize() error {
	return d.Close()
}

func (d *DB) Close() error {
	if d == nil || d.pool == nil {
		return nil
	}
	return d.pool.Close()
}

// Count reports stored rows; handy for post-run summaries and tests.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	err := d.pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs;`).Scan(&n)
	return n, err
}
