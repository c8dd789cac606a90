package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage is the embedded-database backend: it serves the queue and
// both ledgers from one file, for installs that prefer a database over
// loose text files.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS queue (
			position INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			submitted_on TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bad_urls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			reason TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_url ON results(url)`,
		`CREATE INDEX IF NOT EXISTS idx_bad_urls_url ON bad_urls(url)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- Queue ---

func (s *SQLiteStorage) Load(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM queue ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("load queue: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// Replace rewrites the queue table in one transaction; readers see either
// the old queue or the new one.
func (s *SQLiteStorage) Replace(ctx context.Context, urls []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace queue: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue`); err != nil {
		return fmt.Errorf("replace queue: %w", err)
	}
	for _, url := range urls {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO queue (url) VALUES (?)`, url); err != nil {
			return fmt.Errorf("replace queue: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace queue: %w", err)
	}
	return nil
}

// --- Ledgers ---

func (s *SQLiteStorage) RecordSuccess(ctx context.Context, url string, day time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (url, submitted_on) VALUES (?, ?)`,
		url, day.Format("2006-01-02"),
	)
	if err != nil {
		return fmt.Errorf("record success: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) RecordRejected(ctx context.Context, url, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bad_urls (url, reason, created_at) VALUES (?, ?, ?)`,
		url, reason, time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record bad url: %w", err)
	}
	return nil
}

// --- Stats ---

func (s *SQLiteStorage) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue`).Scan(&stats.Pending); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&stats.Succeeded); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bad_urls`).Scan(&stats.Rejected); err != nil {
		return nil, err
	}

	if total := stats.Succeeded + stats.Rejected; total > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(total) * 100
	}
	return stats, nil
}
