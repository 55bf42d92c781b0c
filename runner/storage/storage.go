package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Storage keeps run history in SQLite.
type Storage struct {
	db *sql.DB
}

// NewStorage opens (and creates if needed) the database at dbPath.
func NewStorage(dbPath string) (*Storage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Suites of one run finish concurrently; a single connection serializes writes.
	db.SetMaxOpenConns(1)

	storage := &Storage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates the database tables and handles migrations
func (s *Storage) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_key TEXT NOT NULL,
			suite TEXT NOT NULL,
			status TEXT NOT NULL,
			run_folder TEXT NOT NULL DEFAULT '',
			environment TEXT NOT NULL DEFAULT '',
			total INTEGER NOT NULL DEFAULT 0,
			passed INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			duration TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS test_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			test_name TEXT NOT NULL,
			status TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			duration REAL NOT NULL DEFAULT 0,
			screenshot_path TEXT NOT NULL DEFAULT '',
			response_file TEXT NOT NULL DEFAULT '',
			FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_key ON runs(run_key)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_suite ON runs(suite)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_test_results_run_id ON test_results(run_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return s.migrateSchema()
}

// migrateSchema adds columns introduced after the first release. Existing
// columns make ALTER fail, which is expected.
func (s *Storage) migrateSchema() error {
	migrations := []string{
		`ALTER TABLE runs ADD COLUMN branch TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE runs ADD COLUMN commit_sha TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE test_results ADD COLUMN skip_reason TEXT NOT NULL DEFAULT ''`,
	}

	for _, migration := range migrations {
		_, _ = s.db.Exec(migration)
	}

	return nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
