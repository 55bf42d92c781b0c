package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"qapages/errors"
)

const runColumns = `id, run_key, suite, status, run_folder, environment, branch, commit_sha,
	total, passed, failed, skipped, started_at, finished_at, duration`

// NewKey returns a fresh run key.
func NewKey() string {
	return uuid.NewString()
}

// CreateRun inserts a running run. An empty Key gets a new one.
func (s *Storage) CreateRun(meta RunMeta) (*Run, error) {
	if meta.Key == "" {
		meta.Key = NewKey()
	}
	now := time.Now()
	result, err := s.db.Exec(
		`INSERT INTO runs (run_key, suite, status, run_folder, environment, branch, commit_sha, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.Key, meta.Suite, StatusRunning, meta.RunFolder, meta.Environment, meta.Branch, meta.Commit, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get run ID: %w", err)
	}

	return &Run{
		ID:          id,
		Key:         meta.Key,
		Suite:       meta.Suite,
		Status:      StatusRunning,
		RunFolder:   meta.RunFolder,
		Environment: meta.Environment,
		Branch:      meta.Branch,
		Commit:      meta.Commit,
		StartedAt:   now,
	}, nil
}

// FinishRun records the final status, counts and duration of a run.
func (s *Storage) FinishRun(runID int64, status string, totals Totals, duration time.Duration) error {
	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, total = ?, passed = ?, failed = ?, skipped = ?, finished_at = ?, duration = ?
		WHERE id = ?`,
		status, totals.Total, totals.Passed, totals.Failed, totals.Skipped, time.Now(), duration.String(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: id %d", errors.ErrRunNotFound, runID)
	}
	return nil
}

// GetRuns retrieves runs, most recent first
func (s *Storage) GetRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// GetRun retrieves a single run by ID
func (s *Storage) GetRun(runID int64) (*Run, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", runID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", errors.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// GetRunsByKey retrieves the suite runs started together under key.
func (s *Storage) GetRunsByKey(key string) ([]*Run, error) {
	rows, err := s.db.Query("SELECT "+runColumns+" FROM runs WHERE run_key = ? ORDER BY id ASC", key)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: key %s", errors.ErrRunNotFound, key)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var finishedAt sql.NullTime
	var duration sql.NullString

	err := row.Scan(&r.ID, &r.Key, &r.Suite, &r.Status, &r.RunFolder, &r.Environment, &r.Branch, &r.Commit,
		&r.Total, &r.Passed, &r.Failed, &r.Skipped, &r.StartedAt, &finishedAt, &duration)
	if err != nil {
		return nil, err
	}

	if finishedAt.Valid {
		r.FinishedAt = &finishedAt.Time
	}
	if duration.Valid {
		durationStr := duration.String
		r.Duration = &durationStr
	}
	return &r, nil
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	runs := make([]*Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
