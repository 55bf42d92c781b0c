package storage

import (
	"database/sql"
	"fmt"
	"math"
	"time"
)

// SuiteRunStats is one recent run of a suite, as listed per suite.
type SuiteRunStats struct {
	Suite     string  `json:"suite"`
	RunID     int64   `json:"run_id"`
	Key       string  `json:"key"`
	Status    string  `json:"status"`
	RunFolder string  `json:"run_folder"`
	Total     int     `json:"total"`
	Failed    int     `json:"failed"`
	Duration  *string `json:"duration,omitempty"`
	StartedAt string  `json:"started_at"`
}

// SuiteStats aggregates the recent history of one suite.
type SuiteStats struct {
	Suite      string     `json:"suite"`
	Runs       int        `json:"runs"`
	PassedRuns int        `json:"passed_runs"`
	FailedRuns int        `json:"failed_runs"`
	PassRate   float64    `json:"pass_rate"`
	AvgTests   float64    `json:"avg_tests"`
	LastStatus string     `json:"last_status,omitempty"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	Recent     []*Run     `json:"recent"`
}

// GetSuiteStats aggregates the last limit finished runs of suite.
func (s *Storage) GetSuiteStats(suite string, limit int) (*SuiteStats, error) {
	rows, err := s.db.Query(
		"SELECT "+runColumns+" FROM runs WHERE suite = ? AND status != ? ORDER BY started_at DESC, id DESC LIMIT ?",
		suite, StatusRunning, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query suite runs: %w", err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}

	stats := &SuiteStats{Suite: suite, Runs: len(runs), Recent: runs}
	tests := 0
	for _, r := range runs {
		switch r.Status {
		case StatusPassed:
			stats.PassedRuns++
		case StatusFailed:
			stats.FailedRuns++
		}
		tests += r.Total
	}
	if len(runs) > 0 {
		stats.LastStatus = runs[0].Status
		started := runs[0].StartedAt
		stats.LastRunAt = &started
		stats.PassRate = math.Round(float64(stats.PassedRuns)/float64(len(runs))*1000) / 10
		stats.AvgTests = float64(tests) / float64(len(runs))
	}
	return stats, nil
}

// GetLatestRunsBySuite returns up to limit most recent runs for every suite,
// grouped by suite name.
func (s *Storage) GetLatestRunsBySuite(limit int) ([]SuiteRunStats, error) {
	query := `
		SELECT suite, id, run_key, status, run_folder, total, failed, duration, started_at
		FROM runs
		ORDER BY suite, started_at DESC, id DESC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest runs: %w", err)
	}
	defer rows.Close()

	// Limit runs per suite
	counts := make(map[string]int)
	stats := make([]SuiteRunStats, 0)

	for rows.Next() {
		var stat SuiteRunStats
		var duration sql.NullString
		var startedAt time.Time

		err := rows.Scan(&stat.Suite, &stat.RunID, &stat.Key, &stat.Status, &stat.RunFolder,
			&stat.Total, &stat.Failed, &duration, &startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run stats: %w", err)
		}

		if counts[stat.Suite] >= limit {
			continue
		}
		counts[stat.Suite]++

		if duration.Valid {
			durationStr := duration.String
			stat.Duration = &durationStr
		}
		stat.StartedAt = startedAt.Format(time.RFC3339)

		stats = append(stats, stat)
	}

	return stats, rows.Err()
}

// Suites returns the distinct suite names with stored runs.
func (s *Storage) Suites() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT suite FROM runs ORDER BY suite")
	if err != nil {
		return nil, fmt.Errorf("failed to query suites: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan suite: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
