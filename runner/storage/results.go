package storage

import (
	"fmt"

	"qapages/report"
)

// AddResults stores the test results of a run in one transaction.
func (s *Storage) AddResults(runID int64, results []report.Result) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(
		`INSERT INTO test_results (run_id, test_name, status, error_message, skip_reason, duration, screenshot_path, response_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare test result insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.Exec(runID, r.TestName, string(r.Status), r.ErrorMessage, r.SkipReason, r.Duration, r.ScreenshotPath, r.ResponseFile); err != nil {
			return fmt.Errorf("failed to insert test result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit test results: %w", err)
	}
	return nil
}

// GetResults retrieves all test results for a run
func (s *Storage) GetResults(runID int64) ([]*TestResult, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, test_name, status, error_message, skip_reason, duration, screenshot_path, response_file
		FROM test_results WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query test results: %w", err)
	}
	defer rows.Close()

	results := make([]*TestResult, 0)
	for rows.Next() {
		var r TestResult
		err := rows.Scan(&r.ID, &r.RunID, &r.TestName, &r.Status, &r.ErrorMessage, &r.SkipReason, &r.Duration, &r.ScreenshotPath, &r.ResponseFile)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test result: %w", err)
		}
		results = append(results, &r)
	}

	return results, rows.Err()
}
