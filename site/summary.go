package site

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"qapages/errors"
)

// Run statuses shown on index pages.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
	StatusRunning = "running"
)

// SuiteSummary is one suite's counts inside a run.
type SuiteSummary struct {
	Name        string  `json:"name"`
	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	Skipped     int     `json:"skipped"`
	SuccessRate float64 `json:"success_rate"`
}

// RunSummary is what a run's index page shows. It is also stored as
// summary.json in the run folder so the root index can show history.
type RunSummary struct {
	Title       string         `json:"title"`
	Status      string         `json:"status"`
	Environment string         `json:"environment"`
	Branch      string         `json:"branch"`
	Commit      string         `json:"commit"`
	StartedAt   time.Time      `json:"started_at"`
	Duration    float64        `json:"duration"`
	Total       int            `json:"total"`
	Passed      int            `json:"passed"`
	Failed      int            `json:"failed"`
	Skipped     int            `json:"skipped"`
	SuccessRate float64        `json:"success_rate"`
	Suites      []SuiteSummary `json:"suites"`
}

// WriteSummary stores summary.json in the run folder.
func WriteSummary(run RunFolder, summary RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode run summary")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(run.Path, SummaryFile), data, 0o644), "write run summary")
}

// ReadSummary loads summary.json. A run without one yields ok=false.
func ReadSummary(run RunFolder) (RunSummary, bool) {
	data, err := os.ReadFile(filepath.Join(run.Path, SummaryFile))
	if err != nil {
		return RunSummary{}, false
	}
	var summary RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return RunSummary{}, false
	}
	return summary, true
}
