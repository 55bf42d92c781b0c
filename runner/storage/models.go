package storage

import "time"

// Run statuses.
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Run is one suite execution. Suites started together share a Key.
type Run struct {
	ID          int64      `json:"id"`
	Key         string     `json:"key"`
	Suite       string     `json:"suite"`
	Status      string     `json:"status"`
	RunFolder   string     `json:"run_folder"`
	Environment string     `json:"environment"`
	Branch      string     `json:"branch"`
	Commit      string     `json:"commit"`
	Total       int        `json:"total"`
	Passed      int        `json:"passed"`
	Failed      int        `json:"failed"`
	Skipped     int        `json:"skipped"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Duration    *string    `json:"duration,omitempty"`
}

// RunMeta describes a run when it is created.
type RunMeta struct {
	Key         string
	Suite       string
	RunFolder   string
	Environment string
	Branch      string
	Commit      string
}

// Totals are the final counts of a run.
type Totals struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// TestResult is one stored test outcome.
type TestResult struct {
	ID             int64   `json:"id"`
	RunID          int64   `json:"run_id"`
	TestName       string  `json:"test_name"`
	Status         string  `json:"status"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	SkipReason     string  `json:"skip_reason,omitempty"`
	Duration       float64 `json:"duration"`
	ScreenshotPath string  `json:"screenshot_path,omitempty"`
	ResponseFile   string  `json:"response_file,omitempty"`
}
