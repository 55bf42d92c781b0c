// Package report collects test results per suite and turns them into
// suite and unified reports, written as JSON and HTML into a run's reports/.
package report

// Status is a test outcome.
type Status string

// Test outcomes.
const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusSkip Status = "SKIP"
)

// TimeLayout is used for report start and end times.
const TimeLayout = "2006-01-02 15:04:05"

// Result is one test's outcome.
type Result struct {
	TestName       string  `json:"test_name"`
	Status         Status  `json:"status"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	ScreenshotPath string  `json:"screenshot_path,omitempty"`
	ResponseFile   string  `json:"response_file,omitempty"`
	Duration       float64 `json:"duration"`
	Timestamp      string  `json:"timestamp"`
	SkipReason     string  `json:"skip_reason,omitempty"`
	// Suite is filled in when results from several suites are combined.
	Suite string `json:"suite,omitempty"`
}
