package report

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SuiteReport summarizes one suite's run.
type SuiteReport struct {
	SuiteName      string   `json:"test_suite_name"`
	Total          int      `json:"total_tests"`
	Passed         int      `json:"passed_tests"`
	Failed         int      `json:"failed_tests"`
	Skipped        int      `json:"skipped_tests"`
	SuccessRate    float64  `json:"success_rate"`
	Duration       float64  `json:"duration"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	FailedDetails  []Result `json:"failed_tests_details"`
	SkippedDetails []Result `json:"skipped_tests_details"`
}

// AllPassed reports whether the suite had no failures.
func (r *SuiteReport) AllPassed() bool {
	return r.Failed == 0
}

// Reporter accumulates results for one suite. Add is safe for concurrent use.
type Reporter struct {
	name   string
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	start   time.Time
	results []Result
}

// NewReporter returns a reporter for the named suite.
func NewReporter(name string, logger zerolog.Logger) *Reporter {
	return &Reporter{name: name, logger: logger, now: time.Now}
}

// Name is the suite name.
func (r *Reporter) Name() string {
	return r.name
}

// Start resets the reporter and records the suite start time.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = r.now()
	r.results = nil
	r.logger.Info().Str("suite", r.name).Msg("starting test suite")
}

// Add records one result, stamping the time of day when missing.
func (r *Reporter) Add(res Result) {
	if res.Timestamp == "" {
		res.Timestamp = r.now().Format(time.TimeOnly)
	}
	if res.Status == StatusSkip && res.SkipReason == "" {
		res.SkipReason = res.ErrorMessage
	}

	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()

	r.logger.Info().
		Str("suite", r.name).
		Str("test", res.TestName).
		Str("status", string(res.Status)).
		Float64("duration", res.Duration).
		Msg("test result added")
}

// Results returns a copy of the recorded results.
func (r *Reporter) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

// End closes the suite and builds its report. A reporter with no results
// still yields a report, with zero totals.
func (r *Reporter) End() *SuiteReport {
	r.mu.Lock()
	start := r.start
	results := append([]Result(nil), r.results...)
	r.mu.Unlock()

	end := r.now()
	if start.IsZero() {
		start = end
	}
	rep := Build(r.name, results, start, end)
	if rep.Total == 0 {
		r.logger.Warn().Str("suite", r.name).Msg("no test results were recorded")
	} else {
		r.logger.Info().Str("suite", r.name).Int("total", rep.Total).Int("passed", rep.Passed).Msg("test suite completed")
	}
	return rep
}

// Build computes a suite report from results.
func Build(name string, results []Result, start, end time.Time) *SuiteReport {
	rep := &SuiteReport{
		SuiteName:      name,
		Total:          len(results),
		Duration:       end.Sub(start).Seconds(),
		StartTime:      start.Format(TimeLayout),
		EndTime:        end.Format(TimeLayout),
		FailedDetails:  []Result{},
		SkippedDetails: []Result{},
	}
	for _, res := range results {
		switch res.Status {
		case StatusPass:
			rep.Passed++
		case StatusFail:
			rep.Failed++
			rep.FailedDetails = append(rep.FailedDetails, res)
		case StatusSkip:
			rep.Skipped++
			rep.SkippedDetails = append(rep.SkippedDetails, res)
		}
	}
	rep.SuccessRate = successRate(rep.Passed, rep.Total)
	return rep
}

func successRate(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(passed) / float64(total) * 100
}
