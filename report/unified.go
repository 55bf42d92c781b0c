package report

import (
	"math"
	"sort"
	"time"
)

// UnifiedReport combines several suite reports of one run.
type UnifiedReport struct {
	SuiteName   string                  `json:"test_suite_name"`
	Total       int                     `json:"total_tests"`
	Passed      int                     `json:"passed_tests"`
	Failed      int                     `json:"failed_tests"`
	Skipped     int                     `json:"skipped_tests"`
	SuccessRate float64                 `json:"success_rate"`
	Duration    float64                 `json:"duration"`
	StartTime   string                  `json:"start_time"`
	EndTime     string                  `json:"end_time"`
	SuitesRun   []string                `json:"suites_run"`
	Suites      map[string]*SuiteReport `json:"suite_details"`
	AllFailed   []Result                `json:"all_failed_tests"`
	AllSkipped  []Result                `json:"all_skipped_tests"`
}

// AllPassed reports whether no suite had failures.
func (u *UnifiedReport) AllPassed() bool {
	return u.Failed == 0
}

// Unify sums suite reports into one. Failed and skipped entries are tagged
// with their suite. It returns nil when there are no suites.
func Unify(name string, suites map[string]*SuiteReport, start, end time.Time) *UnifiedReport {
	if len(suites) == 0 {
		return nil
	}

	names := make([]string, 0, len(suites))
	for n := range suites {
		names = append(names, n)
	}
	sort.Strings(names)

	u := &UnifiedReport{
		SuiteName:  name,
		SuitesRun:  names,
		Suites:     suites,
		Duration:   end.Sub(start).Seconds(),
		StartTime:  start.Format(TimeLayout),
		EndTime:    end.Format(TimeLayout),
		AllFailed:  []Result{},
		AllSkipped: []Result{},
	}
	for _, n := range names {
		rep := suites[n]
		if rep == nil {
			continue
		}
		u.Total += rep.Total
		u.Passed += rep.Passed
		u.Failed += rep.Failed
		u.Skipped += rep.Skipped
		for _, res := range rep.FailedDetails {
			res.Suite = n
			u.AllFailed = append(u.AllFailed, res)
		}
		for _, res := range rep.SkippedDetails {
			res.Suite = n
			u.AllSkipped = append(u.AllSkipped, res)
		}
	}
	u.SuccessRate = math.Round(successRate(u.Passed, u.Total)*10) / 10
	return u
}
