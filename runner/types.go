package runner

import (
	"time"

	"qapages/apicheck"
	"qapages/probe"
	"qapages/report"
	"qapages/site"
)

// Kind selects which environment check guards a suite.
type Kind string

// Suite kinds. Command and UI suites need the frontend; API suites the API.
const (
	KindCommand Kind = "command"
	KindAPI     Kind = "api"
	KindUI      Kind = "ui"
)

// Step is one shell command of a suite.
type Step struct {
	Name string `yaml:"name"`
	Run  string `yaml:"run"`
}

// Schedule triggers a suite at a time of day ("at": "HH:MM") or on an
// interval ("every": "30m", "1h30m").
type Schedule struct {
	At    string `yaml:"at,omitempty" json:"at,omitempty"`
	Every string `yaml:"every,omitempty" json:"every,omitempty"`
}

// Suite is a named group of steps, API checks and page probes.
type Suite struct {
	Name        string `yaml:"name" json:"name"`
	Kind        Kind   `yaml:"kind" json:"kind"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Marker is passed to steps as QAPAGES_MARKER, e.g. for pytest -m.
	Marker       string            `yaml:"marker,omitempty" json:"marker,omitempty"`
	Steps        []Step            `yaml:"steps,omitempty" json:"steps,omitempty"`
	Results      []string          `yaml:"results,omitempty" json:"results,omitempty"`
	Checks       []apicheck.Check  `yaml:"checks,omitempty" json:"-"`
	Pages        []probe.Page      `yaml:"pages,omitempty" json:"-"`
	Schedules    []Schedule        `yaml:"schedules,omitempty" json:"schedules,omitempty"`
	SkipEnvCheck bool              `yaml:"skip_env_check,omitempty" json:"skip_env_check,omitempty"`
	Env          map[string]string `yaml:"env,omitempty" json:"-"`
}

// SuiteResult is the outcome of one suite within a run.
type SuiteResult struct {
	Suite   string              `json:"suite"`
	RunID   int64               `json:"run_id,omitempty"`
	Report  *report.SuiteReport `json:"report"`
	Results []report.Result     `json:"-"`
	Skipped bool                `json:"skipped"`
	Err     error               `json:"-"`
}

// Status is the storage/site status for the suite.
func (r SuiteResult) Status() string {
	switch {
	case r.Skipped:
		return site.StatusSkipped
	case r.Report == nil || !r.Report.AllPassed():
		return site.StatusFailed
	default:
		return site.StatusPassed
	}
}

// RunResult is the outcome of RunSuites.
type RunResult struct {
	Key      string                `json:"key"`
	Folder   site.RunFolder        `json:"run_folder"`
	Suites   []SuiteResult         `json:"suites"`
	Unified  *report.UnifiedReport `json:"unified,omitempty"`
	Status   string                `json:"status"`
	Duration time.Duration         `json:"duration"`
}

// Failed reports whether any suite failed.
func (r *RunResult) Failed() bool {
	return r.Status == site.StatusFailed
}

// RunOptions configures one invocation of RunSuites.
type RunOptions struct {
	// Key groups the stored runs; empty generates one.
	Key          string
	SkipEnvCheck bool
	Notify       bool
	// Trigger is recorded in events ("manual", "api", "scheduled").
	Trigger string
}
