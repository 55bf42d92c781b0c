package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qapages/apicheck"
	"qapages/config"
	"qapages/errors"
	"qapages/events"
	"qapages/health"
	"qapages/report"
	"qapages/runner/storage"
	"qapages/site"
)

const junitXML = `<?xml version="1.0" encoding="utf-8"?>
<testsuites>
  <testsuite name="smoke" tests="2">
    <testcase classname="tests.test_home" name="test_loads" time="0.5"/>
    <testcase classname="tests.test_home" name="test_search" time="1.2">
      <failure message="AssertionError: no results">trace</failure>
    </testcase>
  </testsuite>
</testsuites>
`

type fakeEnv struct {
	down bool
	mu   sync.Mutex
	ui   []bool
}

func (f *fakeEnv) Require(_ context.Context, ui bool, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ui = append(f.ui, ui)
	if f.down {
		return errors.ErrEnvUnreachable
	}
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Broadcast(eventType string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

var _ events.Publisher = (*recorder)(nil)

func newTestRunner(t *testing.T, apiURL string) (*Runner, *fakeEnv) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junit.xml"), []byte(junitXML), 0o644))

	st, err := storage.NewStorage(filepath.Join(dir, "data", "qapages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := &config.Config{
		Env:         "qa",
		Site:        config.SiteConfig{Root: filepath.Join(dir, "site"), KeepRuns: 5},
		Health:      config.HealthConfig{Endpoint: "/api/auth/login"},
		Runner:      config.RunnerConfig{Parallelism: 2},
		ProjectName: "qapages",
	}
	env := &fakeEnv{}
	return &Runner{
		Config:  cfg,
		Env:     health.Environment{Name: "qa", BaseURL: apiURL, APIBaseURL: apiURL},
		Suites:  &SuitesFile{Dir: dir},
		Site:    site.New(cfg.Site.Root, ""),
		Storage: st,
		Events:  &recorder{},
		Health:  env,
		Logger:  zerolog.Nop(),
	}, env
}

func newRun(t *testing.T, r *Runner) site.RunFolder {
	t.Helper()
	run, err := r.Site.CreateRun(r.clock())
	require.NoError(t, err)
	return run
}

func TestExecuteCommandSuite(t *testing.T) {
	t.Parallel()

	r, _ := newTestRunner(t, "http://127.0.0.1:1")
	run := newRun(t, r)
	suite := Suite{
		Name: "smoke",
		Kind: KindCommand,
		Steps: []Step{
			{Name: "collect", Run: `cp junit.xml "$QAPAGES_REPORTS_DIR/smoke.xml" && echo "marker=$QAPAGES_MARKER"`},
		},
		Marker:  "smoke",
		Results: []string{"$QAPAGES_REPORTS_DIR/*.xml"},
	}

	res := r.Execute(context.Background(), suite, run, RunOptions{}, r.Logger)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Report)
	assert.Equal(t, 2, res.Report.Total)
	assert.Equal(t, 1, res.Report.Passed)
	assert.Equal(t, 1, res.Report.Failed)
	assert.Equal(t, "tests.test_home::test_search", res.Report.FailedDetails[0].TestName)
	assert.Equal(t, site.StatusFailed, res.Status())

	out, err := os.ReadFile(filepath.Join(run.Dir(site.DirLogs), "smoke_collect.log"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "marker=smoke")
}

func TestExecuteStopsAtFailingStep(t *testing.T) {
	t.Parallel()

	r, _ := newTestRunner(t, "http://127.0.0.1:1")
	run := newRun(t, r)
	suite := Suite{
		Name: "regression",
		Steps: []Step{
			{Name: "boom", Run: "exit 3"},
			{Name: "after", Run: `touch "$QAPAGES_RUN_DIR/after"`},
		},
	}

	res := r.Execute(context.Background(), suite, run, RunOptions{}, r.Logger)
	assert.ErrorIs(t, res.Err, errors.ErrStepFailed)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "regression suite execution", res.Results[0].TestName)
	assert.Equal(t, report.StatusFail, res.Results[0].Status)
	assert.Contains(t, res.Results[0].ErrorMessage, "Suite execution failed")
	assert.NoFileExists(t, filepath.Join(run.Path, "after"))
}

func TestExecuteFailingStepWithResults(t *testing.T) {
	t.Parallel()

	r, _ := newTestRunner(t, "http://127.0.0.1:1")
	run := newRun(t, r)
	suite := Suite{
		Name:    "smoke",
		Steps:   []Step{{Name: "pytest", Run: `cp junit.xml "$QAPAGES_REPORTS_DIR/smoke.xml"; exit 1`}},
		Results: []string{"$QAPAGES_REPORTS_DIR/smoke.xml"},
	}

	res := r.Execute(context.Background(), suite, run, RunOptions{}, r.Logger)
	require.Error(t, res.Err)
	assert.Len(t, res.Results, 2, "the ingested failure explains the exit code")
}

func TestExecuteSkipsWhenEnvironmentDown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind   Kind
		name   string
		msg    string
		wantUI bool
	}{
		{KindCommand, "Environment Check", "UI environment is not accessible", true},
		{KindUI, "Environment Check", "UI environment is not accessible", true},
		{KindAPI, "API Environment Check", "API environment is not accessible", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()

			r, env := newTestRunner(t, "http://127.0.0.1:1")
			env.down = true
			run := newRun(t, r)
			suite := Suite{Name: "s", Kind: tt.kind, Steps: []Step{{Name: "never", Run: `touch "$QAPAGES_RUN_DIR/ran"`}}}

			res := r.Execute(context.Background(), suite, run, RunOptions{}, r.Logger)
			assert.True(t, res.Skipped)
			assert.ErrorIs(t, res.Err, errors.ErrEnvUnreachable)
			require.Len(t, res.Results, 1)
			assert.Equal(t, tt.name, res.Results[0].TestName)
			assert.Equal(t, report.StatusSkip, res.Results[0].Status)
			assert.Equal(t, tt.msg, res.Results[0].SkipReason)
			assert.Equal(t, []bool{tt.wantUI}, env.ui)
			assert.Equal(t, site.StatusSkipped, res.Status())
			assert.NoFileExists(t, filepath.Join(run.Path, "ran"))
		})
	}
}

func TestExecuteSkipEnvCheck(t *testing.T) {
	t.Parallel()

	r, env := newTestRunner(t, "http://127.0.0.1:1")
	env.down = true
	run := newRun(t, r)

	res := r.Execute(context.Background(), Suite{Name: "s"}, run, RunOptions{SkipEnvCheck: true}, r.Logger)
	assert.False(t, res.Skipped)
	assert.Empty(t, env.ui)

	res = r.Execute(context.Background(), Suite{Name: "s", SkipEnvCheck: true}, run, RunOptions{}, r.Logger)
	assert.False(t, res.Skipped)
	assert.Empty(t, env.ui)
}

func TestExecuteAPIChecks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/api/package/all":
			_, _ = w.Write([]byte(`{"packages":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"missing"}`))
		}
	}))
	t.Cleanup(srv.Close)

	r, _ := newTestRunner(t, srv.URL)
	run := newRun(t, r)
	suite := Suite{Name: "api", Kind: KindAPI, Checks: []apicheck.Check{
		{Name: "packages", Path: "/api/package/all", ExpectContains: "packages"},
		{Name: "visa", Path: "/api/visa/create"},
	}}

	res := r.Execute(context.Background(), suite, run, RunOptions{}, r.Logger)
	require.Len(t, res.Results, 2)
	assert.Equal(t, report.StatusPass, res.Results[0].Status)
	assert.Equal(t, report.StatusFail, res.Results[1].Status)
	require.NotEmpty(t, res.Results[1].ResponseFile)
	assert.FileExists(t, filepath.Join(run.Path, filepath.FromSlash(res.Results[1].ResponseFile)))
}

func TestRunSuites(t *testing.T) {
	t.Parallel()

	r, _ := newTestRunner(t, "http://127.0.0.1:1")
	rec := r.Events.(*recorder)
	suites := []Suite{
		{Name: "smoke", Steps: []Step{{Name: "ok", Run: "true"}}},
		{Name: "regression", Steps: []Step{{Name: "bad", Run: "false"}}},
	}

	res, err := r.RunSuites(context.Background(), suites, RunOptions{Trigger: "manual"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Key)
	assert.Equal(t, site.StatusFailed, res.Status)
	assert.True(t, res.Failed())
	require.Len(t, res.Suites, 2)
	require.NotNil(t, res.Unified)
	assert.Equal(t, "Combined REGRESSION, SMOKE Tests", res.Unified.SuiteName)
	assert.Equal(t, 1, res.Unified.Failed)

	reports := res.Folder.Dir(site.DirReports)
	assert.FileExists(t, filepath.Join(reports, "smoke_report.json"))
	assert.FileExists(t, filepath.Join(reports, "regression_report.html"))
	assert.FileExists(t, filepath.Join(reports, report.UnifiedBaseName+".json"))
	assert.FileExists(t, filepath.Join(res.Folder.Dir(site.DirLogs), RunLogFile))
	assert.FileExists(t, filepath.Join(res.Folder.Path, site.IndexFile))
	assert.FileExists(t, filepath.Join(r.Config.Site.Root, site.IndexFile))

	summary, ok := site.ReadSummary(res.Folder)
	require.True(t, ok)
	assert.Equal(t, site.StatusFailed, summary.Status)
	assert.Len(t, summary.Suites, 2)

	stored, err := r.Storage.GetRunsByKey(res.Key)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, run := range stored {
		assert.Equal(t, res.Folder.Name, run.RunFolder)
		assert.NotEqual(t, storage.StatusRunning, run.Status)
	}

	got := rec.types()
	require.NotEmpty(t, got)
	assert.Equal(t, events.RunStarted, got[0])
	assert.Equal(t, events.RunFinished, got[len(got)-1])
	assert.Contains(t, got, events.SuiteFinished)
	assert.Contains(t, got, events.SiteUpdated)
}

// keyWatcher snapshots the storage rows of a key when the first suite finishes.
type keyWatcher struct {
	store *storage.Storage
	mu    sync.Mutex
	seen  map[string]string
}

func (k *keyWatcher) Broadcast(eventType string, data any) {
	if eventType != events.SuiteFinished {
		return
	}
	fields := data.(map[string]any)
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.seen != nil {
		return
	}
	runs, err := k.store.GetRunsByKey(fields["key"].(string))
	if err != nil {
		return
	}
	k.seen = make(map[string]string, len(runs))
	for _, run := range runs {
		k.seen[run.Suite] = run.Status
	}
}

func TestRunSuitesRecordsPendingSuites(t *testing.T) {
	t.Parallel()

	r, _ := newTestRunner(t, "http://127.0.0.1:1")
	r.Config.Runner.Parallelism = 1
	watcher := &keyWatcher{store: r.Storage}
	r.Events = watcher

	suites := []Suite{
		{Name: "first", Steps: []Step{{Name: "ok", Run: "true"}}},
		{Name: "second", Steps: []Step{{Name: "bad", Run: "false"}}},
	}
	res, err := r.RunSuites(context.Background(), suites, RunOptions{Key: "pending-key"})
	require.NoError(t, err)
	assert.Equal(t, site.StatusFailed, res.Status)

	watcher.mu.Lock()
	defer watcher.mu.Unlock()
	assert.Equal(t, map[string]string{
		"first":  storage.StatusPassed,
		"second": storage.StatusRunning,
	}, watcher.seen)
}

func TestRunSuitesSingleSuite(t *testing.T) {
	t.Parallel()

	r, _ := newTestRunner(t, "http://127.0.0.1:1")
	res, err := r.RunSuites(context.Background(), []Suite{{Name: "sanity", Steps: []Step{{Name: "ok", Run: "true"}}}}, RunOptions{Key: "fixed-key"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-key", res.Key)
	assert.Nil(t, res.Unified)
	assert.Equal(t, site.StatusPassed, res.Status)
	assert.NoFileExists(t, filepath.Join(res.Folder.Dir(site.DirReports), report.UnifiedBaseName+".json"))
}

func TestRunSuitesRequiresSuites(t *testing.T) {
	t.Parallel()

	r, _ := newTestRunner(t, "http://127.0.0.1:1")
	_, err := r.RunSuites(context.Background(), nil, RunOptions{})
	assert.ErrorIs(t, err, errors.ErrSuiteNotFound)
}

func TestRunStatus(t *testing.T) {
	t.Parallel()

	passed := SuiteResult{Report: &report.SuiteReport{Total: 1, Passed: 1}}
	failed := SuiteResult{Report: &report.SuiteReport{Total: 1, Failed: 1}}
	skipped := SuiteResult{Skipped: true, Report: &report.SuiteReport{Total: 1, Skipped: 1}}

	assert.Equal(t, site.StatusPassed, runStatus([]SuiteResult{passed, skipped}))
	assert.Equal(t, site.StatusFailed, runStatus([]SuiteResult{passed, failed}))
	assert.Equal(t, site.StatusSkipped, runStatus([]SuiteResult{skipped, skipped}))
}
