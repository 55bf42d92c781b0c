package site

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qapages/errors"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation(time.DateTime, s, time.Local)
	require.NoError(t, err)
	return ts
}

func TestRunName(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 7, 9, 4, 5, 999, time.Local)
	assert.Equal(t, "2025-03-07_09-04-05", RunName(ts))

	parsed, err := ParseRunName("2025-03-07_09-04-05")
	require.NoError(t, err)
	assert.True(t, ts.Truncate(time.Second).Equal(parsed))
}

func TestParseRunNameRejects(t *testing.T) {
	t.Parallel()

	for _, name := range []string{
		"", "latest", "2025-03-07", "2025-03-07 09:04:05", "2025-3-7_9-4-5",
		"2025-13-07_09-04-05", "2025-03-07_09-04-05-extra", "index.html",
	} {
		_, err := ParseRunName(name)
		assert.ErrorIs(t, err, errors.ErrInvalidRunName, name)
	}
}

func TestCreateRunLayout(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "site"), "")
	run, err := s.CreateRun(at(t, "2025-01-02 03:04:05"))
	require.NoError(t, err)

	assert.Equal(t, "2025-01-02_03-04-05", run.Name)
	for _, sub := range []string{"api_failed_responses", "logs", "reports", "screenshots"} {
		info, err := os.Stat(filepath.Join(run.Path, sub))
		require.NoError(t, err, sub)
		assert.True(t, info.IsDir())
	}
}

func TestCreateRunCollisionAdvances(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir(), "")
	ts := at(t, "2025-01-02 03:04:05")

	first, err := s.CreateRun(ts)
	require.NoError(t, err)
	second, err := s.CreateRun(ts)
	require.NoError(t, err)

	assert.Equal(t, "2025-01-02_03-04-05", first.Name)
	assert.Equal(t, "2025-01-02_03-04-06", second.Name)
}

func TestCreateRunRemovesPartialFolder(t *testing.T) {
	orig := mkdirAll
	t.Cleanup(func() { mkdirAll = orig })
	mkdirAll = func(path string, perm os.FileMode) error {
		if filepath.Base(path) == DirScreenshots {
			return os.ErrPermission
		}
		return orig(path, perm)
	}

	s := New(t.TempDir(), "")
	_, err := s.CreateRun(at(t, "2025-01-02 03:04:05"))
	require.ErrorIs(t, err, os.ErrPermission)

	runs, err := s.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoDirExists(t, filepath.Join(s.Root, "2025-01-02_03-04-05"))
}

func TestListRunsNewestFirstIgnoresOthers(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := New(root, "")
	for _, ts := range []string{"2025-01-02 03:04:05", "2024-12-31 23:59:59", "2025-01-02 10:00:00"} {
		_, err := s.CreateRun(at(t, ts))
		require.NoError(t, err)
	}
	require.NoError(t, os.Mkdir(filepath.Join(root, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("x"), 0o644))

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "2025-01-02_10-00-00", runs[0].Name)
	assert.Equal(t, "2025-01-02_03-04-05", runs[1].Name)
	assert.Equal(t, "2024-12-31_23-59-59", runs[2].Name)

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, runs[0], latest)
}

func TestListRunsMissingRoot(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "nope"), "")
	runs, err := s.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = s.Latest()
	assert.ErrorIs(t, err, errors.ErrRunNotFound)
}

func TestRunLookup(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir(), "")
	created, err := s.CreateRun(at(t, "2025-05-05 05:05:05"))
	require.NoError(t, err)

	found, err := s.Run(created.Name)
	require.NoError(t, err)
	assert.Equal(t, created.Path, found.Path)

	_, err = s.Run("2025-05-05_05-05-06")
	require.ErrorIs(t, err, errors.ErrRunNotFound)
	_, err = s.Run("../etc")
	require.ErrorIs(t, err, errors.ErrInvalidRunName)
}

func TestWriteIndexes(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := New(root, "Nightly QA")

	require.NoError(t, s.WriteRootIndex())
	data, err := os.ReadFile(filepath.Join(root, IndexFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "No runs published yet")

	older, err := s.CreateRun(at(t, "2025-01-01 00:00:00"))
	require.NoError(t, err)
	newer, err := s.CreateRun(at(t, "2025-01-02 00:00:00"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(newer.Dir(DirReports), "smoke_report.json"), []byte("{}"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(newer.Dir(DirScreenshots), "failures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(newer.Dir(DirScreenshots), "failures", "home.png"), []byte("png"), 0o644))

	summary := &RunSummary{
		Title: "Smoke Tests", Status: StatusFailed, Environment: "QA",
		Total: 3, Passed: 2, Failed: 1, SuccessRate: 66.7,
		Suites: []SuiteSummary{{Name: "smoke", Total: 3, Passed: 2, Failed: 1, SuccessRate: 66.7}},
	}
	require.NoError(t, s.WriteRunIndex(newer, summary))
	require.NoError(t, s.WriteRunIndex(older, nil))
	require.NoError(t, s.WriteRootIndex())

	runIndex, err := os.ReadFile(filepath.Join(newer.Path, IndexFile))
	require.NoError(t, err)
	assert.Contains(t, string(runIndex), `href="reports/smoke_report.json"`)
	assert.Contains(t, string(runIndex), `href="screenshots/failures/home.png"`)
	assert.Contains(t, string(runIndex), "Smoke Tests")

	rootIndex, err := os.ReadFile(filepath.Join(root, IndexFile))
	require.NoError(t, err)
	assert.Contains(t, string(rootIndex), `id="latest" href="./2025-01-02_00-00-00/index.html"`)
	assert.Contains(t, string(rootIndex), "./2025-01-01_00-00-00/index.html")
	assert.Contains(t, string(rootIndex), "Nightly QA")

	_, err = os.Stat(filepath.Join(root, NoJekyllFile))
	require.NoError(t, err)

	stored, ok := ReadSummary(newer)
	require.True(t, ok)
	assert.Equal(t, 1, stored.Failed)
}

func TestRebuild(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir(), "")
	run, err := s.CreateRun(at(t, "2025-02-02 02:02:02"))
	require.NoError(t, err)

	require.NoError(t, s.Rebuild())
	_, err = os.Stat(filepath.Join(run.Path, IndexFile))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(s.Root, IndexFile))
	require.NoError(t, err)
}

func TestImport(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "logs", "run.log"), []byte("log"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "api_failed_responses"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "api_failed_responses", "dump.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "junit.xml"), []byte("<testsuites/>"), 0o644))

	s := New(t.TempDir(), "")
	run, err := s.CreateRun(at(t, "2025-02-02 02:02:02"))
	require.NoError(t, err)

	n, err := s.Import(run, src)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	artifacts, err := s.Artifacts(run)
	require.NoError(t, err)
	var paths []string
	for _, a := range artifacts {
		paths = append(paths, a.Path)
	}
	assert.Equal(t, []string{"api_failed_responses/dump.json", "logs/run.log", "reports/junit.xml"}, paths)
}

func TestPrune(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir(), "")
	for _, ts := range []string{"2025-01-01 00:00:00", "2025-01-02 00:00:00", "2025-01-03 00:00:00", "2025-01-04 00:00:00"} {
		_, err := s.CreateRun(at(t, ts))
		require.NoError(t, err)
	}

	removed, err := s.Prune(2, 0, at(t, "2025-01-05 00:00:00"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-02_00-00-00", "2025-01-01_00-00-00"}, removed)

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestPruneByAgeKeepsNewest(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir(), "")
	for _, ts := range []string{"2025-01-01 00:00:00", "2025-01-02 00:00:00"} {
		_, err := s.CreateRun(at(t, ts))
		require.NoError(t, err)
	}

	removed, err := s.Prune(10, 24*time.Hour, at(t, "2025-06-01 00:00:00"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-01_00-00-00"}, removed)

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02_00-00-00", latest.Name)
}

func TestWatch(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir(), "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seen := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, zerolog.Nop(), func(name string) { seen <- name })
	}()

	// The watcher registers asynchronously; retry creation until it is observed.
	deadline := time.After(5 * time.Second)
	ts := at(t, "2025-01-01 00:00:00")
	for {
		run, err := s.CreateRun(ts)
		require.NoError(t, err)
		select {
		case name := <-seen:
			assert.True(t, strings.HasPrefix(name, "2025-01-01_00-0"))
			cancel()
			require.NoError(t, <-done)
			return
		case <-time.After(100 * time.Millisecond):
			ts = run.Time.Add(time.Second)
		case <-deadline:
			t.Fatal("watcher never reported a run folder")
		}
	}
}
