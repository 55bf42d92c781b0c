// Package site manages the published QA site: a root directory holding one
// folder per run, named YYYY-MM-DD_HH-MM-SS, each with index.html and the
// api_failed_responses/, logs/, reports/ and screenshots/ subdirectories,
// plus a root index.html pointing at the latest run.
package site

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"qapages/errors"
)

// RunNameLayout is the Go time layout of a run folder name.
const RunNameLayout = "2006-01-02_15-04-05"

// Fixed names inside the site.
const (
	IndexFile      = "index.html"
	SummaryFile    = "summary.json"
	NoJekyllFile   = ".nojekyll"
	DirAPIFailures = "api_failed_responses"
	DirLogs        = "logs"
	DirReports     = "reports"
	DirScreenshots = "screenshots"
)

// ArtifactDirs lists the per-run artifact subdirectories in display order.
var ArtifactDirs = []string{DirReports, DirLogs, DirScreenshots, DirAPIFailures} //nolint:gochecknoglobals

// mkdirAll creates artifact subdirectories; tests replace it to simulate failures.
var mkdirAll = os.MkdirAll //nolint:gochecknoglobals

// maxNameProbes bounds how far CreateRun walks forward looking for a free name.
const maxNameProbes = 120

// RunFolder is one published run directory.
type RunFolder struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Time time.Time `json:"time"`
}

// Dir returns the path of one of the run's artifact subdirectories.
func (r RunFolder) Dir(sub string) string {
	return filepath.Join(r.Path, sub)
}

// Site is a published site root.
type Site struct {
	Root  string
	Title string
}

// New returns a Site rooted at root.
func New(root, title string) *Site {
	if title == "" {
		title = "QA Test Runs"
	}
	return &Site{Root: root, Title: title}
}

// RunName formats t as a run folder name in t's own location.
func RunName(t time.Time) string {
	return t.Format(RunNameLayout)
}

// ParseRunName is the strict inverse of RunName. The returned time is in the local zone.
func ParseRunName(name string) (time.Time, error) {
	t, err := time.ParseInLocation(RunNameLayout, name, time.Local)
	if err != nil || t.Format(RunNameLayout) != name {
		return time.Time{}, fmt.Errorf("%w: %q", errors.ErrInvalidRunName, name)
	}
	return t, nil
}

// CreateRun allocates a run folder for t with all artifact subdirectories.
// When the name is already taken the time moves forward a second at a time.
func (s *Site) CreateRun(t time.Time) (RunFolder, error) {
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return RunFolder{}, errors.Wrap(err, "create site root")
	}

	t = t.Truncate(time.Second)
	for i := 0; i < maxNameProbes; i++ {
		candidate := t.Add(time.Duration(i) * time.Second)
		name := RunName(candidate)
		path := filepath.Join(s.Root, name)

		// Mkdir (not MkdirAll) so a concurrent run cannot claim the same name.
		err := os.Mkdir(path, 0o755)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return RunFolder{}, errors.Wrapf(err, "create run folder %s", name)
		}

		for _, sub := range ArtifactDirs {
			if err := mkdirAll(filepath.Join(path, sub), 0o755); err != nil {
				// A half-built folder would still parse and become the latest run.
				_ = os.RemoveAll(path)
				return RunFolder{}, errors.Wrapf(err, "create %s/%s", name, sub)
			}
		}
		return RunFolder{Name: name, Path: path, Time: candidate}, nil
	}
	return RunFolder{}, fmt.Errorf("%w: no free name after %s", errors.ErrRunFolderExists, RunName(t))
}

// ListRuns returns all run folders under the root, newest first.
// Entries whose names do not parse are ignored; a missing root is empty.
func (s *Site) ListRuns() ([]RunFolder, error) {
	entries, err := os.ReadDir(s.Root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read site root")
	}

	runs := make([]RunFolder, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		t, err := ParseRunName(e.Name())
		if err != nil {
			continue
		}
		runs = append(runs, RunFolder{Name: e.Name(), Path: filepath.Join(s.Root, e.Name()), Time: t})
	}

	// The name layout sorts lexically in time order.
	sort.Slice(runs, func(i, j int) bool { return runs[i].Name > runs[j].Name })
	return runs, nil
}

// Latest returns the newest run folder.
func (s *Site) Latest() (RunFolder, error) {
	runs, err := s.ListRuns()
	if err != nil {
		return RunFolder{}, err
	}
	if len(runs) == 0 {
		return RunFolder{}, errors.ErrRunNotFound
	}
	return runs[0], nil
}

// Run looks up a run folder by name.
func (s *Site) Run(name string) (RunFolder, error) {
	t, err := ParseRunName(name)
	if err != nil {
		return RunFolder{}, err
	}
	path := filepath.Join(s.Root, name)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return RunFolder{}, fmt.Errorf("%w: %s", errors.ErrRunNotFound, name)
	}
	return RunFolder{Name: name, Path: path, Time: t}, nil
}
