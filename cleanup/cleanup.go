// Package cleanup removes loose QA artifacts older than a retention window.
package cleanup

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Target is a directory and the file patterns eligible for cleanup in it.
type Target struct {
	Name      string
	Dir       string
	Patterns  []string
	Recursive bool
}

// DefaultTargets returns the standard targets rooted at the artifacts directory.
func DefaultTargets(artifactsDir string) []Target {
	return []Target{
		{Name: "logs", Dir: filepath.Join(artifactsDir, "logs"), Patterns: []string{"*.log", "*.txt"}},
		{Name: "reports", Dir: filepath.Join(artifactsDir, "reports"), Patterns: []string{"*.json", "*.html", "*.xml"}},
		{Name: "screenshots", Dir: filepath.Join(artifactsDir, "screenshots"), Patterns: []string{"*.png", "*.jpg", "*.jpeg", "*.html"}, Recursive: true},
		{Name: "api_failed_responses", Dir: filepath.Join(artifactsDir, "api_failed_responses"), Patterns: []string{"*.json"}},
	}
}

// TargetStats is the outcome of cleaning one target.
type TargetStats struct {
	Deleted int    `json:"deleted"`
	Dir     string `json:"directory"`
}

// DirStats describes what a cleanup would remove from one target.
type DirStats struct {
	Dir       string `json:"directory"`
	Exists    bool   `json:"exists"`
	FileCount int    `json:"file_count"`
	Bytes     int64  `json:"total_size"`
}

// HumanSize renders Bytes for display.
func (d DirStats) HumanSize() string {
	return humanize.Bytes(uint64(max(d.Bytes, 0)))
}

// Manager applies a retention window to a set of targets.
type Manager struct {
	RetentionDays int
	Targets       []Target
	Logger        zerolog.Logger

	now func() time.Time
}

// NewManager returns a manager over targets.
func NewManager(retentionDays int, targets []Target, logger zerolog.Logger) *Manager {
	return &Manager{RetentionDays: retentionDays, Targets: targets, Logger: logger, now: time.Now}
}

func (m *Manager) cutoff() time.Time {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	return now().Add(-time.Duration(m.RetentionDays) * 24 * time.Hour)
}

// CleanupAll cleans the named targets, or all of them when names is empty.
// Unknown names are ignored.
func (m *Manager) CleanupAll(dryRun bool, names ...string) map[string]TargetStats {
	m.Logger.Info().Int("retention_days", m.RetentionDays).Bool("dry_run", dryRun).Msg("starting cleanup")

	selected := m.Targets
	if len(names) > 0 {
		selected = nil
		for _, name := range names {
			if t, ok := m.target(name); ok {
				selected = append(selected, t)
			}
		}
	}

	stats := make(map[string]TargetStats, len(selected))
	total := 0
	for _, t := range selected {
		n := m.CleanupTarget(t, dryRun)
		stats[t.Name] = TargetStats{Deleted: n, Dir: t.Dir}
		total += n
		m.Logger.Info().Str("target", t.Name).Int("files", n).Bool("dry_run", dryRun).Msg("target cleaned")
	}

	if dryRun {
		m.Logger.Info().Int("files", total).Msg("dry run complete")
	} else {
		m.Logger.Info().Int("files", total).Msg("cleanup complete")
	}
	return stats
}

// CleanupTarget cleans a single target and returns the number of files removed
// (or that would be removed on a dry run).
func (m *Manager) CleanupTarget(t Target, dryRun bool) int {
	return m.CleanupOldFiles(t.Dir, t.Patterns, t.Recursive, dryRun)
}

// CleanupOldFiles removes regular files in dir matching patterns whose
// modification time is before the retention cutoff. Failures are logged and
// skipped.
func (m *Manager) CleanupOldFiles(dir string, patterns []string, recursive, dryRun bool) int {
	files, err := m.expired(dir, patterns, recursive)
	if err != nil {
		m.Logger.Debug().Err(err).Str("dir", dir).Msg("cleanup directory unavailable")
		return 0
	}

	deleted := 0
	for _, f := range files {
		if dryRun {
			m.Logger.Info().Str("file", f.path).Msg("dry run: would delete")
			deleted++
			continue
		}
		if err := os.Remove(f.path); err != nil {
			m.Logger.Warn().Err(err).Str("file", f.path).Msg("failed to delete")
			continue
		}
		m.Logger.Debug().Str("file", f.path).Msg("deleted")
		deleted++
	}
	return deleted
}

// Stats reports, per target, the files a cleanup would remove.
func (m *Manager) Stats() map[string]DirStats {
	stats := make(map[string]DirStats, len(m.Targets))
	for _, t := range m.Targets {
		ds := DirStats{Dir: t.Dir}
		if info, err := os.Stat(t.Dir); err == nil && info.IsDir() {
			ds.Exists = true
			files, err := m.expired(t.Dir, t.Patterns, t.Recursive)
			if err != nil {
				m.Logger.Warn().Err(err).Str("dir", t.Dir).Msg("failed to scan")
			}
			for _, f := range files {
				ds.FileCount++
				ds.Bytes += f.size
			}
		}
		stats[t.Name] = ds
	}
	return stats
}

// TargetNames returns the configured target names in order.
func (m *Manager) TargetNames() []string {
	names := make([]string, 0, len(m.Targets))
	for _, t := range m.Targets {
		names = append(names, t.Name)
	}
	return names
}

func (m *Manager) target(name string) (Target, bool) {
	for _, t := range m.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

type candidate struct {
	path string
	size int64
}

func (m *Manager) expired(dir string, patterns []string, recursive bool) ([]candidate, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "scan", Path: dir, Err: fs.ErrInvalid}
	}

	cutoff := m.cutoff()
	fsys := os.DirFS(dir)
	seen := map[string]bool{}
	var out []candidate
	for _, pattern := range patterns {
		if recursive {
			pattern = path.Join("**", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, err
		}
		for _, rel := range matches {
			if seen[rel] {
				continue
			}
			seen[rel] = true
			full := filepath.Join(dir, filepath.FromSlash(rel))
			fi, err := os.Lstat(full)
			if err != nil || !fi.Mode().IsRegular() {
				continue
			}
			if fi.ModTime().Before(cutoff) {
				out = append(out, candidate{path: full, size: fi.Size()})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out, nil
}
