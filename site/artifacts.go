package site

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"qapages/errors"
)

// Artifact is one file inside a run's artifact subdirectory.
type Artifact struct {
	// Dir is the artifact subdirectory (reports, logs, ...).
	Dir string `json:"dir"`
	// Path is relative to the run folder, slash separated.
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// HumanSize renders the size for index pages.
func (a Artifact) HumanSize() string {
	return humanize.Bytes(uint64(a.Size)) //nolint:gosec // sizes are non-negative
}

// Name is the file's base name.
func (a Artifact) Name() string {
	return filepath.Base(a.Path)
}

// Artifacts lists every file under the run's artifact subdirectories, sorted by path.
func (s *Site) Artifacts(run RunFolder) ([]Artifact, error) {
	var out []Artifact
	for _, sub := range ArtifactDirs {
		root := run.Dir(sub)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return fs.SkipDir
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(run.Path, path)
			if err != nil {
				return err
			}
			out = append(out, Artifact{
				Dir:     sub,
				Path:    filepath.ToSlash(rel),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "list %s artifacts", sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
