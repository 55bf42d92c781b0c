package site

import (
	"bytes"
	"embed"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"qapages/errors"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl")) //nolint:gochecknoglobals

type artifactGroup struct {
	Dir       string
	Artifacts []Artifact
}

type runPage struct {
	SiteTitle string
	Run       RunFolder
	Summary   *RunSummary
	Groups    []artifactGroup
}

type historyRow struct {
	Run        RunFolder
	Summary    RunSummary
	HasSummary bool
}

type rootPage struct {
	SiteTitle string
	Latest    *RunFolder
	Rows      []historyRow
	Generated time.Time
}

// WriteRunIndex renders <run>/index.html. A nil summary renders artifacts only;
// a non-nil one is also stored as summary.json.
func (s *Site) WriteRunIndex(run RunFolder, summary *RunSummary) error {
	if summary != nil {
		if err := WriteSummary(run, *summary); err != nil {
			return err
		}
	} else if stored, ok := ReadSummary(run); ok {
		summary = &stored
	}

	artifacts, err := s.Artifacts(run)
	if err != nil {
		return err
	}

	page := runPage{SiteTitle: s.Title, Run: run, Summary: summary}
	for _, dir := range ArtifactDirs {
		group := artifactGroup{Dir: dir}
		for _, a := range artifacts {
			if a.Dir == dir {
				group.Artifacts = append(group.Artifacts, a)
			}
		}
		page.Groups = append(page.Groups, group)
	}

	return render(filepath.Join(run.Path, IndexFile), "run.html.tmpl", page)
}

// WriteRootIndex renders <root>/index.html linking the latest run and listing
// all runs, and makes sure .nojekyll exists so GitHub Pages serves folders as-is.
func (s *Site) WriteRootIndex() error {
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return errors.Wrap(err, "create site root")
	}
	runs, err := s.ListRuns()
	if err != nil {
		return err
	}

	page := rootPage{SiteTitle: s.Title, Generated: time.Now()}
	if len(runs) > 0 {
		latest := runs[0]
		page.Latest = &latest
	}
	for _, run := range runs {
		summary, ok := ReadSummary(run)
		page.Rows = append(page.Rows, historyRow{Run: run, Summary: summary, HasSummary: ok})
	}

	if err := render(filepath.Join(s.Root, IndexFile), "root.html.tmpl", page); err != nil {
		return err
	}

	noJekyll := filepath.Join(s.Root, NoJekyllFile)
	if _, err := os.Stat(noJekyll); os.IsNotExist(err) {
		if err := os.WriteFile(noJekyll, nil, 0o644); err != nil {
			return errors.Wrap(err, "write .nojekyll")
		}
	}
	return nil
}

// Rebuild re-renders every run index and then the root index.
func (s *Site) Rebuild() error {
	runs, err := s.ListRuns()
	if err != nil {
		return err
	}
	for _, run := range runs {
		if err := s.WriteRunIndex(run, nil); err != nil {
			return err
		}
	}
	return s.WriteRootIndex()
}

// render executes a template into a temp file and renames it into place so a
// served index is never half written.
func render(path, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return errors.Wrapf(err, "render %s", name)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(os.Rename(tmp, path), "replace %s", path)
}
