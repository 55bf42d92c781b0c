package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"qapages/errors"
)

// UnifiedBaseName is the file stem of the combined report.
const UnifiedBaseName = "unified_report"

//go:embed templates/report.html.tmpl
var reportTemplateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(reportTemplateFS, "templates/report.html.tmpl")) //nolint:gochecknoglobals

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`) //nolint:gochecknoglobals

// Slug turns a suite name into a file-name stem ("Smoke Tests" -> "smoke_tests").
func Slug(name string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(name), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "suite"
	}
	return s
}

type htmlReport struct {
	Name        string
	AllPassed   bool
	Total       int
	Passed      int
	Failed      int
	Skipped     int
	SuccessRate float64
	Duration    float64
	StartTime   string
	EndTime     string
	ShowSuite   bool
	Results     []Result
}

// WriteSuite writes <slug>_report.json and <slug>_report.html into dir.
// results are listed in the HTML; the JSON holds the report itself.
func WriteSuite(dir string, rep *SuiteReport, results []Result) (jsonPath, htmlPath string, err error) {
	stem := Slug(rep.SuiteName) + "_report"
	jsonPath, err = writeJSON(dir, stem, rep)
	if err != nil {
		return "", "", err
	}
	htmlPath, err = writeHTML(dir, stem, htmlReport{
		Name: rep.SuiteName, AllPassed: rep.AllPassed(),
		Total: rep.Total, Passed: rep.Passed, Failed: rep.Failed, Skipped: rep.Skipped,
		SuccessRate: rep.SuccessRate, Duration: rep.Duration,
		StartTime: rep.StartTime, EndTime: rep.EndTime,
		Results: results,
	})
	return jsonPath, htmlPath, err
}

// WriteUnified writes unified_report.json and unified_report.html into dir.
func WriteUnified(dir string, u *UnifiedReport, results []Result) (jsonPath, htmlPath string, err error) {
	jsonPath, err = writeJSON(dir, UnifiedBaseName, u)
	if err != nil {
		return "", "", err
	}
	htmlPath, err = writeHTML(dir, UnifiedBaseName, htmlReport{
		Name: u.SuiteName, AllPassed: u.AllPassed(),
		Total: u.Total, Passed: u.Passed, Failed: u.Failed, Skipped: u.Skipped,
		SuccessRate: u.SuccessRate, Duration: u.Duration,
		StartTime: u.StartTime, EndTime: u.EndTime,
		ShowSuite: true, Results: results,
	})
	return jsonPath, htmlPath, err
}

func writeJSON(dir, stem string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create reports dir")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode report")
	}
	path := filepath.Join(dir, stem+".json")
	return path, errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

func writeHTML(dir, stem string, data htmlReport) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "render html report")
	}
	path := filepath.Join(dir, stem+".html")
	return path, errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644), "write %s", path)
}
