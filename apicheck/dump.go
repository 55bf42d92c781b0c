package apicheck

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"qapages/errors"
)

const maxDumpBody = 2000

// Dump is the JSON record written for a failed API check.
type Dump struct {
	TestName         string `json:"test_name"`
	Timestamp        string `json:"timestamp"`
	ErrorMessage     string `json:"error_message"`
	ResponseCaptured bool   `json:"response_captured"`
	StatusCode       int    `json:"status_code,omitempty"`
	Body             string `json:"body,omitempty"`
}

// Dumper writes failure records into Dir. Returned paths are joined onto
// RelDir so they resolve from the run folder.
type Dumper struct {
	Dir    string
	RelDir string

	now func() time.Time
}

// NewDumper returns a dumper writing into dir.
func NewDumper(dir, relDir string) *Dumper {
	return &Dumper{Dir: dir, RelDir: relDir, now: time.Now}
}

// SafeName turns a test id into a file-name stem.
func SafeName(testName string) string {
	r := strings.NewReplacer("::", "_", "/", "_", ":", "_", " ", "_")
	return r.Replace(testName)
}

// Dump writes <safe_name>_<HHMMSS>.json with the last response, if any.
func (d *Dumper) Dump(testName, errMsg string, last *LastResponse) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create dumps dir")
	}
	now := time.Now
	if d.now != nil {
		now = d.now
	}
	ts := now()

	rec := Dump{
		TestName:     testName,
		Timestamp:    ts.Format(time.RFC3339),
		ErrorMessage: errMsg,
	}
	if last != nil {
		rec.ResponseCaptured = true
		rec.StatusCode = last.StatusCode
		rec.Body = truncate(last.Body, maxDumpBody)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode dump")
	}
	stem := SafeName(testName) + "_" + ts.Format("150405")
	name, err := d.create(stem, data)
	if err != nil {
		return "", err
	}
	if d.RelDir == "" {
		return filepath.Join(d.Dir, name), nil
	}
	return filepath.ToSlash(filepath.Join(d.RelDir, name)), nil
}

// create writes data to <stem>.json, or <stem>_2.json and onwards when an
// earlier failure in the same second already took the name.
func (d *Dumper) create(stem string, data []byte) (string, error) {
	for i := 1; ; i++ {
		name := stem + ".json"
		if i > 1 {
			name = fmt.Sprintf("%s_%d.json", stem, i)
		}
		f, err := os.OpenFile(filepath.Join(d.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", errors.Wrap(err, "write dump")
		}
		_, werr := f.Write(data)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return "", errors.Wrap(werr, "write dump")
		}
		return name, nil
	}
}
