package report

import (
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joshdk/go-junit"

	"qapages/errors"
)

// FromJUnit reads JUnit XML files and converts every test case into a Result.
// Failed and errored cases become FAIL; skipped cases carry their reason.
func FromJUnit(paths ...string) ([]Result, error) {
	var results []Result
	for _, path := range paths {
		suites, err := junit.IngestFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "ingest junit %s", path)
		}
		for _, s := range suites {
			results = appendSuite(results, s)
		}
	}
	return results, nil
}

// GlobResults expands result-file globs ("**" allowed) relative to dir,
// without duplicates.
func GlobResults(dir string, patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	for _, p := range patterns {
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, errors.Wrapf(err, "bad results pattern %q", p)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func appendSuite(results []Result, s junit.Suite) []Result {
	for _, tc := range s.Tests {
		results = append(results, fromTest(tc))
	}
	for _, nested := range s.Suites {
		results = appendSuite(results, nested)
	}
	return results
}

func fromTest(tc junit.Test) Result {
	name := tc.Name
	if tc.Classname != "" {
		name = tc.Classname + "::" + tc.Name
	}
	res := Result{
		TestName: name,
		Duration: tc.Duration.Seconds(),
	}

	switch tc.Status {
	case junit.StatusFailed, junit.StatusError:
		res.Status = StatusFail
		res.ErrorMessage = tc.Message
		if res.ErrorMessage == "" && tc.Error != nil {
			res.ErrorMessage = tc.Error.Error()
		}
		if res.ErrorMessage == "" {
			res.ErrorMessage = "Test failed"
		}
	case junit.StatusSkipped:
		res.Status = StatusSkip
		res.SkipReason = tc.Message
		if res.SkipReason == "" {
			res.SkipReason = "Skipped"
		}
		res.ErrorMessage = res.SkipReason
	default:
		res.Status = StatusPass
	}
	return res
}
