package apicheck

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"qapages/report"
)

// Check is one declarative API expectation from the suites file.
type Check struct {
	Name   string `yaml:"name"`
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
	Body   any    `yaml:"body"`
	// ExpectStatus defaults to 200.
	ExpectStatus   int    `yaml:"expect_status"`
	ExpectContains string `yaml:"expect_contains"`
}

func (c Check) method() string {
	if c.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(c.Method)
}

func (c Check) status() int {
	if c.ExpectStatus == 0 {
		return http.StatusOK
	}
	return c.ExpectStatus
}

// Evaluate runs one check and returns its result. A failing check is dumped
// through d when d is non-nil.
func Evaluate(ctx context.Context, client *Client, d *Dumper, check Check) report.Result {
	start := time.Now()
	res := report.Result{TestName: check.Name, Status: report.StatusPass}

	resp, err := client.Do(ctx, check.method(), check.Path, normalize(check.Body))
	switch {
	case err != nil:
		res.Status = report.StatusFail
		res.ErrorMessage = "RequestError: " + err.Error()
	case resp.StatusCode != check.status():
		res.Status = report.StatusFail
		res.ErrorMessage = fmt.Sprintf("AssertionError: expected status %d, got %d", check.status(), resp.StatusCode)
	case check.ExpectContains != "" && !strings.Contains(resp.Body, check.ExpectContains):
		res.Status = report.StatusFail
		res.ErrorMessage = fmt.Sprintf("AssertionError: response body does not contain %q", check.ExpectContains)
	}
	res.Duration = time.Since(start).Seconds()

	if res.Status == report.StatusFail && d != nil {
		path, derr := d.Dump(check.Name, res.ErrorMessage, resp)
		if derr != nil {
			client.Logger.Error().Err(derr).Str("check", check.Name).Msg("failed to create api failure record")
		} else {
			res.ResponseFile = path
		}
	}
	return res
}

// Run evaluates checks in order.
func Run(ctx context.Context, client *Client, d *Dumper, checks []Check) []report.Result {
	results := make([]report.Result, 0, len(checks))
	for _, c := range checks {
		if ctx.Err() != nil {
			results = append(results, report.Result{
				TestName: c.Name, Status: report.StatusSkip,
				ErrorMessage: "Cancelled", SkipReason: "Cancelled",
			})
			continue
		}
		results = append(results, Evaluate(ctx, client, d, c))
	}
	return results
}

// normalize converts YAML maps with interface keys into JSON-encodable values.
func normalize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalize(val)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
