package runner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qapages/errors"
)

const suitesYAML = `
suites:
  - name: smoke
    marker: smoke
    steps:
      - run: pytest -m smoke --junitxml=$QAPAGES_REPORTS_DIR/smoke.xml
    results:
      - $QAPAGES_REPORTS_DIR/*.xml
    schedules:
      - at: "06:30"
  - name: api
    kind: api
    checks:
      - name: login reachable
        path: /api/auth/login
        method: POST
        expect_status: 400
    schedules:
      - every: 1h30m
  - name: homepage
    kind: ui
    pages:
      - name: home
        path: /
        expect_title: Geo
contexts:
  test_homepage_loads: Homepage renders
`

func TestParseSuites(t *testing.T) {
	t.Parallel()

	sf, err := ParseSuites([]byte(suitesYAML))
	require.NoError(t, err)
	require.Len(t, sf.Suites, 3)

	smoke := sf.Suites[0]
	assert.Equal(t, KindCommand, smoke.Kind)
	assert.Equal(t, "step-1", smoke.Steps[0].Name)
	assert.Equal(t, []string{"$QAPAGES_REPORTS_DIR/*.xml"}, smoke.Results)
	assert.Equal(t, "06:30", smoke.Schedules[0].At)

	api, err := sf.Get("api")
	require.NoError(t, err)
	assert.Equal(t, KindAPI, api.Kind)
	require.Len(t, api.Checks, 1)
	assert.Equal(t, 400, api.Checks[0].ExpectStatus)

	assert.Equal(t, []string{"smoke", "api", "homepage"}, sf.Names())
	assert.Equal(t, "Homepage renders", sf.Contexts["test_homepage_loads"])
}

func TestParseSuitesRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"malformed", "suites: [", errors.ErrInvalidConfig},
		{"no name", "suites:\n  - kind: api\n", errors.ErrInvalidConfig},
		{"duplicate", "suites:\n  - name: a\n  - name: a\n", errors.ErrDuplicateSuite},
		{"bad kind", "suites:\n  - name: a\n    kind: load\n", errors.ErrInvalidConfig},
		{"empty step", "suites:\n  - name: a\n    steps:\n      - name: x\n", errors.ErrInvalidConfig},
		{"bad at", "suites:\n  - name: a\n    schedules:\n      - at: \"25:00\"\n", errors.ErrInvalidSchedule},
		{"bad every", "suites:\n  - name: a\n    schedules:\n      - every: soon\n", errors.ErrInvalidSchedule},
		{"short every", "suites:\n  - name: a\n    schedules:\n      - every: 10s\n", errors.ErrInvalidSchedule},
		{"both", "suites:\n  - name: a\n    schedules:\n      - at: \"06:00\"\n        every: 1h\n", errors.ErrInvalidSchedule},
		{"duplicate check", "suites:\n  - name: a\n    checks:\n      - name: c\n        path: /x\n      - name: c\n        path: /y\n", errors.ErrInvalidConfig},
		{"empty schedule", "suites:\n  - name: a\n    schedules:\n      - {}\n", errors.ErrInvalidSchedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseSuites([]byte(tt.yaml))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadSuites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "suites.yml")
	require.NoError(t, os.WriteFile(path, []byte(suitesYAML), 0o644))

	sf, err := LoadSuites(path)
	require.NoError(t, err)
	assert.Equal(t, dir, sf.Dir)

	_, err = LoadSuites(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	t.Parallel()

	sf, err := ParseSuites([]byte(suitesYAML))
	require.NoError(t, err)

	all, err := sf.Select(nil, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	picked, err := sf.Select([]string{"api", "smoke", "api"}, false)
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "api", picked[0].Name)
	assert.Equal(t, "smoke", picked[1].Name)

	_, err = sf.Select([]string{"load"}, false)
	assert.ErrorIs(t, err, errors.ErrSuiteNotFound)

	_, err = sf.Select(nil, false)
	assert.ErrorIs(t, err, errors.ErrSuiteNotFound)
}

func TestRunName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "smoke", RunName([]Suite{{Name: "smoke"}}))
	assert.Equal(t, "Combined API, SMOKE Tests", RunName([]Suite{{Name: "smoke"}, {Name: "api"}}))
}

func TestParseInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"30m", 30 * time.Minute, true},
		{"1h", time.Hour, true},
		{"1h30m", 90 * time.Minute, true},
		{"24h", 24 * time.Hour, true},
		{"", 0, false},
		{"-5m", 0, false},
		{"daily", 0, false},
	}
	for _, tt := range tests {
		got, err := parseInterval(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, errors.ErrInvalidSchedule, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseAtTime(t *testing.T) {
	t.Parallel()

	h, m, err := parseAtTime("06:30")
	require.NoError(t, err)
	assert.Equal(t, 6, h)
	assert.Equal(t, 30, m)

	for _, bad := range []string{"6", "24:00", "12:60", "ab:cd", "1:2:3"} {
		_, _, err := parseAtTime(bad)
		assert.ErrorIs(t, err, errors.ErrInvalidSchedule, bad)
	}
}
