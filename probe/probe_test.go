package probe

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qapages/report"
)

func TestCleanFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "teststest_homepyTestHometestlogo", CleanFilename("tests/test_home.py::TestHome::test logo"))
	assert.Equal(t, "a-b_c", CleanFilename("a-b_c!?"))
	assert.Empty(t, CleanFilename("::/"))
}

func TestScreenshotName(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	assert.Equal(t, "FAILURE_home_page_20250203_040506.png", ScreenshotName("home_page", ts))
	assert.Equal(t, "FAILURE_homepage_20250203_040506.png", ScreenshotName("home page", ts))
	assert.Equal(t, "FAILURE_home_page_20250203_040506.html", PageSourceName("home_page", ts))
}

func TestWindowArg(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1920,1080", WindowArg("1920x1080"))
	assert.Equal(t, "800,600", WindowArg("800X600"))
	assert.Empty(t, WindowArg("fullscreen"))
	assert.Empty(t, WindowArg(""))
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	pg := Page{Name: "home", ExpectTitle: "Geo", ExpectSelector: "#search"}
	assert.Empty(t, Evaluate(pg, "Geo Travel", true, nil))
	assert.Contains(t, Evaluate(pg, "Oops", true, nil), `title "Oops" does not contain "Geo"`)
	assert.Contains(t, Evaluate(pg, "Geo", false, nil), `element "#search" not found`)
	assert.Contains(t, Evaluate(pg, "", false, fmt.Errorf("timeout")), "PageLoadError: timeout")
	assert.Empty(t, Evaluate(Page{Name: "bare"}, "", false, nil))
}

func TestRunWithoutBrowserFailsEveryPage(t *testing.T) {
	t.Parallel()

	p := &Prober{Bin: "/nonexistent/chromium", Headless: true, Logger: zerolog.Nop()}
	results := p.Run(context.Background(), []Page{{Name: "a"}, {Name: "b"}})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, report.StatusFail, r.Status)
		assert.Contains(t, r.ErrorMessage, "BrowserError")
	}
}

func TestRunNoPages(t *testing.T) {
	t.Parallel()

	assert.Nil(t, (&Prober{}).Run(context.Background(), nil))
}
