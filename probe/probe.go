// Package probe opens pages in a headless browser, checks their title and
// content, and captures a screenshot when a check fails.
package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"qapages/errors"
	"qapages/report"
)

const defaultTimeout = 30 * time.Second

// Page is one page expectation from the suites file.
type Page struct {
	Name           string `yaml:"name"`
	Path           string `yaml:"path"`
	ExpectTitle    string `yaml:"expect_title"`
	ExpectSelector string `yaml:"expect_selector"`
}

// Prober drives one browser for a batch of pages.
type Prober struct {
	Bin      string
	Headless bool
	// Window is WIDTHxHEIGHT, e.g. 1920x1080.
	Window  string
	BaseURL string
	Timeout time.Duration

	// ScreenshotDir receives failure screenshots; returned paths are joined
	// onto RelDir so they resolve from the run folder.
	ScreenshotDir string
	RelDir        string

	Logger zerolog.Logger

	now func() time.Time
}

// Run checks every page and returns one result per page. When the browser
// cannot start, every page is reported as failed with the launch error.
func (p *Prober) Run(ctx context.Context, pages []Page) []report.Result {
	if len(pages) == 0 {
		return nil
	}

	browser, cleanup, err := p.launch(ctx)
	if err != nil {
		p.Logger.Error().Err(err).Msg("browser launch failed")
		results := make([]report.Result, 0, len(pages))
		for _, pg := range pages {
			results = append(results, report.Result{
				TestName:     pg.Name,
				Status:       report.StatusFail,
				ErrorMessage: "BrowserError: " + err.Error(),
			})
		}
		return results
	}
	defer cleanup()

	results := make([]report.Result, 0, len(pages))
	for _, pg := range pages {
		results = append(results, p.check(ctx, browser, pg))
	}
	return results
}

func (p *Prober) launch(ctx context.Context) (*rod.Browser, func(), error) {
	l := launcher.New().Context(ctx).Headless(p.Headless).
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu")
	if p.Bin != "" {
		l = l.Bin(p.Bin)
	}
	if w := WindowArg(p.Window); w != "" {
		l = l.Set("window-size", w)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, nil, errors.Wrap(err, "launch browser")
	}
	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, errors.Wrap(err, "connect browser")
	}
	return browser, func() {
		if err := browser.Close(); err != nil {
			p.Logger.Debug().Err(err).Msg("browser close")
		}
		l.Cleanup()
	}, nil
}

func (p *Prober) check(ctx context.Context, browser *rod.Browser, pg Page) report.Result {
	start := time.Now()
	url := strings.TrimRight(p.BaseURL, "/") + pg.Path
	res := report.Result{TestName: pg.Name, Status: report.StatusPass}
	log := p.Logger.With().Str("page", pg.Name).Str("url", url).Logger()

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		res.Status = report.StatusFail
		res.ErrorMessage = "NavigationError: " + err.Error()
		res.Duration = time.Since(start).Seconds()
		return res
	}
	defer func() { _ = page.Close() }()

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	tp := page.Context(ctx).Timeout(timeout)

	var title string
	found := true
	err = tp.WaitLoad()
	if err == nil {
		var info *proto.TargetTargetInfo
		if info, err = tp.Info(); err == nil {
			title = info.Title
		}
	}
	if err == nil && pg.ExpectSelector != "" {
		if _, serr := tp.Element(pg.ExpectSelector); serr != nil {
			found = false
		}
	}

	if msg := Evaluate(pg, title, found, err); msg != "" {
		res.Status = report.StatusFail
		res.ErrorMessage = msg
		if shot, serr := p.screenshot(page, pg.Name); serr != nil {
			log.Warn().Err(serr).Msg("failure screenshot not captured")
		} else {
			res.ScreenshotPath = shot
			log.Info().Str("screenshot", shot).Msg("failure screenshot captured")
		}
	}
	res.Duration = time.Since(start).Seconds()
	return res
}

// Evaluate returns the failure message for a loaded page, or "" when the page
// meets its expectations.
func Evaluate(pg Page, title string, selectorFound bool, loadErr error) string {
	switch {
	case loadErr != nil:
		return "PageLoadError: " + loadErr.Error()
	case pg.ExpectTitle != "" && !strings.Contains(title, pg.ExpectTitle):
		return fmt.Sprintf("AssertionError: title %q does not contain %q", title, pg.ExpectTitle)
	case pg.ExpectSelector != "" && !selectorFound:
		return fmt.Sprintf("AssertionError: element %q not found", pg.ExpectSelector)
	}
	return ""
}

func (p *Prober) screenshot(page *rod.Page, name string) (string, error) {
	data, err := page.Screenshot(true, nil)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(p.ScreenshotDir, 0o755); err != nil {
		return "", err
	}
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	at := now()
	file := ScreenshotName(name, at)
	if err := os.WriteFile(filepath.Join(p.ScreenshotDir, file), data, 0o644); err != nil {
		return "", err
	}
	if err := p.savePageSource(page, filepath.Join(p.ScreenshotDir, PageSourceName(name, at))); err != nil {
		p.Logger.Warn().Err(err).Str("page", name).Msg("page source not captured")
	}
	if p.RelDir == "" {
		return filepath.Join(p.ScreenshotDir, file), nil
	}
	return filepath.ToSlash(filepath.Join(p.RelDir, file)), nil
}

// savePageSource stores the page HTML next to its failure screenshot.
func (p *Prober) savePageSource(page *rod.Page, path string) error {
	html, err := page.HTML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(html), 0o644)
}

// ScreenshotName is FAILURE_<clean name>_<YYYYMMDD_HHMMSS>.png.
func ScreenshotName(name string, t time.Time) string {
	return captureStem(name, t) + ".png"
}

// PageSourceName is the .html file saved alongside ScreenshotName.
func PageSourceName(name string, t time.Time) string {
	return captureStem(name, t) + ".html"
}

func captureStem(name string, t time.Time) string {
	return "FAILURE_" + CleanFilename(name) + "_" + t.Format("20060102_150405")
}

// CleanFilename keeps letters, digits, '-' and '_'.
func CleanFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// WindowArg converts 1920x1080 into the browser flag form 1920,1080.
func WindowArg(window string) string {
	w, h, ok := strings.Cut(strings.ToLower(window), "x")
	if !ok || w == "" || h == "" {
		return ""
	}
	return w + "," + h
}
