package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"qapages/apicheck"
	"qapages/config"
	"qapages/errors"
	"qapages/events"
	"qapages/gitmeta"
	"qapages/health"
	"qapages/notify"
	"qapages/probe"
	"qapages/report"
	"qapages/runner/storage"
	"qapages/site"
)

// waitDelay bounds how long a finished step may hold its output pipes open.
const waitDelay = 5 * time.Second

// EnvChecker reports whether the target environment can be tested.
type EnvChecker interface {
	Require(ctx context.Context, ui bool, endpoint string) error
}

// Runner executes suites into run folders of a site.
type Runner struct {
	Config *config.Config
	Env    health.Environment
	Suites *SuitesFile
	Site   *site.Site

	// Storage is optional; without it runs are not recorded.
	Storage  *storage.Storage
	Events   events.Publisher
	Notifier *notify.Multi
	Health   EnvChecker
	Git      gitmeta.Metadata
	Logger   zerolog.Logger

	// Stream receives step output in addition to the step log files.
	Stream io.Writer

	now func() time.Time
}

// New wires a runner from configuration. Storage, Events and Stream are left
// for the caller.
func New(cfg *config.Config, suites *SuitesFile, logger zerolog.Logger) (*Runner, error) {
	env, err := health.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Runner{
		Config: cfg,
		Env:    env,
		Suites: suites,
		Site:   site.New(cfg.Site.Root, cfg.Site.Title),
		Events: events.Nop{},
		Notifier: notify.NewMulti(logger,
			notify.NewSlack(cfg.Slack, cfg.ProjectName, logger),
			notify.NewEmail(cfg.Email, cfg.ProjectName),
		),
		Health: health.NewChecker(env, cfg.Health, logger),
		Git:    gitmeta.New(suites.Dir, logger).Resolve(),
		Logger: logger,
		now:    time.Now,
	}, nil
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *Runner) publish(eventType string, data any) {
	if r.Events != nil {
		r.Events.Broadcast(eventType, data)
	}
}

func (r *Runner) notify(ctx context.Context, msg notify.Message) {
	if r.Notifier != nil {
		r.Notifier.Send(ctx, msg)
	}
}

// Execute runs one suite into run and returns its report. It never fails as a
// whole: every problem becomes a result.
func (r *Runner) Execute(ctx context.Context, suite Suite, run site.RunFolder, opts RunOptions, logger zerolog.Logger) SuiteResult {
	logger = logger.With().Str("suite", suite.Name).Logger()
	rep := report.NewReporter(suite.Name, logger)
	rep.Start()

	res := SuiteResult{Suite: suite.Name}
	finish := func() SuiteResult {
		res.Report = rep.End()
		res.Results = rep.Results()
		return res
	}

	if err := r.checkEnv(ctx, suite, opts); err != nil {
		logger.Warn().Err(err).Msg("environment not accessible, skipping suite")
		rep.Add(envSkipResult(suite.Kind))
		res.Skipped = true
		res.Err = err
		return finish()
	}

	env := r.stepEnv(suite, run)
	stepErr := r.runSteps(ctx, suite, run, env, logger)

	ingested, err := r.ingest(suite, env)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read results files")
	}
	for _, tr := range ingested {
		rep.Add(tr)
	}

	if stepErr != nil {
		res.Err = stepErr
		if !hasFailure(ingested) {
			rep.Add(report.Result{
				TestName:     suite.Name + " suite execution",
				Status:       report.StatusFail,
				ErrorMessage: "Suite execution failed: " + stepErr.Error(),
			})
		}
	}

	if len(suite.Checks) > 0 {
		client := apicheck.NewClient(r.Env.APIBaseURL, r.Config.APIToken, logger)
		dumper := apicheck.NewDumper(run.Dir(site.DirAPIFailures), site.DirAPIFailures)
		for _, tr := range apicheck.Run(ctx, client, dumper, suite.Checks) {
			rep.Add(tr)
		}
	}

	if len(suite.Pages) > 0 {
		prober := &probe.Prober{
			Bin:           r.Config.Browser.Bin,
			Headless:      r.Config.Browser.Headless,
			Window:        r.Config.Browser.Window,
			BaseURL:       r.Env.BaseURL,
			Timeout:       r.Config.Browser.Timeout,
			ScreenshotDir: run.Dir(site.DirScreenshots),
			RelDir:        site.DirScreenshots,
			Logger:        logger,
		}
		for _, tr := range prober.Run(ctx, suite.Pages) {
			rep.Add(tr)
		}
	}

	return finish()
}

func (r *Runner) checkEnv(ctx context.Context, suite Suite, opts RunOptions) error {
	if opts.SkipEnvCheck || suite.SkipEnvCheck || r.Health == nil {
		return nil
	}
	return r.Health.Require(ctx, suite.Kind != KindAPI, r.Config.Health.Endpoint)
}

// envSkipResult is the single result of a suite whose environment is down.
func envSkipResult(kind Kind) report.Result {
	if kind == KindAPI {
		return report.Result{
			TestName:     "API Environment Check",
			Status:       report.StatusSkip,
			ErrorMessage: "API environment is not accessible",
		}
	}
	return report.Result{
		TestName:     "Environment Check",
		Status:       report.StatusSkip,
		ErrorMessage: "UI environment is not accessible",
	}
}

// stepEnv is the environment added to every step of suite.
// Fixed QAPAGES_* values win over the suite's own env entries.
func (r *Runner) stepEnv(suite Suite, run site.RunFolder) map[string]string {
	env := make(map[string]string, len(suite.Env)+9)
	for k, v := range suite.Env {
		env[k] = v
	}
	env["QAPAGES_RUN_DIR"] = run.Path
	env["QAPAGES_REPORTS_DIR"] = run.Dir(site.DirReports)
	env["QAPAGES_SCREENSHOTS_DIR"] = run.Dir(site.DirScreenshots)
	env["QAPAGES_API_FAILURES_DIR"] = run.Dir(site.DirAPIFailures)
	env["QAPAGES_SUITE"] = suite.Name
	env["QAPAGES_MARKER"] = suite.Marker
	env["QAPAGES_ENV"] = r.Env.Name
	env["QAPAGES_BASE_URL"] = r.Env.BaseURL
	env["QAPAGES_API_BASE_URL"] = r.Env.APIBaseURL
	return env
}

func (r *Runner) baseDir() string {
	if r.Suites != nil {
		return r.Suites.Dir
	}
	return ""
}

// runSteps executes the suite's steps in order and stops at the first failure.
func (r *Runner) runSteps(ctx context.Context, suite Suite, run site.RunFolder, env map[string]string, logger zerolog.Logger) error {
	stream := r.Stream
	if stream == nil {
		stream = io.Discard
	}

	for _, step := range suite.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintln(stream, "→", step.Name)
		stepStart := time.Now()
		logPath := filepath.Join(run.Dir(site.DirLogs), report.Slug(suite.Name)+"_"+report.Slug(step.Name)+".log")

		err := r.executeShellCommand(ctx, step.Run, env, logPath, stream)
		if err != nil {
			fmt.Fprintln(stream, "❌ Step failed:", err)
			logger.Error().Err(err).Str("step", step.Name).Dur("duration", time.Since(stepStart)).Msg("step failed")
			return fmt.Errorf("%w: '%s': %v", errors.ErrStepFailed, step.Name, err)
		}

		fmt.Fprintln(stream, "✅ Done:", step.Name)
		logger.Info().Str("step", step.Name).Dur("duration", time.Since(stepStart)).Msg("step finished")
	}
	return nil
}

// executeShellCommand runs command with bash, teeing its output into logPath and stream.
func (r *Runner) executeShellCommand(ctx context.Context, command string, env map[string]string, logPath string, stream io.Writer) error {
	if timeout := r.Config.Runner.StepTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	f, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create step log: %w", err)
	}
	defer f.Close()

	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Dir = r.baseDir()
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	out := io.MultiWriter(f, stream)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = waitDelay

	return cmd.Run()
}

// ingest reads the suite's JUnit results files. Globs may reference the step
// environment ($QAPAGES_REPORTS_DIR/*.xml).
func (r *Runner) ingest(suite Suite, env map[string]string) ([]report.Result, error) {
	if len(suite.Results) == 0 {
		return nil, nil
	}

	lookup := func(key string) string {
		if v, ok := env[key]; ok {
			return v
		}
		return os.Getenv(key)
	}
	patterns := make([]string, 0, len(suite.Results))
	for _, p := range suite.Results {
		patterns = append(patterns, os.Expand(p, lookup))
	}

	files, err := report.GlobResults(r.baseDir(), patterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	return report.FromJUnit(files...)
}

func hasFailure(results []report.Result) bool {
	for _, res := range results {
		if res.Status == report.StatusFail {
			return true
		}
	}
	return false
}
