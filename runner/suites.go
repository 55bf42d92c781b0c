package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"qapages/cleanup"
	"qapages/errors"
	"qapages/events"
	"qapages/logging"
	"qapages/notify"
	"qapages/report"
	"qapages/runner/storage"
	"qapages/site"
)

// RunLogFile is the per-run log inside logs/.
const RunLogFile = "run.log"

// RunSuites executes suites into one new run folder, records them, renders
// the site indexes and applies retention. Suites run concurrently up to
// runner.parallelism. The error is non-nil only when the run folder or the
// site could not be written; suite failures are reported in the result.
func (r *Runner) RunSuites(ctx context.Context, suites []Suite, opts RunOptions) (*RunResult, error) {
	if len(suites) == 0 {
		return nil, fmt.Errorf("%w: no suites to run", errors.ErrSuiteNotFound)
	}

	start := r.clock()
	run, err := r.Site.CreateRun(start)
	if err != nil {
		return nil, err
	}

	key := opts.Key
	if key == "" {
		key = storage.NewKey()
	}
	// Every suite is recorded before any starts so the key reads as running
	// until the last suite has finished.
	stored := r.recordRuns(suites, run, key, r.Logger)

	logger, closer, err := logging.RunLog(logging.Writer(), r.Logger, filepath.Join(run.Dir(site.DirLogs), RunLogFile))
	if err != nil {
		r.Logger.Warn().Err(err).Msg("failed to open run log")
	} else {
		defer closer.Close()
	}
	logger = logger.With().Str("run", run.Name).Logger()

	name := RunName(suites)
	names := make([]string, 0, len(suites))
	for _, s := range suites {
		names = append(names, s.Name)
	}

	logger.Info().Strs("suites", names).Str("env", r.Env.Name).Str("key", key).Msg("run started")
	r.publish(events.RunStarted, map[string]any{
		"key":     key,
		"run":     run.Name,
		"suites":  names,
		"trigger": opts.Trigger,
	})
	if opts.Notify {
		r.notify(ctx, notify.LaunchMessage(r.Env.Name, name, start))
	}

	results := make([]SuiteResult, len(suites))
	var g errgroup.Group
	g.SetLimit(max(1, r.Config.Runner.Parallelism))
	for i, s := range suites {
		g.Go(func() error {
			results[i] = r.runSuite(ctx, s, run, key, stored[i], opts, logger)
			return nil
		})
	}
	_ = g.Wait()

	end := r.clock()
	res := &RunResult{
		Key:      key,
		Folder:   run,
		Suites:   results,
		Status:   runStatus(results),
		Duration: end.Sub(start),
	}

	runURL := notify.RunURL(r.Config.Site.PublicURL, run.Name)
	if len(suites) > 1 {
		res.Unified = r.writeUnified(name, run, results, start, end, logger)
	}
	if opts.Notify {
		switch {
		case res.Unified != nil:
			r.notify(ctx, notify.UnifiedMessage(r.Env.Name, res.Unified, runURL))
		case len(results) == 1 && results[0].Report != nil:
			r.notify(ctx, notify.SuiteMessage(r.Env.Name, results[0].Report, r.contexts(), runURL))
		}
	}

	if err := r.publishSite(run, name, res, start); err != nil {
		return res, err
	}
	r.applyRetention(logger)

	logger.Info().Str("status", res.Status).Dur("duration", res.Duration).Msg("run finished")
	r.publish(events.RunFinished, map[string]any{
		"key":      key,
		"run":      run.Name,
		"status":   res.Status,
		"duration": res.Duration.Seconds(),
	})
	return res, nil
}

// recordRuns inserts one running storage row per suite. Entries are nil when
// storage is disabled or the insert failed.
func (r *Runner) recordRuns(suites []Suite, run site.RunFolder, key string, logger zerolog.Logger) []*storage.Run {
	stored := make([]*storage.Run, len(suites))
	if r.Storage == nil {
		return stored
	}
	for i, suite := range suites {
		row, err := r.Storage.CreateRun(storage.RunMeta{
			Key:         key,
			Suite:       suite.Name,
			RunFolder:   run.Name,
			Environment: r.Env.Name,
			Branch:      r.Git.Branch,
			Commit:      r.Git.Commit,
		})
		if err != nil {
			logger.Error().Err(err).Str("suite", suite.Name).Msg("failed to record run")
			continue
		}
		stored[i] = row
	}
	return stored
}

// runSuite executes one suite and finishes its storage row and reports/.
func (r *Runner) runSuite(ctx context.Context, suite Suite, run site.RunFolder, key string, stored *storage.Run, opts RunOptions, logger zerolog.Logger) SuiteResult {
	start := time.Now()
	res := r.Execute(ctx, suite, run, opts, logger)
	if stored != nil {
		res.RunID = stored.ID
	}

	if _, _, err := report.WriteSuite(run.Dir(site.DirReports), res.Report, res.Results); err != nil {
		logger.Error().Err(err).Str("suite", suite.Name).Msg("failed to write suite report")
	}

	if stored != nil {
		totals := storage.Totals{
			Total:   res.Report.Total,
			Passed:  res.Report.Passed,
			Failed:  res.Report.Failed,
			Skipped: res.Report.Skipped,
		}
		if err := r.Storage.AddResults(stored.ID, res.Results); err != nil {
			logger.Error().Err(err).Str("suite", suite.Name).Msg("failed to store results")
		}
		if err := r.Storage.FinishRun(stored.ID, res.Status(), totals, time.Since(start)); err != nil {
			logger.Error().Err(err).Str("suite", suite.Name).Msg("failed to update run status")
		}
	}

	r.publish(events.SuiteFinished, map[string]any{
		"key":    key,
		"run":    run.Name,
		"suite":  suite.Name,
		"status": res.Status(),
		"total":  res.Report.Total,
		"failed": res.Report.Failed,
	})
	return res
}

func (r *Runner) writeUnified(name string, run site.RunFolder, results []SuiteResult, start, end time.Time, logger zerolog.Logger) *report.UnifiedReport {
	reports := make(map[string]*report.SuiteReport, len(results))
	var all []report.Result
	for _, sr := range results {
		reports[sr.Suite] = sr.Report
		for _, tr := range sr.Results {
			tr.Suite = sr.Suite
			all = append(all, tr)
		}
	}

	u := report.Unify(name, reports, start, end)
	if u == nil {
		return nil
	}
	if _, _, err := report.WriteUnified(run.Dir(site.DirReports), u, all); err != nil {
		logger.Error().Err(err).Msg("failed to write unified report")
	}
	return u
}

// publishSite stores the run summary and re-renders the run and root indexes.
func (r *Runner) publishSite(run site.RunFolder, name string, res *RunResult, start time.Time) error {
	summary := site.RunSummary{
		Title:       name,
		Status:      res.Status,
		Environment: r.Env.Name,
		Branch:      r.Git.Branch,
		Commit:      r.Git.Commit,
		StartedAt:   start,
		Duration:    res.Duration.Seconds(),
	}
	for _, sr := range res.Suites {
		rep := sr.Report
		summary.Total += rep.Total
		summary.Passed += rep.Passed
		summary.Failed += rep.Failed
		summary.Skipped += rep.Skipped
		summary.Suites = append(summary.Suites, site.SuiteSummary{
			Name:        sr.Suite,
			Total:       rep.Total,
			Passed:      rep.Passed,
			Failed:      rep.Failed,
			Skipped:     rep.Skipped,
			SuccessRate: rep.SuccessRate,
		})
	}
	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.Passed) / float64(summary.Total) * 100
	}

	if err := r.Site.WriteRunIndex(run, &summary); err != nil {
		return err
	}
	if _, err := r.Site.Prune(r.Config.Site.KeepRuns, r.Config.Retention(), r.clock()); err != nil {
		r.Logger.Warn().Err(err).Msg("failed to prune old runs")
	}
	if err := r.Site.WriteRootIndex(); err != nil {
		return err
	}
	r.publish(events.SiteUpdated, map[string]any{"run": run.Name})
	return nil
}

// applyRetention removes loose artifacts older than retention_days.
func (r *Runner) applyRetention(logger zerolog.Logger) {
	if r.Config.RetentionDays <= 0 || r.Config.ArtifactsDir == "" {
		return
	}
	mgr := cleanup.NewManager(r.Config.RetentionDays, cleanup.DefaultTargets(r.Config.ArtifactsDir), logger)
	mgr.CleanupAll(false)
}

func (r *Runner) contexts() map[string]string {
	if r.Suites == nil {
		return nil
	}
	return r.Suites.Contexts
}

// runStatus is failed when any suite failed, skipped when all were skipped,
// and passed otherwise.
func runStatus(results []SuiteResult) string {
	skipped := 0
	for _, sr := range results {
		switch sr.Status() {
		case site.StatusFailed:
			return site.StatusFailed
		case site.StatusSkipped:
			skipped++
		}
	}
	if skipped == len(results) {
		return site.StatusSkipped
	}
	return site.StatusPassed
}
