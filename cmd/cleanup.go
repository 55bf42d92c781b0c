package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"qapages/cleanup"
	"qapages/site"
)

type cleanupOptions struct {
	days     int
	dryRun   bool
	stats    bool
	targets  []string
	keepRuns int
}

func newCleanupCmd(g *globalOptions) *cobra.Command {
	opts := &cleanupOptions{}
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete artifacts and run folders older than the retention period",
		Example: `  qapages cleanup --stats
  qapages cleanup --days 7 --dry-run
  qapages cleanup --targets logs,screenshots`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			days := cfg.RetentionDays
			if cmd.Flags().Changed("days") {
				days = opts.days
			}
			keep := cfg.Site.KeepRuns
			if cmd.Flags().Changed("keep-runs") {
				keep = opts.keepRuns
			}

			mgr := cleanup.NewManager(days, cleanup.DefaultTargets(cfg.ArtifactsDir), logger)
			out := cmd.OutOrStdout()

			if opts.stats {
				stats := mgr.Stats()
				t := newTable("TARGET", "DIR", "FILES", "SIZE")
				for _, name := range mgr.TargetNames() {
					ds := stats[name]
					if !ds.Exists {
						t.add(name, ds.Dir, "-", "missing")
						continue
					}
					t.add(name, ds.Dir, strconv.Itoa(ds.FileCount), ds.HumanSize())
				}
				fmt.Fprintf(out, "Files older than %d day(s):\n", days)
				t.render(out)
				return nil
			}

			results := mgr.CleanupAll(opts.dryRun, opts.targets...)
			verb := "Deleted"
			if opts.dryRun {
				verb = "Would delete"
			}
			total := 0
			for _, name := range mgr.TargetNames() {
				if r, ok := results[name]; ok {
					fmt.Fprintf(out, "🧹 %s %d file(s) from %s\n", verb, r.Deleted, r.Dir)
					total += r.Deleted
				}
			}

			if opts.dryRun {
				fmt.Fprintf(out, "Dry run: %d file(s) would be deleted; run folders left untouched\n", total)
				return nil
			}

			s := site.New(cfg.Site.Root, cfg.Site.Title)
			removed, err := s.Prune(keep, time.Duration(days)*24*time.Hour, time.Now())
			if err != nil {
				return err
			}
			if len(removed) > 0 {
				if err := s.WriteRootIndex(); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "🧹 Deleted %d file(s) and %d run folder(s)\n", total, len(removed))
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.days, "days", 0, "retention in days (default retention_days)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "show what would be deleted")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "show per-target counts and sizes only")
	cmd.Flags().StringSliceVar(&opts.targets, "targets", nil, "targets to clean: logs, reports, screenshots, api_failed_responses")
	cmd.Flags().IntVar(&opts.keepRuns, "keep-runs", 0, "run folders to keep (default site.keep_runs)")
	return cmd
}
