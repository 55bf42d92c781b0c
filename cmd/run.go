package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"qapages/errors"
	"qapages/runner"
)

type runOptions struct {
	suites       []string
	all          bool
	skipEnvCheck bool
	noNotify     bool
}

func newRunCmd(g *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one or more suites into a new run folder",
		Example: `  qapages run --suite smoke
  qapages run --suite smoke --suite api --env staging
  qapages run --all --no-notify`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			r, closeStore, err := newRunner(cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()
			r.Stream = cmd.OutOrStdout()

			suites, err := r.Suites.Select(opts.suites, opts.all)
			if err != nil {
				return err
			}

			res, err := r.RunSuites(cmd.Context(), suites, runner.RunOptions{
				SkipEnvCheck: opts.skipEnvCheck,
				Notify:       !opts.noNotify,
				Trigger:      "manual",
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n📊 Run: %s | Key: %s | Status: %s | Duration: %s\n",
				res.Folder.Name, res.Key, res.Status, res.Duration.Round(time.Millisecond))
			for _, sr := range res.Suites {
				fmt.Fprintf(cmd.OutOrStdout(), "   %s %s: %d/%d passed, %d failed, %d skipped\n",
					statusIcon(sr.Status()), sr.Suite, sr.Report.Passed, sr.Report.Total, sr.Report.Failed, sr.Report.Skipped)
			}

			if res.Failed() {
				return fmt.Errorf("%w: run %s has failures", errors.ErrCheckFailed, res.Folder.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&opts.suites, "suite", "s", nil, "suite to run (repeatable)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "run every suite in the suites file")
	cmd.Flags().BoolVar(&opts.skipEnvCheck, "skip-env-check", false, "skip the environment availability check (use with caution)")
	cmd.Flags().BoolVar(&opts.noNotify, "no-notify", false, "do not send Slack or email notifications")
	cmd.MarkFlagsMutuallyExclusive("suite", "all")
	return cmd
}
