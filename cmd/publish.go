package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"qapages/site"
)

func newPublishCmd(g *globalOptions) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "publish <artifacts-dir>",
		Short: "Copy an artifacts directory into a new run folder and rebuild the indexes",
		Long: `publish imports artifacts produced outside qapages. Subdirectories named
reports, logs, screenshots or api_failed_responses keep their place; any
other entry lands under reports/.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}

			t := time.Now()
			if at != "" {
				if t, err = site.ParseRunName(at); err != nil {
					return err
				}
			}

			s := site.New(cfg.Site.Root, cfg.Site.Title)
			run, err := s.CreateRun(t)
			if err != nil {
				return err
			}
			n, err := s.Import(run, args[0])
			if err != nil {
				return err
			}
			if err := s.WriteRunIndex(run, nil); err != nil {
				return err
			}
			removed, err := s.Prune(cfg.Site.KeepRuns, cfg.Retention(), time.Now())
			if err != nil {
				logger.Warn().Err(err).Msg("failed to prune old runs")
			}
			if err := s.WriteRootIndex(); err != nil {
				return err
			}

			logger.Info().Str("run", run.Name).Int("files", n).Int("pruned", len(removed)).Msg("artifacts published")
			fmt.Fprintf(cmd.OutOrStdout(), "📦 Published %d file(s) to %s\n", n, run.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "time", "", "run folder name to use instead of now (YYYY-MM-DD_HH-MM-SS)")
	return cmd
}

func newIndexCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild every run index and the root index of the site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := g.load(cmd)
			if err != nil {
				return err
			}
			s := site.New(cfg.Site.Root, cfg.Site.Title)
			if err := s.Rebuild(); err != nil {
				return err
			}
			runs, err := s.ListRuns()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗂  Rebuilt indexes for %d run(s) in %s\n", len(runs), s.Root)
			return nil
		},
	}
}
