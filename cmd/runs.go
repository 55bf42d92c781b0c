package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newRunsCmd(g *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs from the run history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := g.load(cmd)
			if err != nil {
				return err
			}
			store, err := openStorage(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.GetRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
				return nil
			}

			t := newTable("ID", "SUITE", "STATUS", "TESTS", "FAILED", "ENV", "FOLDER", "STARTED")
			t.statusCol = 2
			for _, r := range runs {
				t.add(
					strconv.FormatInt(r.ID, 10),
					r.Suite,
					r.Status,
					strconv.Itoa(r.Total),
					strconv.Itoa(r.Failed),
					r.Environment,
					r.RunFolder,
					humanize.RelTime(r.StartedAt, time.Now(), "ago", "from now"),
				)
			}
			t.render(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}
