package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"qapages/errors"
	"qapages/health"
)

func newHealthCmd(g *globalOptions) *cobra.Command {
	var endpoints []string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the target environment's UI and API services answer",
		Example: `  qapages health --env staging
  qapages health --endpoint auth --endpoint /api/package/all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			env, err := health.FromConfig(cfg)
			if err != nil {
				return err
			}
			checker := health.NewChecker(env, cfg.Health, logger)

			targets := cfg.Health.Endpoints
			if len(targets) == 0 {
				targets = health.DefaultEndpoints()
			}
			if len(endpoints) > 0 {
				targets = selectEndpoints(targets, endpoints)
			}

			t := newTable("SERVICE", "URL", "STATUS")
			t.statusCol = 2
			healthy := true

			ui := checker.UIAccessible(cmd.Context())
			t.add("ui", env.BaseURL, healthLabel(ui))
			healthy = healthy && ui

			statuses := checker.Comprehensive(cmd.Context(), targets)
			for _, name := range sortedKeys(statuses) {
				st := statuses[name]
				t.add(name, st.URL, healthLabel(st.Healthy))
				healthy = healthy && st.Healthy
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Environment: %s\n", env.Name)
			t.render(cmd.OutOrStdout())
			if !healthy {
				return fmt.Errorf("%w: %s", errors.ErrEnvUnreachable, env.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&endpoints, "endpoint", nil, "endpoint name from health.endpoints or an API path (repeatable)")
	return cmd
}

// selectEndpoints keeps the named endpoints; values starting with "/" are
// taken as paths.
func selectEndpoints(known map[string]string, wanted []string) map[string]string {
	out := make(map[string]string, len(wanted))
	for _, w := range wanted {
		if strings.HasPrefix(w, "/") {
			out[w] = w
			continue
		}
		if path, ok := known[w]; ok {
			out[w] = path
		}
	}
	return out
}

func healthLabel(ok bool) string {
	if ok {
		return "healthy"
	}
	return "unhealthy"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
