// Package cmd implements the qapages command line.
package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"qapages/config"
	"qapages/logging"
	"qapages/runner"
	"qapages/runner/storage"
)

// DBFile is the run history database inside data_dir.
const DBFile = "qapages.db"

type globalOptions struct {
	configPath string
	env        string
	verbose    bool
	quiet      bool
}

// NewRootCmd builds the qapages command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "qapages",
		Short: "Run QA suites and publish their artifacts as a static site",
		Long: `qapages runs QA suites against a target environment, records every run
and publishes reports, logs, screenshots and API failure dumps into
timestamped folders of a site laid out for a gh-pages branch.`,
		// Errors are printed once by cobra; usage only on flag errors.
		SilenceUsage: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			logging.Close()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./qapages.yaml)")
	root.PersistentFlags().StringVar(&opts.env, "env", "", "target environment (dev, qa, staging, production)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "only warnings and errors")

	root.AddCommand(
		newRunCmd(opts),
		newPublishCmd(opts),
		newIndexCmd(opts),
		newCleanupCmd(opts),
		newHealthCmd(opts),
		newRunsCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// Execute runs the command line with ctx cancelled on shutdown signals.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// load reads configuration, honouring --config and --env, and sets up logging.
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	v := config.NewViper()
	if err := v.BindPFlag("env", cmd.Flags().Lookup("env")); err != nil {
		return nil, zerolog.Nop(), err
	}

	cfg, err := config.LoadWith(v, o.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	// Keep TTY detection for the real stderr; tests redirect it.
	var console io.Writer
	if w := cmd.ErrOrStderr(); w != os.Stderr {
		console = w
	}
	logger := logging.Init(logging.Options{
		Verbose: o.verbose,
		Quiet:   o.quiet,
		DataDir: cfg.DataDir,
		Console: console,
	})
	return cfg, logger, nil
}

func openStorage(cfg *config.Config) (*storage.Storage, error) {
	return storage.NewStorage(filepath.Join(cfg.DataDir, DBFile))
}

// newRunner loads the suites file and wires a runner with run history.
// The returned close func releases the database.
func newRunner(cfg *config.Config, logger zerolog.Logger) (*runner.Runner, func(), error) {
	suites, err := runner.LoadSuites(cfg.SuitesFile)
	if err != nil {
		return nil, nil, err
	}
	r, err := runner.New(cfg, suites, logger)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStorage(cfg)
	if err != nil {
		return nil, nil, err
	}
	r.Storage = store
	return r, func() { _ = store.Close() }, nil
}
