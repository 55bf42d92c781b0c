package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"qapages/api"
	"qapages/events"
	"qapages/runner"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(g *globalOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API and published site, and run scheduled suites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			r, closeStore, err := newRunner(cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			broker := events.NewBroker(logger)
			r.Events = broker
			if err := r.Site.WriteRootIndex(); err != nil {
				return err
			}
			logger.Info().Int("suites", len(r.Suites.Suites)).Msg("📁 loaded suites")

			group, ctx := errgroup.WithContext(cmd.Context())

			srv := &http.Server{
				Addr: ":" + cfg.Server.Port,
				Handler: api.NewHandler(ctx, api.Deps{
					Store:    r.Storage,
					Suites:   r.Suites,
					Runner:   r,
					Broker:   broker,
					SiteRoot: r.Site.Root,
					Logger:   logger,
				}),
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext:       func(net.Listener) context.Context { return ctx },
			}

			group.Go(func() error {
				logger.Info().Str("port", cfg.Server.Port).Msg("🚀 starting qapages server")
				logger.Info().Msgf("📊 Dashboard: http://localhost:%s", cfg.Server.Port)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			})
			group.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			group.Go(func() error {
				runner.NewScheduler(r.Suites, r, logger).Start(ctx)
				return nil
			})
			group.Go(func() error {
				return r.Site.Watch(ctx, logger, func(name string) {
					broker.Broadcast(events.SiteUpdated, map[string]string{"run": name})
				})
			})

			return group.Wait()
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (default server.port)")
	return cmd
}
