package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"searchforge/internal/adapter/httpapi"
	"searchforge/internal/infra/logger"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		Long: `Serve GET /v1/search?q=...&q=...&max_results=N, /healthz and /metrics.

Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: a.withSetup(func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			reg := a.newMetricsRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			_, adapter, err := a.newRegistry()
			if err != nil {
				return err
			}

			srv := httpapi.New(a.cfg.Server, adapter, reg, logger.Component(a.logger, "http"))
			ctx := cmd.Context()
			if err := srv.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "listening on %s\n", srv.Addr())

			<-ctx.Done()
			a.logger.Info("shutting down", "timeout", a.cfg.Server.ShutdownTimeout)
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Stop(shutdownCtx)
		}),
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	return cmd
}
