// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/fireasync/fbasync/metrics"
)

// newServeCommand opens one Connection and exposes its queue depth, rows
// fetched and commands processed as a Prometheus /metrics endpoint until
// interrupted.
func newServeCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Expose one connection's worker counters on a Prometheus /metrics endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !app.cfg.MetricsEnabled {
				return errors.New("fbshell: metricsEnabled is false in config; enable it to run serve")
			}

			c, err := openDemoConnection(app)
			if err != nil {
				return err
			}
			defer c.Shutdown(app.cfg.QueueTimeout())

			collector := metrics.NewCollector()
			collector.Add(app.cfg.DSN, c)

			reg := prometheus.NewRegistry()
			if err := reg.Register(collector); err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: app.cfg.MetricsAddr(), Handler: mux}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			app.log.Info().Str("addr", app.cfg.MetricsAddr()).Msg("serving metrics")

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.QueueTimeout())
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}
}
