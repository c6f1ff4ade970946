package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"petrovisor/internal/logging"
	mcpserver "petrovisor/internal/mcp"
)

func newServeCmd(a *app) *cobra.Command {
	var flags struct {
		maxRows     int
		metricsAddr string
	}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Long: `Starts an MCP server over stdin/stdout exposing read tools for the
workspace: items, signals, signal data, reference tables and pivot tables.

The server monitors for parent process death and exits when its client is
gone. With --metrics-addr API call metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.New("serve")
			if flags.metricsAddr != "" {
				reg := prometheus.NewRegistry()
				a.registerer = reg
				srv := &http.Server{
					Addr:              flags.metricsAddr,
					Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("metrics server", "addr", flags.metricsAddr, "error", err)
					}
				}()
				defer srv.Shutdown(context.WithoutCancel(cmd.Context()))
			}

			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			srv := mcpserver.NewServer(c, version)
			srv.MaxRows = flags.maxRows

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			mcpserver.WatchParent(ctx, cancel)

			return srv.Serve(ctx)
		},
	}
	cmd.Flags().IntVar(&flags.maxRows, "max-rows", mcpserver.DefaultMaxRows, "rows returned per table")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}
