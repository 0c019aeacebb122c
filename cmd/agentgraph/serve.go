package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/agentgraph/internal/cli"
	httpAdapter "github.com/aretw0/agentgraph/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP chat server",
	Long: `Compiles every agent configuration and serves:
  GET  /health-check
  POST /chat                 (primary configuration)
  POST /chat/{config_name}
  GET  /metrics
  GET  /openapi.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd, true, false)
		if err != nil {
			return err
		}
		defer app.Close()

		port := app.Settings.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		if err := app.Service.Build(sigCtx); err != nil {
			return fmt.Errorf("build graphs: %w", err)
		}

		handler, err := httpAdapter.NewHandler(sigCtx, app.Service,
			httpAdapter.WithLogger(app.Logger),
			httpAdapter.WithMetrics(app.Metrics.Handler()),
			httpAdapter.WithRequestObserver(app.Metrics.ObserveRequest),
		)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              ":" + strconv.Itoa(port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			app.Logger.Info("Starting agentgraph server", "addr", srv.Addr, "configs", app.Service.Configs(), "primary", app.Service.PrimaryConfig())
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-sigCtx.Done():
			app.Logger.Info("Start shutdown", "signal", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				app.Logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			app.Logger.Info("Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (PORT, default 8000)")
}
