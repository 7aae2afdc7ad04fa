package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tunaaoguzhann/fixedwindow/core"
	"github.com/tunaaoguzhann/fixedwindow/internal/observability"
	"github.com/tunaaoguzhann/fixedwindow/internal/server"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		host     string
		port     int
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the rate limiting HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}

			logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			// The registry lives as long as the process; entries are never evicted.
			limiter, err := core.NewMemoryLimiterWithOptions(core.Options{
				MaxRequests: cfg.Limit.MaxRequests,
				Window:      cfg.Limit.Window,
			})
			if err != nil {
				return fmt.Errorf("failed to create limiter: %w", err)
			}

			var metrics *observability.Metrics
			if cfg.Metrics.Enabled {
				metrics = observability.NewMetrics(limiter.Clients)
			}

			srv, err := server.New(cfg, limiter, logger, metrics)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errChan := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errChan <- err
				}
				close(errChan)
			}()

			select {
			case err := <-errChan:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("received shutdown signal")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown failed", zap.Error(err))
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			logger.Info("HTTP server stopped gracefully")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "server host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "server port (overrides server.port)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (overrides logging.level: debug, info, warn, error)")
	return cmd
}
