package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/abgdnv/catalogsync/internal/app"
	"github.com/abgdnv/catalogsync/pkg/bootstrap"
	"github.com/abgdnv/catalogsync/pkg/server"
	"github.com/abgdnv/catalogsync/pkg/telemetry"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local catalog API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
}

// serve starts the HTTP server and stops it gracefully when ctx is cancelled.
func serve(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("Failed to flush traces", "error", err)
		}
	}()

	deps, err := app.SetupDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error("Failed to release resources", "error", err)
		}
	}()

	httpServer := app.SetupHttpServer(deps, cfg)
	if err := server.Run(ctx, httpServer, cfg.Shutdown.Timeout, logger, nil); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
