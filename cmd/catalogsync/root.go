package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abgdnv/catalogsync/internal/app"
	"github.com/abgdnv/catalogsync/internal/config"
	"github.com/abgdnv/catalogsync/pkg/bootstrap"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Manage a local product catalog and browse the remote one",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "config.yaml", "yaml configuration file")

	cmd.AddCommand(
		newServeCmd(opts),
		newAddCmd(opts),
		newUpdateCmd(opts),
		newListCmd(opts),
		newDeleteCmd(opts),
		newBrowseCmd(opts),
		newSignInCmd(opts),
		newSignUpCmd(opts),
	)
	return cmd
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// withDependencies wires the application for a one-shot command. Logs go to stderr, results to stdout.
func withDependencies(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, deps *app.Dependencies) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := bootstrap.NewLoggerTo(cmd.ErrOrStderr(), cfg.Log.Level)

	deps, err := app.SetupDependencies(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("Failed to release resources", "error", err)
		}
	}()
	return fn(cmd.Context(), deps)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
