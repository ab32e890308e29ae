// Package cli defines the lms command line: the HTTP server and the
// maintenance commands that operate on the same database.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Byiringiro215/lms/internal/config"
	"github.com/Byiringiro215/lms/internal/entrypoint"
	"github.com/Byiringiro215/lms/internal/logger"
)

const serviceName = "lms"

// NewRootCommand builds the lms command tree. Running it without a
// subcommand starts the server.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "lms",
		Short:         "Library management service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(version)
		},
	}

	root.AddCommand(
		newServeCommand(version),
		newSweepCommand(),
		newPromoteCommand(),
		newSeedCommand(),
	)
	return root
}

func newServeCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default if no command given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(version)
		},
	}
}

func runServe(version string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	return entrypoint.Run(cfg, version, log)
}

// bootstrap loads the configuration and builds the logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := logger.NewLogger(serviceName, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}

// withApp runs fn against a fully wired application and closes it afterwards.
func withApp(fn func(app *entrypoint.App) error) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	app, err := entrypoint.NewApp(cfg, log)
	if err != nil {
		return err
	}

	runErr := fn(app)
	if err := app.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
