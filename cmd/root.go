// Package cmd defines the CLI commands for the bookharvest executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openshelf/bookharvest/internal/config"
	"github.com/openshelf/bookharvest/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookharvest",
		Short: "Resumable bulk enrichment harvester for the book catalog",
		Long: `bookharvest works through a list of authors or ISBNs, issuing one
enrichment call per item against the remote catalog API. Progress is
checkpointed continuously, so a run stopped by the remote daily quota, an
error, or an operator interrupt resumes exactly where it left off.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newHarvestCmd())
	cmd.AddCommand(newPreviewCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute is the main entry point. It installs signal handling so SIGINT and
// SIGTERM cancel the run context and the dispatcher can flush its checkpoint.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger every subcommand shares.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func syncLogger(logger *zap.Logger) {
	// Sync on stderr returns EINVAL on some platforms; nothing to do about it.
	_ = logger.Sync()
}
