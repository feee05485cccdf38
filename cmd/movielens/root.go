package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/movielens/config"
	"github.com/YuminosukeSato/movielens/pkg/log"
	"github.com/YuminosukeSato/movielens/tracking"
)

var version = "dev"

type rootOptions struct {
	configDir string
	logLevel  string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "movielens",
		Short: "Train and compare movie rating recommenders",
		Long: `movielens prepares a ratings dataset, trains a recommender selected by
profile, evaluates it and records the run in a local tracking store.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usage(err) })

	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", "conf", "Directory holding config.yaml and exp/<profile>.yaml")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override logging.level")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newRunsCommand(opts))
	cmd.AddCommand(newProfileCommand())
	cmd.AddCommand(newRecommendCommand(opts))
	return cmd
}

func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCommand().ExecuteContext(ctx)
}

// load reads the configuration for profile and installs the logger it
// describes.
func (o *rootOptions) load(profile string) (*config.Config, error) {
	cfg, err := config.Load(o.configDir, profile)
	if err != nil {
		return nil, usage(err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if _, err := log.Init(log.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		return nil, usage(err)
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*tracking.SQLiteStore, error) {
	return tracking.OpenSQLite(ctx, cfg.Tracking.DSN, cfg.Tracking.ArtifactRoot)
}
