package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/movielens/pipeline"
	"github.com/YuminosukeSato/movielens/publish"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the feature pipeline and train one model",
		Long: `Run loads the configuration for --profile, rebuilds the processed dataset,
trains the profile's model and logs parameters, metrics, artifacts and
plots to the tracking store.`,
		Example: "  movielens run --profile classic",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := root.load(profile)
			if err != nil {
				return err
			}

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var opts []pipeline.Option
			if cfg.Publish.Enabled {
				pub, err := publish.NewRedisPublisher(ctx, publish.RedisConfig{
					Addr: cfg.Publish.Addr,
					DB:   cfg.Publish.DB,
					Key:  cfg.Publish.Key,
					TTL:  cfg.Publish.TTL,
				})
				if err != nil {
					return err
				}
				defer pub.Close()
				opts = append(opts, pipeline.WithPublisher(pub))
			}

			return pipeline.New(cfg, store, opts...).Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&profile, "profile", "p", "baseline", "Experiment profile under <config-dir>/exp")
	return cmd
}
