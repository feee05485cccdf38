package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/movielens/core/model"
	"github.com/YuminosukeSato/movielens/recommender"
	"github.com/YuminosukeSato/movielens/training"
)

func newRecommendCommand(root *rootOptions) *cobra.Command {
	var (
		runID  string
		userID int64
		n      int
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend movies with the model logged by a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load("")
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			m, err := loadRunModel(run.ArtifactURI)
			if err != nil {
				return err
			}
			items, err := m.Recommend(userID, n)
			if err != nil {
				return err
			}
			for i, id := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\n", i+1, id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run id as listed by 'movielens runs'")
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "User id")
	cmd.Flags().IntVarP(&n, "num", "n", 10, "Number of movies")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

// loadRunModel rebuilds the model described by the run's model card and
// decodes its fitted state.
func loadRunModel(artifactURI string) (model.Recommender, error) {
	dir := filepath.Join(artifactURI, training.ModelArtifactDir)
	card, err := model.ReadModelCard(filepath.Join(dir, training.ModelCardFile))
	if err != nil {
		return nil, err
	}
	m, err := recommender.Create(recommender.ModelSpec{Name: card.ModelType, Params: card.Hyperparameters})
	if err != nil {
		return nil, err
	}
	if err := model.LoadModelFile(m, filepath.Join(dir, training.ModelFile)); err != nil {
		return nil, err
	}
	return m, nil
}
