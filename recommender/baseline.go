package recommender

import (
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/movielens/core/model"
	"github.com/YuminosukeSato/movielens/dataset"
	"github.com/YuminosukeSato/movielens/pkg/errors"
)

// BaselineName is the registry key of Baseline.
const BaselineName = "baseline"

// Baseline predicts the global mean rating for every pair and recommends
// the movies with the highest mean rating.
type Baseline struct {
	GlobalMean float64
	Ranking    []int64

	State *model.StateManager
}

// NewBaseline returns an unfitted Baseline.
func NewBaseline() *Baseline {
	return &Baseline{State: model.NewStateManager()}
}

func (b *Baseline) Name() string { return BaselineName }

func (b *Baseline) Params() map[string]any { return map[string]any{} }

// Fit computes the global mean and the item ranking.
func (b *Baseline) Fit(ds *dataset.Dataset) error {
	b.state().Reset()
	if ds.Len() == 0 {
		return errors.NewModelError("Baseline.Fit", "empty data", errors.ErrEmptyData)
	}

	b.GlobalMean = stat.Mean(ds.Ratings(), nil)
	b.Ranking = rankByMeanRating(ds)
	b.state().SetFitted(ds.Len(), len(b.Ranking))
	return nil
}

// Predict returns GlobalMean once per pair.
func (b *Baseline) Predict(userIDs, itemIDs []int64) ([]float64, error) {
	if err := b.state().RequireFitted(BaselineName, "Predict"); err != nil {
		return nil, err
	}
	if len(userIDs) != len(itemIDs) {
		return nil, errors.NewDimensionError("Baseline.Predict", len(userIDs), len(itemIDs), 0)
	}

	out := make([]float64, len(userIDs))
	for i := range out {
		out[i] = b.GlobalMean
	}
	return out, nil
}

// Recommend returns up to n movies by descending mean rating. The user is
// ignored.
func (b *Baseline) Recommend(_ int64, n int) ([]int64, error) {
	if err := b.state().RequireFitted(BaselineName, "Recommend"); err != nil {
		return nil, err
	}
	return topN(b.Ranking, n), nil
}

// FitState exposes the fitted-state bookkeeping for model cards.
func (b *Baseline) FitState() *model.StateManager { return b.state() }

func (b *Baseline) state() *model.StateManager {
	if b.State == nil {
		b.State = model.NewStateManager()
	}
	return b.State
}

var _ model.Recommender = (*Baseline)(nil)
