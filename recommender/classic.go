package recommender

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/movielens/core/model"
	"github.com/YuminosukeSato/movielens/dataset"
	"github.com/YuminosukeSato/movielens/linear"
	"github.com/YuminosukeSato/movielens/pkg/errors"
	"github.com/YuminosukeSato/movielens/preprocessing"
)

// ClassicName is the registry key of Classic.
const ClassicName = "classic"

// ClassicParams are the hyperparameters of Classic.
type ClassicParams struct {
	// Standardize scales user and movie ids before regression.
	Standardize bool `mapstructure:"standardize"`
	// Clip bounds predictions to the valid rating range.
	Clip bool `mapstructure:"clip"`
}

// DefaultClassicParams returns the defaults applied before decoding.
func DefaultClassicParams() ClassicParams {
	return ClassicParams{Standardize: false, Clip: true}
}

// Classic regresses rating on (user id, movie id) with ordinary least
// squares. Recommendations follow the same historical mean ranking as
// Baseline.
type Classic struct {
	Config    ClassicParams
	Regressor *linear.LinearRegression
	Scaler    *preprocessing.StandardScaler
	Ranking   []int64

	State *model.StateManager
}

// NewClassic returns an unfitted Classic.
func NewClassic(params ClassicParams) *Classic {
	return &Classic{Config: params, State: model.NewStateManager()}
}

func (c *Classic) Name() string { return ClassicName }

func (c *Classic) Params() map[string]any {
	return map[string]any{
		"standardize": c.Config.Standardize,
		"clip":        c.Config.Clip,
	}
}

// Fit trains a fresh regressor (and scaler, when enabled) on ds.
func (c *Classic) Fit(ds *dataset.Dataset) error {
	c.state().Reset()
	features, err := dataset.NewFeatures(ds)
	if err != nil {
		return errors.NewModelError("Classic.Fit", "build features", err)
	}

	var X mat.Matrix = features.X
	c.Scaler = nil
	if c.Config.Standardize {
		c.Scaler = preprocessing.NewStandardScalerDefault()
		if X, err = c.Scaler.FitTransform(X); err != nil {
			return err
		}
	}

	c.Regressor = linear.NewLinearRegression()
	if err := c.Regressor.Fit(X, features.Y); err != nil {
		return err
	}

	c.Ranking = rankByMeanRating(ds)
	c.state().SetFitted(ds.Len(), len(c.Ranking))
	return nil
}

// Predict evaluates the regression for each pair.
func (c *Classic) Predict(userIDs, itemIDs []int64) ([]float64, error) {
	if err := c.state().RequireFitted(ClassicName, "Predict"); err != nil {
		return nil, err
	}
	if len(userIDs) != len(itemIDs) {
		return nil, errors.NewDimensionError("Classic.Predict", len(userIDs), len(itemIDs), 0)
	}
	if len(userIDs) == 0 {
		return []float64{}, nil
	}

	x, err := dataset.PairMatrix(userIDs, itemIDs)
	if err != nil {
		return nil, err
	}
	var X mat.Matrix = x
	if c.Scaler != nil {
		if X, err = c.Scaler.Transform(X); err != nil {
			return nil, err
		}
	}

	pred, err := c.Regressor.Predict(X)
	if err != nil {
		return nil, err
	}
	out := mat.Col(nil, 0, pred)
	if c.Config.Clip {
		for i, v := range out {
			out[i] = errors.ClipValue(v, dataset.MinRating, dataset.MaxRating)
		}
	}
	return out, nil
}

// Recommend returns up to n movies by descending mean rating.
func (c *Classic) Recommend(_ int64, n int) ([]int64, error) {
	if err := c.state().RequireFitted(ClassicName, "Recommend"); err != nil {
		return nil, err
	}
	return topN(c.Ranking, n), nil
}

// Weights returns the regression coefficients in (user, movie) order.
func (c *Classic) Weights() []float64 {
	if c.Regressor == nil {
		return nil
	}
	return c.Regressor.Weights()
}

// Intercept returns the regression intercept.
func (c *Classic) Intercept() float64 {
	if c.Regressor == nil {
		return 0
	}
	return c.Regressor.Intercept()
}

// FitState exposes the fitted-state bookkeeping for model cards.
func (c *Classic) FitState() *model.StateManager { return c.state() }

func (c *Classic) state() *model.StateManager {
	if c.State == nil {
		c.State = model.NewStateManager()
	}
	return c.State
}

var (
	_ model.Recommender = (*Classic)(nil)
	_ model.LinearModel = (*Classic)(nil)
)
