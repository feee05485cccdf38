// Package model defines the capability contracts implemented by the
// recommender variants, the fitted-state bookkeeping they share, and gob
// persistence of fitted models.
package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/movielens/dataset"
)

// Fitter learns model state from a processed ratings dataset. Calling Fit
// again discards the previous state.
type Fitter interface {
	Fit(ds *dataset.Dataset) error
}

// Predictor estimates ratings for (user, item) pairs. The result has the
// same length as the inputs.
type Predictor interface {
	Predict(userIDs, itemIDs []int64) ([]float64, error)
}

// Ranker returns up to n item ids for a user, best first.
type Ranker interface {
	Recommend(userID int64, n int) ([]int64, error)
}

// Describer exposes identity and hyperparameters for logging.
type Describer interface {
	Name() string
	Params() map[string]any
}

// Recommender is the full capability set every model variant provides.
type Recommender interface {
	Fitter
	Predictor
	Ranker
	Describer
}

// Regressor is a matrix-level supervised model.
type Regressor interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// LinearModel exposes the learned coefficients of a linear regressor.
type LinearModel interface {
	Weights() []float64
	Intercept() float64
}

// Transformer learns a feature transformation and applies it.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
