// Package linear implements ordinary least squares regression on gonum
// matrices.
package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/movielens/core/model"
	"github.com/YuminosukeSato/movielens/core/parallel"
	"github.com/YuminosukeSato/movielens/metrics"
	"github.com/YuminosukeSato/movielens/pkg/errors"
)

const defaultParallelThreshold = 1000

// LinearRegression fits y = Xw + b by least squares. Exported fields are
// gob encoded when a model holding it is persisted.
type LinearRegression struct {
	FitIntercept      bool
	ParallelThreshold int

	Coefficients  []float64
	InterceptTerm float64
	NFeatures     int

	State *model.StateManager
}

// NewLinearRegression returns an unfitted regressor.
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{
		FitIntercept:      true,
		ParallelThreshold: defaultParallelThreshold,
		State:             model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit solves the least squares problem with a QR factorisation of the
// design matrix. y must be a single column with one row per sample.
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}

	offset := 0
	if lr.FitIntercept {
		offset = 1
	}
	if r < c+offset {
		return errors.NewModelError("LinearRegression.Fit", "underdetermined system", errors.ErrSingularMatrix)
	}

	design := mat.NewDense(r, c+offset, nil)
	target := mat.NewVecDense(r, nil)
	parallel.ParallelizeWithThreshold(r, lr.ParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if offset == 1 {
				design.Set(i, 0, 1)
			}
			for j := 0; j < c; j++ {
				design.Set(i, j+offset, X.At(i, j))
			}
			target.SetVec(i, y.At(i, 0))
		}
	})

	var w mat.VecDense
	if err := w.SolveVec(design, target); err != nil {
		// mat.Condition above ConditionTolerance is treated as rank deficient
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.Wrap(errors.ErrSingularMatrix, err.Error()))
	}

	lr.InterceptTerm = 0
	if offset == 1 {
		lr.InterceptTerm = w.AtVec(0)
	}
	lr.Coefficients = make([]float64, c)
	for j := 0; j < c; j++ {
		lr.Coefficients[j] = w.AtVec(j + offset)
	}
	lr.NFeatures = c
	lr.state().SetFitted(r, c)
	return nil
}

// Predict returns an r×1 matrix of predictions.
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state().RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	w := mat.NewVecDense(c, append([]float64(nil), lr.Coefficients...))
	var out mat.VecDense
	out.MulVec(X, w)

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		predictions.Set(i, 0, out.AtVec(i)+lr.InterceptTerm)
	}
	return predictions, nil
}

// Weights returns a copy of the fitted coefficients.
func (lr *LinearRegression) Weights() []float64 {
	return append([]float64(nil), lr.Coefficients...)
}

// Intercept returns the fitted intercept, or 0 before Fit.
func (lr *LinearRegression) Intercept() float64 {
	return lr.InterceptTerm
}

// IsFitted reports whether Fit has succeeded.
func (lr *LinearRegression) IsFitted() bool {
	return lr.state().IsFitted()
}

// Score returns the coefficient of determination R² on (X, y).
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := y.Dims()
	if pr, _ := pred.Dims(); pr != r {
		return 0, errors.NewDimensionError("LinearRegression.Score", pr, r, 0)
	}
	return metrics.R2Score(
		mat.NewVecDense(r, mat.Col(nil, 0, y)),
		mat.NewVecDense(r, mat.Col(nil, 0, pred)),
	)
}

// state guards against a zero value or a gob-decoded model without state.
func (lr *LinearRegression) state() *model.StateManager {
	if lr.State == nil {
		lr.State = model.NewStateManager()
	}
	return lr.State
}

var (
	_ model.Regressor   = (*LinearRegression)(nil)
	_ model.LinearModel = (*LinearRegression)(nil)
)
