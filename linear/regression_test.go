package linear

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/movielens/core/model"
	"github.com/YuminosukeSato/movielens/pkg/errors"
)

// y = 1 + 0.5*x0 + 0.25*x1
func noiselessData() (*mat.Dense, *mat.Dense) {
	xs := [][2]float64{{1, 10}, {2, 30}, {3, 20}, {4, 50}, {5, 40}, {6, 10}}
	X := mat.NewDense(len(xs), 2, nil)
	y := mat.NewDense(len(xs), 1, nil)
	for i, x := range xs {
		X.Set(i, 0, x[0])
		X.Set(i, 1, x[1])
		y.Set(i, 0, 1+0.5*x[0]+0.25*x[1])
	}
	return X, y
}

func TestLinearRegression_Fit(t *testing.T) {
	X, y := noiselessData()

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	assert.True(t, lr.IsFitted())
	assert.InDelta(t, 1.0, lr.Intercept(), 1e-9)
	require.Len(t, lr.Weights(), 2)
	assert.InDelta(t, 0.5, lr.Weights()[0], 1e-9)
	assert.InDelta(t, 0.25, lr.Weights()[1], 1e-9)

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestLinearRegression_ParallelPreparation(t *testing.T) {
	X, y := noiselessData()

	lr := NewLinearRegression(WithParallelThreshold(1))
	require.NoError(t, lr.Fit(X, y))
	assert.InDelta(t, 0.25, lr.Weights()[1], 1e-9)
}

func TestLinearRegression_WithoutIntercept(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{2, 4, 6})

	lr := NewLinearRegression(WithFitIntercept(false))
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, 0.0, lr.Intercept())
	assert.InDelta(t, 2.0, lr.Weights()[0], 1e-9)
}

func TestLinearRegression_Predict(t *testing.T) {
	X, y := noiselessData()
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	pred, err := lr.Predict(mat.NewDense(1, 2, []float64{10, 100}))
	require.NoError(t, err)
	assert.InDelta(t, 31.0, pred.At(0, 0), 1e-8)

	_, err = lr.Predict(mat.NewDense(1, 3, []float64{1, 2, 3}))
	var dimErr *errors.DimensionError
	assert.ErrorAs(t, err, &dimErr)
}

func TestLinearRegression_Errors(t *testing.T) {
	tests := []struct {
		name string
		X    *mat.Dense
		y    *mat.Dense
	}{
		{"row mismatch", mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(2, 1, []float64{1, 2})},
		{"multi target", mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(2, 2, []float64{1, 2, 3, 4})},
		{"underdetermined", mat.NewDense(1, 2, []float64{1, 2}), mat.NewDense(1, 1, []float64{1})},
		{"singular", mat.NewDense(3, 2, []float64{1, 2, 2, 4, 3, 6}), mat.NewDense(3, 1, []float64{1, 2, 3})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression()
			assert.Error(t, lr.Fit(tt.X, tt.y))
			assert.False(t, lr.IsFitted())
		})
	}
}

func TestLinearRegression_NotFitted(t *testing.T) {
	_, err := NewLinearRegression().Predict(mat.NewDense(1, 1, []float64{1}))

	var notFitted *errors.NotFittedError
	require.ErrorAs(t, err, &notFitted)
	assert.Equal(t, "Predict", notFitted.Method)
}

func TestLinearRegression_GobRoundTrip(t *testing.T) {
	X, y := noiselessData()
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModel(lr, &buf))

	var loaded LinearRegression
	require.NoError(t, model.LoadModel(&loaded, &buf))

	assert.True(t, loaded.IsFitted())
	assert.InDeltaSlice(t, lr.Weights(), loaded.Weights(), 1e-12)
	assert.Equal(t, lr.Intercept(), loaded.Intercept())
}
