package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{
			name:  "perfect prediction",
			yTrue: mat.NewVecDense(5, []float64{1, 2, 3, 4, 5}),
			yPred: mat.NewVecDense(5, []float64{1, 2, 3, 4, 5}),
			want:  0,
		},
		{
			name:  "simple case",
			yTrue: mat.NewVecDense(4, []float64{1, 2, 3, 4}),
			yPred: mat.NewVecDense(4, []float64{1.5, 2.5, 2.5, 3.5}),
			want:  0.25,
		},
		{
			name:  "larger errors",
			yTrue: mat.NewVecDense(3, []float64{10, 20, 30}),
			yPred: mat.NewVecDense(3, []float64{12, 18, 33}),
			want:  17.0 / 3.0,
		},
		{
			name:    "dimension mismatch",
			yTrue:   mat.NewVecDense(3, []float64{1, 2, 3}),
			yPred:   mat.NewVecDense(2, []float64{1, 2}),
			wantErr: true,
		},
		{
			name:    "empty vectors",
			yTrue:   &mat.VecDense{},
			yPred:   &mat.VecDense{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-10)
		})
	}
}

func TestRMSE(t *testing.T) {
	yTrue := mat.NewVecDense(3, []float64{1, 3, 5})
	yPred := mat.NewVecDense(3, []float64{3, 3, 3})

	got, err := RMSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(8.0/3.0), got, 1e-12)
}

func TestMAE(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	yPred := mat.NewVecDense(4, []float64{2, 2, 2, 2})

	got, err := MAE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)

	_, err = MAE(yTrue, mat.NewVecDense(1, []float64{1}))
	var dimErr *errors.DimensionError
	assert.ErrorAs(t, err, &dimErr)
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{"perfect", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"mean predictor", []float64{1, 3, 5}, []float64{3, 3, 3}, 0},
		{"worse than mean", []float64{1, 2, 3}, []float64{3, 2, 1}, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(
				mat.NewVecDense(len(tt.yTrue), tt.yTrue),
				mat.NewVecDense(len(tt.yPred), tt.yPred),
			)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestR2Score_ConstantTruth(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(func(error) {})

	yTrue := mat.NewVecDense(3, []float64{4, 4, 4})

	got, err := R2Score(yTrue, mat.NewVecDense(3, []float64{4, 4, 4}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = R2Score(yTrue, mat.NewVecDense(3, []float64{3, 4, 5}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	require.Len(t, warnings, 2)
	var undefined *errors.UndefinedMetricWarning
	assert.ErrorAs(t, warnings[1], &undefined)
}

func TestRegression(t *testing.T) {
	scores, err := Regression(
		mat.NewVecDense(3, []float64{1, 3, 5}),
		mat.NewVecDense(3, []float64{3, 3, 3}),
	)
	require.NoError(t, err)
	assert.Len(t, scores, 3)
	assert.InDelta(t, math.Sqrt(8.0/3.0), scores[RMSEName], 1e-12)
	assert.InDelta(t, 4.0/3.0, scores[MAEName], 1e-12)
	assert.InDelta(t, 0.0, scores[R2Name], 1e-12)
}
