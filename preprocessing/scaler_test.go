package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 7,
		2, 7,
		3, 7,
		4, 7,
	})

	tests := []struct {
		name      string
		withMean  bool
		withStd   bool
		wantMean  []float64
		wantScale []float64
		wantFirst []float64
	}{
		{
			name:      "mean and std",
			withMean:  true,
			withStd:   true,
			wantMean:  []float64{2.5, 7},
			wantScale: []float64{1.118033988749895, 1},
			wantFirst: []float64{-1.3416407864998738, 0},
		},
		{
			name:      "mean only",
			withMean:  true,
			withStd:   false,
			wantMean:  []float64{2.5, 7},
			wantScale: []float64{1, 1},
			wantFirst: []float64{-1.5, 0},
		},
		{
			name:      "std only",
			withMean:  false,
			withStd:   true,
			wantMean:  []float64{0, 0},
			wantScale: []float64{1.118033988749895, 1},
			wantFirst: []float64{0.8944271909999159, 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStandardScaler(tt.withMean, tt.withStd)
			out, err := s.FitTransform(X)
			require.NoError(t, err)

			assert.InDeltaSlice(t, tt.wantMean, s.Mean, 1e-12)
			assert.InDeltaSlice(t, tt.wantScale, s.Scale, 1e-12)
			assert.InDeltaSlice(t, tt.wantFirst, mat.Row(nil, 0, out), 1e-12)
		})
	}
}

func TestStandardScaler_Errors(t *testing.T) {
	s := NewStandardScalerDefault()

	_, err := s.Transform(mat.NewDense(1, 2, []float64{1, 2}))
	var notFitted *errors.NotFittedError
	require.ErrorAs(t, err, &notFitted)

	require.NoError(t, s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = s.Transform(mat.NewDense(1, 3, []float64{1, 2, 3}))
	var dimErr *errors.DimensionError
	assert.ErrorAs(t, err, &dimErr)
}
