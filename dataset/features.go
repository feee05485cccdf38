package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/movielens/core/parallel"
	"github.com/YuminosukeSato/movielens/pkg/errors"
)

const parallelThreshold = 1 << 14

// Features is the regression view of a dataset: one row per record with
// the user and movie ids as features and the rating as target.
type Features struct {
	X     *mat.Dense
	Y     *mat.VecDense
	Names []string
}

// NewFeatures builds the regression view. The dataset is not modified.
func NewFeatures(ds *Dataset) (*Features, error) {
	n := ds.Len()
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "build features")
	}

	x := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			r := ds.Records[i]
			x.Set(i, 0, float64(r.UserID))
			x.Set(i, 1, float64(r.MovieID))
			y.SetVec(i, r.Rating)
		}
	})

	return &Features{
		X:     x,
		Y:     y,
		Names: []string{ds.Columns.UserID, ds.Columns.MovieID},
	}, nil
}

// PairMatrix builds the feature matrix for (user, item) query pairs.
func PairMatrix(userIDs, itemIDs []int64) (*mat.Dense, error) {
	if len(userIDs) != len(itemIDs) {
		return nil, errors.NewDimensionError("PairMatrix", len(userIDs), len(itemIDs), 0)
	}
	if len(userIDs) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "build query matrix")
	}
	x := mat.NewDense(len(userIDs), 2, nil)
	for i := range userIDs {
		x.Set(i, 0, float64(userIDs[i]))
		x.Set(i, 1, float64(itemIDs[i]))
	}
	return x, nil
}

// Dims returns the number of rows and features.
func (f *Features) Dims() (rows, cols int) {
	return f.X.Dims()
}
