package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

// Split shuffles ds with a PCG source seeded by seed and returns the train
// and test partitions. The test side holds ceil(testSize*n) records. The
// same seed and input always produce the same partitions.
func Split(ds *Dataset, testSize float64, seed uint64) (train, test *Dataset, err error) {
	if !(testSize > 0 && testSize < 1) {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	n := ds.Len()
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest == 0 || nTrain == 0 {
		return nil, nil, errors.NewValueError("Split",
			fmt.Sprintf("cannot split %d records into non-empty train and test sets", n))
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := rng.Perm(n)
	return ds.Select(perm[nTest:]), ds.Select(perm[:nTest]), nil
}
