package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

func records(movies ...int64) []RatingRecord {
	out := make([]RatingRecord, len(movies))
	for i, m := range movies {
		out[i] = RatingRecord{UserID: int64(i + 1), MovieID: m, Rating: 3, Timestamp: int64(i)}
	}
	return out
}

func TestColumns_Validate(t *testing.T) {
	assert.NoError(t, DefaultColumns().Validate())

	dup := DefaultColumns()
	dup.Rating = dup.UserID
	assert.Error(t, dup.Validate())

	empty := DefaultColumns()
	empty.Timestamp = ""
	var vErr *errors.ValidationError
	assert.ErrorAs(t, empty.Validate(), &vErr)
}

func TestDropNulls(t *testing.T) {
	recs := records(1, 2, 3)
	recs[1].Null = FieldRating
	ds := New(DefaultColumns(), recs)

	out := DropNulls(ds)
	assert.Equal(t, []int64{1, 3}, out.MovieIDs())
	assert.Equal(t, 3, ds.Len(), "input must not be modified")
}

func TestKeepByCount(t *testing.T) {
	ds := New(DefaultColumns(), records(1, 2, 1, 3, 2, 1))

	tests := []struct {
		name     string
		min, max int
		want     []int64
	}{
		{"strictly more than one", 1, 0, []int64{1, 2, 1, 2, 1}},
		{"strictly more than two", 2, 0, []int64{1, 1, 1}},
		{"zero keeps all", 0, 0, []int64{1, 2, 1, 3, 2, 1}},
		{"at most two", 0, 2, []int64{2, 3, 2}},
		{"at most three keeps all", 0, 3, []int64{1, 2, 1, 3, 2, 1}},
		{"both bounds", 1, 2, []int64{2, 2}},
		{"nothing survives", 5, 0, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := KeepByCount(ds, tt.min, tt.max)
			assert.Equal(t, tt.want, out.MovieIDs())

			counts := map[int64]int{}
			for _, m := range out.MovieIDs() {
				counts[m]++
			}
			for m, c := range counts {
				assert.Greater(t, c, tt.min, "movie %d", m)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		recs := records(1, 2)
		recs[0].Rating = MinRating
		recs[1].Rating = MaxRating
		assert.NoError(t, Validate(New(DefaultColumns(), recs)))
	})

	t.Run("violations", func(t *testing.T) {
		recs := records(1, 2, 3, 4)
		recs[0].Rating = 5.5
		recs[1].Rating = 0
		recs[2].Invalid = FieldMovie
		recs[3].Null = FieldUser | FieldRating

		err := Validate(New(DefaultColumns(), recs))

		var schemaErr *errors.SchemaValidationError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, []string{"movieId", "rating", "userId"}, schemaErr.Columns)
		assert.Equal(t, 3, schemaErr.Violations["rating"])
		assert.Equal(t, 1, schemaErr.Violations["movieId"])
		assert.Equal(t, 1, schemaErr.Violations["userId"])
	})
}

func TestSplit(t *testing.T) {
	ds := New(DefaultColumns(), records(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))

	train1, test1, err := Split(ds, 0.2, 42)
	require.NoError(t, err)
	train2, test2, err := Split(ds, 0.2, 42)
	require.NoError(t, err)

	assert.Equal(t, 8, train1.Len())
	assert.Equal(t, 2, test1.Len())
	assert.Equal(t, train1.Records, train2.Records)
	assert.Equal(t, test1.Records, test2.Records)

	seen := map[int64]bool{}
	for _, m := range append(train1.MovieIDs(), test1.MovieIDs()...) {
		assert.False(t, seen[m], "record %d appears twice", m)
		seen[m] = true
	}
	assert.Len(t, seen, 10)

	_, other, err := Split(ds, 0.2, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, other.Len())
}

func TestSplit_Errors(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		testSize float64
		wantErr  any
	}{
		{"test size zero", 10, 0, &errors.ValidationError{}},
		{"test size one", 10, 1, &errors.ValidationError{}},
		{"empty dataset", 0, 0.2, &errors.ValueError{}},
		{"single record", 1, 0.2, &errors.ValueError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movies := make([]int64, tt.n)
			_, _, err := Split(New(DefaultColumns(), records(movies...)), tt.testSize, 1)
			require.Error(t, err)
			switch tt.wantErr.(type) {
			case *errors.ValidationError:
				var target *errors.ValidationError
				assert.ErrorAs(t, err, &target)
			case *errors.ValueError:
				var target *errors.ValueError
				assert.ErrorAs(t, err, &target)
			}
		})
	}
}

func TestNewFeatures(t *testing.T) {
	recs := []RatingRecord{
		{UserID: 1, MovieID: 10, Rating: 4},
		{UserID: 2, MovieID: 20, Rating: 2.5},
	}
	f, err := NewFeatures(New(DefaultColumns(), recs))
	require.NoError(t, err)

	rows, cols := f.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, 20.0, f.X.At(1, 1))
	assert.Equal(t, 2.5, f.Y.AtVec(1))
	assert.Equal(t, []string{"userId", "movieId"}, f.Names)

	_, err = NewFeatures(New(DefaultColumns(), nil))
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestPairMatrix(t *testing.T) {
	x, err := PairMatrix([]int64{1, 2}, []int64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, 4.0, x.At(1, 1))

	_, err = PairMatrix([]int64{1}, []int64{3, 4})
	var dimErr *errors.DimensionError
	assert.ErrorAs(t, err, &dimErr)
}

func TestProfileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.csv")
	content := "userId,movieId,rating\n1,10,4\n1,10,\n2,11,4\n3,10,NA\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	profiles, err := ProfileCSV(context.Background(), path, 5)
	require.NoError(t, err)
	require.Len(t, profiles, 3)

	user := profiles[0]
	assert.Equal(t, "userId", user.Column)
	assert.Equal(t, 1, user.Duplicates)
	assert.Equal(t, 1, user.DistinctDuplicates)
	assert.Equal(t, 3, user.Unique)

	movie := profiles[1]
	assert.Equal(t, 2, movie.Duplicates)
	assert.Equal(t, []ValueCount{{Value: "10", Count: 3}}, movie.TopDuplicates)

	rating := profiles[2]
	assert.Equal(t, 2, rating.Missing)
	assert.InDelta(t, 0.5, rating.MissingRatio, 1e-12)
	assert.Equal(t, 1, rating.Unique)
}
