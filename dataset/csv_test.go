package dataset

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ratings.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, strings.Join([]string{
		"movieId,userId,rating,timestamp",
		"10,1,4.5,100",
		"11,2,,101",
		"12.0,3,3,NA",
		"x,4,2.5,103",
	}, "\n")+"\n")

	ds, err := Load(context.Background(), path, DefaultColumns(), 0)
	require.NoError(t, err)
	require.Equal(t, 4, ds.Len())

	assert.Equal(t, RatingRecord{UserID: 1, MovieID: 10, Rating: 4.5, Timestamp: 100}, ds.Records[0])
	assert.Equal(t, FieldRating, ds.Records[1].Null)
	assert.Equal(t, int64(12), ds.Records[2].MovieID)
	assert.Equal(t, FieldTimestamp, ds.Records[2].Null)
	assert.Equal(t, FieldMovie, ds.Records[3].Invalid)
	assert.False(t, ds.Records[3].HasNull())
}

func TestLoad_OutOfRangeIntegers(t *testing.T) {
	path := writeFile(t, strings.Join([]string{
		"userId,movieId,rating,timestamp",
		"1e19,10,4.0,100",
		"2,-1e30,4.0,100",
		"3,11,4.0,9.3e18",
		"9007199254740992,12,4.0,1e18",
	}, "\n")+"\n")

	ds, err := Load(context.Background(), path, DefaultColumns(), 0)
	require.NoError(t, err)
	require.Equal(t, 4, ds.Len())

	assert.Equal(t, FieldUser, ds.Records[0].Invalid)
	assert.Equal(t, FieldMovie, ds.Records[1].Invalid)
	assert.Equal(t, FieldTimestamp, ds.Records[2].Invalid)
	assert.Zero(t, ds.Records[3].Invalid)
	assert.Equal(t, int64(1e18), ds.Records[3].Timestamp)

	err = Validate(New(ds.Columns, ds.Records[:3]))
	var schemaErr *errors.SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"movieId", "timestamp", "userId"}, schemaErr.Columns)
}

func TestLoad_RowCap(t *testing.T) {
	path := writeFile(t, "userId,movieId,rating,timestamp\n1,1,1,1\n2,2,2,2\n3,3,3,3\n")

	ds, err := Load(context.Background(), path, DefaultColumns(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		reason  string
	}{
		{"empty file", "", "empty file"},
		{"missing column", "userId,movieId,rating\n1,2,3\n", "header"},
		{"duplicate column", "userId,userId,movieId,rating,timestamp\n", "header"},
		{"unexpected column", "userId,movieId,rating,ts\n", "header"},
		{"ragged row", "userId,movieId,rating,timestamp\n1,2,3\n", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.content)
			_, err := Load(context.Background(), path, DefaultColumns(), 0)

			var loadErr *errors.DataLoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tt.reason, loadErr.Reason)
			assert.Equal(t, path, loadErr.Path)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), DefaultColumns(), 0)
		var loadErr *errors.DataLoadError
		require.ErrorAs(t, err, &loadErr)
		assert.True(t, os.IsNotExist(loadErr.Err))
	})
}

func TestLoad_CustomColumns(t *testing.T) {
	cols := Columns{UserID: "u", MovieID: "i", Rating: "r", Timestamp: "t"}
	path := writeFile(t, "u,i,r,t\n7,8,2,9\n")

	ds, err := Load(context.Background(), path, cols, 0)
	require.NoError(t, err)
	assert.Equal(t, cols, ds.Columns)
	assert.Equal(t, int64(8), ds.Records[0].MovieID)
}

func TestWrite_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "ratings.csv")
	cols := DefaultColumns()

	first := New(cols, []RatingRecord{
		{UserID: 1, MovieID: 1, Rating: 1, Timestamp: 1},
		{UserID: 2, MovieID: 2, Rating: 2, Timestamp: 2},
		{UserID: 3, MovieID: 3, Rating: 3, Timestamp: 3},
	})
	require.NoError(t, Write(context.Background(), path, first))

	second := New(cols, []RatingRecord{{UserID: 9, MovieID: 8, Rating: 3.5, Timestamp: 7}})
	require.NoError(t, Write(context.Background(), path, second))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "userId,movieId,rating,timestamp\n9,8,3.5,7\n", string(data))

	back, err := Load(context.Background(), path, cols, 0)
	require.NoError(t, err)
	assert.Equal(t, second.Records, back.Records)
}

func TestWrite_PersistError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := Write(context.Background(), filepath.Join(blocker, "ratings.csv"), New(DefaultColumns(), nil))

	var persistErr *errors.PersistError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "mkdir", persistErr.Op)
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestWriteRecords_ReportsRow(t *testing.T) {
	diskFull := stderrors.New("disk full")
	recs := make([]RatingRecord, 2000)
	for i := range recs {
		recs[i] = RatingRecord{UserID: int64(i), MovieID: 1, Rating: 3, Timestamp: int64(i)}
	}

	err := writeRecords(context.Background(), failingWriter{diskFull}, New(DefaultColumns(), recs))
	require.Error(t, err)
	assert.True(t, errors.Is(err, diskFull))
	assert.Regexp(t, `^row \d+: disk full$`, err.Error())
}
