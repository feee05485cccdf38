package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "movielens: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "movielens: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDataLoadError(t *testing.T) {
	cause := fmt.Errorf("no such file or directory")
	err := NewDataLoadError("data/ratings.csv", "open", cause)

	assert.Equal(t, "movielens: load data/ratings.csv: open: no such file or directory", err.Error())
	assert.True(t, Is(err, cause))

	var loadErr *DataLoadError
	require.True(t, As(err, &loadErr))
	assert.Equal(t, "data/ratings.csv", loadErr.Path)
}

func TestNewSchemaValidationError(t *testing.T) {
	err := NewSchemaValidationError(map[string]int{"rating": 2, "movieId": 1})

	var schemaErr *SchemaValidationError
	require.True(t, As(err, &schemaErr))
	assert.Equal(t, []string{"movieId", "rating"}, schemaErr.Columns)
	assert.Equal(t, "movielens: schema validation failed for columns: movieId (1 rows), rating (2 rows)", err.Error())
}

func TestNewUnknownModelError(t *testing.T) {
	err := NewUnknownModelError("svd", []string{"baseline", "classic"})

	var unknown *UnknownModelError
	require.True(t, As(err, &unknown))
	assert.Equal(t, "svd", unknown.Name)
	assert.Contains(t, err.Error(), "baseline, classic")
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("baseline", "Recommend")

	expected := "movielens: baseline: this model is not fitted yet. Call Fit() before using Recommend()"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}

	var notFitted *NotFittedError
	if !As(err, &notFitted) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewEvaluationError(t *testing.T) {
	tests := []struct {
		name     string
		reason   string
		expected int
		got      int
		wantMsg  string
	}{
		{
			name:     "length mismatch",
			reason:   "prediction count mismatch",
			expected: 3,
			got:      2,
			wantMsg:  "movielens: evaluation failed: prediction count mismatch (expected 3 predictions, got 2)",
		},
		{
			name:    "metric failure",
			reason:  "no test rows",
			wantMsg: "movielens: evaluation failed: no test rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewEvaluationError(tt.reason, tt.expected, tt.got, nil)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestNewPersistError(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := NewPersistError("out/ratings.csv", "remove", cause)

	assert.Equal(t, "movielens: persist out/ratings.csv: remove: permission denied", err.Error())
	assert.True(t, Is(err, cause))
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 3, 2, 0)

	expected := "movielens: Predict: dimension mismatch on axis 0 (rows). Expected 3, got 2"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("test_size", "must be in (0, 1)", 1.5)
	assert.Equal(t, "movielens: validation failed for parameter 'test_size': must be in (0, 1) (got: 1.5)", err.Error())
}

func TestUndefinedMetricWarning(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(w error) {})

	Warn(NewUndefinedMetricWarning("r2", "constant y_true", 1.0))

	require.Len(t, got, 1)
	assert.Contains(t, got[0].Error(), "'r2' is ill-defined")
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "while splitting")

	assert.True(t, Is(wrapped, ErrEmptyData))
	assert.Equal(t, "while splitting: empty data", wrapped.Error())

	wrappedf := Wrapf(ErrSingularMatrix, "fit %s", "classic")
	assert.True(t, Is(wrappedf, ErrSingularMatrix))
	assert.Equal(t, "fit classic: singular matrix", wrappedf.Error())
}

func TestCheckFinite(t *testing.T) {
	assert.NoError(t, CheckFinite("Evaluate", map[string]float64{"rmse": 1, "mae": 0.5}))

	err := CheckFinite("Evaluate", map[string]float64{"rmse": math.NaN()})
	var evalErr *EvaluationError
	require.True(t, As(err, &evalErr))
	assert.Contains(t, err.Error(), "rmse is not finite")
}

func TestClipValue(t *testing.T) {
	assert.Equal(t, 0.5, ClipValue(-1, 0.5, 5))
	assert.Equal(t, 5.0, ClipValue(7, 0.5, 5))
	assert.Equal(t, 3.2, ClipValue(3.2, 0.5, 5))
}
