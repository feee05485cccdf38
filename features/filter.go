package features

import (
	"github.com/google/cel-go/cel"

	"github.com/YuminosukeSato/movielens/dataset"
	"github.com/YuminosukeSato/movielens/pkg/errors"
)

// Variables visible to a row filter expression.
const (
	VarUserID    = "user_id"
	VarMovieID   = "movie_id"
	VarRating    = "rating"
	VarTimestamp = "timestamp"
)

// RowFilter is a compiled boolean CEL expression over a single rating
// record, for example `rating >= 1.0 && timestamp > 1000000000`.
// It is safe for concurrent use.
type RowFilter struct {
	expr string
	prg  cel.Program
}

// CompileFilter compiles expr. The expression must be boolean.
func CompileFilter(expr string) (*RowFilter, error) {
	env, err := cel.NewEnv(
		cel.Variable(VarUserID, cel.IntType),
		cel.Variable(VarMovieID, cel.IntType),
		cel.Variable(VarRating, cel.DoubleType),
		cel.Variable(VarTimestamp, cel.IntType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create filter environment")
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.NewValidationError("data.filter", issues.Err().Error(), expr)
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.NewValidationError("data.filter",
			"expression must return bool, got "+ast.OutputType().String(), expr)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "build filter program")
	}
	return &RowFilter{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (f *RowFilter) String() string { return f.expr }

// Match evaluates the filter for r.
func (f *RowFilter) Match(r dataset.RatingRecord) (bool, error) {
	out, _, err := f.prg.Eval(map[string]any{
		VarUserID:    r.UserID,
		VarMovieID:   r.MovieID,
		VarRating:    r.Rating,
		VarTimestamp: r.Timestamp,
	})
	if err != nil {
		return false, errors.Wrapf(err, "evaluate filter %q", f.expr)
	}
	keep, ok := out.Value().(bool)
	if !ok {
		return false, errors.Newf("filter %q returned %T, want bool", f.expr, out.Value())
	}
	return keep, nil
}

// Apply returns the records of ds for which the filter holds. The first
// evaluation error aborts the filter.
func (f *RowFilter) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	out := make([]dataset.RatingRecord, 0, ds.Len())
	for _, r := range ds.Records {
		keep, err := f.Match(r)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, r)
		}
	}
	return dataset.New(ds.Columns, out), nil
}
