package dataset

import (
	"math"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

// Rating bounds accepted by Validate.
const (
	MinRating = 0.5
	MaxRating = 5.0
)

// Validate checks every record against the ratings schema: user, movie and
// timestamp are present integers and rating is a present float in
// [MinRating, MaxRating]. All violating columns are collected into a single
// SchemaValidationError together with the number of offending rows.
func Validate(ds *Dataset) error {
	violations := make(map[string]int)
	for _, r := range ds.Records {
		bad := r.Null | r.Invalid
		if bad&FieldRating == 0 && (math.IsNaN(r.Rating) || r.Rating < MinRating || r.Rating > MaxRating) {
			bad |= FieldRating
		}
		if bad == 0 {
			continue
		}
		for _, f := range AllFields {
			if bad&f != 0 {
				violations[ds.Columns.Name(f)]++
			}
		}
	}
	if len(violations) > 0 {
		return errors.NewSchemaValidationError(violations)
	}
	return nil
}
