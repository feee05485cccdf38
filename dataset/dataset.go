// Package dataset holds the in-memory ratings table and the operations the
// feature pipeline and trainer apply to it: CSV load and write, row
// filtering, schema validation, seeded splitting and the regression view.
package dataset

import (
	"github.com/YuminosukeSato/movielens/pkg/errors"
)

// Columns maps the four logical rating fields to their CSV header names.
// It is a value type and is passed explicitly to every stage.
type Columns struct {
	UserID    string `koanf:"user_id" yaml:"user_id" validate:"required"`
	MovieID   string `koanf:"movie_id" yaml:"movie_id" validate:"required"`
	Rating    string `koanf:"rating" yaml:"rating" validate:"required"`
	Timestamp string `koanf:"timestamp" yaml:"timestamp" validate:"required"`
}

// DefaultColumns returns the MovieLens header names.
func DefaultColumns() Columns {
	return Columns{
		UserID:    "userId",
		MovieID:   "movieId",
		Rating:    "rating",
		Timestamp: "timestamp",
	}
}

// Names returns the header names in user, movie, rating, timestamp order.
func (c Columns) Names() []string {
	return []string{c.UserID, c.MovieID, c.Rating, c.Timestamp}
}

// Name returns the header name of a single field.
func (c Columns) Name(f Field) string {
	switch f {
	case FieldUser:
		return c.UserID
	case FieldMovie:
		return c.MovieID
	case FieldRating:
		return c.Rating
	case FieldTimestamp:
		return c.Timestamp
	default:
		return ""
	}
}

// Validate checks that every name is set and that no two fields share one.
func (c Columns) Validate() error {
	seen := make(map[string]bool, 4)
	for _, n := range c.Names() {
		if n == "" {
			return errors.NewValidationError("columns", "column names must not be empty", c.Names())
		}
		if seen[n] {
			return errors.NewValidationError("columns", "column names must be distinct", n)
		}
		seen[n] = true
	}
	return nil
}

// Field identifies one of the four rating fields. Values are bit flags so a
// record can mark several fields at once.
type Field uint8

const (
	FieldUser Field = 1 << iota
	FieldMovie
	FieldRating
	FieldTimestamp
)

// AllFields lists the fields in column order.
var AllFields = []Field{FieldUser, FieldMovie, FieldRating, FieldTimestamp}

// RatingRecord is one user-item interaction.
//
// Null and Invalid are only set on raw records: Null marks empty or NA cells
// and Invalid marks cells that do not parse as the field's type. Both are
// zero on every record that passed Validate.
type RatingRecord struct {
	UserID    int64
	MovieID   int64
	Rating    float64
	Timestamp int64

	Null    Field
	Invalid Field
}

// HasNull reports whether any field of the record was missing.
func (r RatingRecord) HasNull() bool {
	return r.Null != 0
}

// Dataset is an ordered table of rating records with its header names.
type Dataset struct {
	Columns Columns
	Records []RatingRecord
}

// New wraps records in a Dataset.
func New(cols Columns, records []RatingRecord) *Dataset {
	return &Dataset{Columns: cols, Records: records}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Select returns a new Dataset holding the records at idx, in idx order.
func (d *Dataset) Select(idx []int) *Dataset {
	out := make([]RatingRecord, len(idx))
	for i, j := range idx {
		out[i] = d.Records[j]
	}
	return New(d.Columns, out)
}

// Filter returns a new Dataset holding the records for which keep is true.
// The receiver is not modified.
func (d *Dataset) Filter(keep func(RatingRecord) bool) *Dataset {
	out := make([]RatingRecord, 0, len(d.Records))
	for _, r := range d.Records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return New(d.Columns, out)
}

// UserIDs returns the user column.
func (d *Dataset) UserIDs() []int64 {
	out := make([]int64, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.UserID
	}
	return out
}

// MovieIDs returns the movie column.
func (d *Dataset) MovieIDs() []int64 {
	out := make([]int64, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.MovieID
	}
	return out
}

// Ratings returns the rating column.
func (d *Dataset) Ratings() []float64 {
	out := make([]float64, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Rating
	}
	return out
}
