package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

const ctxCheckEvery = 4096

// Load reads a ratings CSV whose header is exactly the four names in cols,
// in any order. At most nRows data rows are read when nRows > 0.
//
// Empty and NA-style cells are recorded as nulls and unparseable cells as
// invalid on the record; neither fails the load. A missing file, an empty
// file, a header that does not match cols, or a row with the wrong number of
// fields returns a DataLoadError.
func Load(ctx context.Context, path string, cols Columns, nRows int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataLoadError(path, "open", err)
	}
	defer f.Close()

	return Read(ctx, f, path, cols, nRows)
}

// Read is Load over an arbitrary reader. name is used in errors only.
func Read(ctx context.Context, r io.Reader, name string, cols Columns, nRows int) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewDataLoadError(name, "empty file", nil)
	}
	if err != nil {
		return nil, errors.NewDataLoadError(name, "read header", err)
	}
	pos, err := headerPositions(header, cols)
	if err != nil {
		return nil, errors.NewDataLoadError(name, "header", err)
	}

	var records []RatingRecord
	for n := 0; nRows <= 0 || n < nRows; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewDataLoadError(name, "parse", err)
		}
		records = append(records, parseRecord(row, pos))
	}

	return New(cols, records), nil
}

// headerPositions maps each field to its index in header.
func headerPositions(header []string, cols Columns) (map[Field]int, error) {
	want := make(map[string]Field, 4)
	for _, f := range AllFields {
		want[cols.Name(f)] = f
	}

	pos := make(map[Field]int, 4)
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		f, ok := want[h]
		if !ok {
			return nil, errors.Newf("unexpected column %q", h)
		}
		if _, dup := pos[f]; dup {
			return nil, errors.Newf("duplicate column %q", h)
		}
		pos[f] = i
	}
	for _, f := range AllFields {
		if _, ok := pos[f]; !ok {
			return nil, errors.Newf("missing column %q", cols.Name(f))
		}
	}
	return pos, nil
}

func parseRecord(row []string, pos map[Field]int) RatingRecord {
	var rec RatingRecord
	parseInt := func(f Field, dst *int64) {
		cell := row[pos[f]]
		if isNullCell(cell) {
			rec.Null |= f
			return
		}
		v, ok := parseIntegral(cell)
		if !ok {
			rec.Invalid |= f
			return
		}
		*dst = v
	}

	parseInt(FieldUser, &rec.UserID)
	parseInt(FieldMovie, &rec.MovieID)
	parseInt(FieldTimestamp, &rec.Timestamp)

	cell := row[pos[FieldRating]]
	switch {
	case isNullCell(cell):
		rec.Null |= FieldRating
	default:
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil || math.IsInf(v, 0) {
			rec.Invalid |= FieldRating
		} else {
			rec.Rating = v
		}
	}
	return rec
}

func isNullCell(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "nan", "null", "none":
		return true
	}
	return false
}

// parseIntegral accepts integers and integral floats such as "3.0", which is
// how pandas writes an integer column that once held a null.
func parseIntegral(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, false
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
	if v < math.MinInt64 || v >= math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}

// Write persists ds to path as CSV with a header row. Parent directories
// are created and an existing file is removed first, so the result never
// contains rows from an earlier write. Every failure is a PersistError.
func Write(ctx context.Context, path string, ds *Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewPersistError(path, "mkdir", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewPersistError(path, "remove", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.NewPersistError(path, "create", err)
	}

	if err := writeRecords(ctx, f, ds); err != nil {
		_ = f.Close()
		return errors.NewPersistError(path, "write", err)
	}
	if err := f.Close(); err != nil {
		return errors.NewPersistError(path, "close", err)
	}
	return nil
}

func writeRecords(ctx context.Context, w io.Writer, ds *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns.Names()); err != nil {
		return err
	}

	row := make([]string, 4)
	for i, r := range ds.Records {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row[0] = strconv.FormatInt(r.UserID, 10)
		row[1] = strconv.FormatInt(r.MovieID, 10)
		row[2] = strconv.FormatFloat(r.Rating, 'f', -1, 64)
		row[3] = strconv.FormatInt(r.Timestamp, 10)
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "row %d", i)
		}
	}
	cw.Flush()
	return cw.Error()
}
