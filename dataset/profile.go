package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"sort"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

// ValueCount is a cell value and how often it occurs in a column.
type ValueCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// ColumnProfile summarises duplicates and missing values of one column.
// Missing cells are excluded from the unique and duplicate figures.
type ColumnProfile struct {
	Column string `json:"column" yaml:"column"`
	// Duplicates counts every extra occurrence of a value.
	Duplicates int `json:"duplicates" yaml:"duplicates"`
	// DistinctDuplicates counts values that occur more than once.
	DistinctDuplicates int          `json:"distinct_duplicates" yaml:"distinct_duplicates"`
	Unique             int          `json:"unique" yaml:"unique"`
	Missing            int          `json:"missing" yaml:"missing"`
	MissingRatio       float64      `json:"missing_ratio" yaml:"missing_ratio"`
	TopDuplicates      []ValueCount `json:"top_duplicates" yaml:"top_duplicates"`
}

// ProfileCSV reads any CSV with a header row and profiles every column on
// its raw cell text. TopDuplicates holds at most topN entries, most frequent
// first with ties in first-seen order.
func ProfileCSV(ctx context.Context, path string, topN int) ([]ColumnProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataLoadError(path, "open", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewDataLoadError(path, "empty file", nil)
	}
	if err != nil {
		return nil, errors.NewDataLoadError(path, "read header", err)
	}

	type tally struct {
		counts  map[string]int
		order   []string
		missing int
	}
	tallies := make([]*tally, len(header))
	for i := range tallies {
		tallies[i] = &tally{counts: make(map[string]int)}
	}

	rows := 0
	for {
		if rows%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewDataLoadError(path, "parse", err)
		}
		rows++
		for i, cell := range row {
			t := tallies[i]
			if isNullCell(cell) {
				t.missing++
				continue
			}
			if _, ok := t.counts[cell]; !ok {
				t.order = append(t.order, cell)
			}
			t.counts[cell]++
		}
	}

	profiles := make([]ColumnProfile, len(header))
	for i, t := range tallies {
		p := ColumnProfile{Column: header[i], Unique: len(t.counts), Missing: t.missing}
		if rows > 0 {
			p.MissingRatio = float64(t.missing) / float64(rows)
		}
		var dups []ValueCount
		for _, v := range t.order {
			c := t.counts[v]
			if c > 1 {
				p.Duplicates += c - 1
				p.DistinctDuplicates++
				dups = append(dups, ValueCount{Value: v, Count: c})
			}
		}
		sort.SliceStable(dups, func(a, b int) bool { return dups[a].Count > dups[b].Count })
		if topN >= 0 && len(dups) > topN {
			dups = dups[:topN]
		}
		p.TopDuplicates = dups
		profiles[i] = p
	}
	return profiles, nil
}
