package recommender

import (
	"sort"

	"github.com/YuminosukeSato/movielens/dataset"
)

// rankByMeanRating orders the distinct movies of ds by descending mean
// rating. Movies with equal means keep the order in which they first appear
// in ds.
func rankByMeanRating(ds *dataset.Dataset) []int64 {
	type acc struct {
		sum   float64
		count int
	}
	stats := make(map[int64]*acc)
	var order []int64
	for _, r := range ds.Records {
		a, ok := stats[r.MovieID]
		if !ok {
			a = &acc{}
			stats[r.MovieID] = a
			order = append(order, r.MovieID)
		}
		a.sum += r.Rating
		a.count++
	}

	mean := func(id int64) float64 {
		a := stats[id]
		return a.sum / float64(a.count)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return mean(order[i]) > mean(order[j])
	})
	return order
}

// topN returns the first n entries of ranking as a new slice.
func topN(ranking []int64, n int) []int64 {
	if n <= 0 {
		return []int64{}
	}
	n = min(n, len(ranking))
	return append(make([]int64, 0, n), ranking[:n]...)
}
