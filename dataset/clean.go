package dataset

// DropNulls removes records with a missing value in any field.
func DropNulls(ds *Dataset) *Dataset {
	return ds.Filter(func(r RatingRecord) bool { return !r.HasNull() })
}

// KeepByCount keeps the records whose movie id occurs strictly more than
// minCount times in ds. When maxCount > 0, movies occurring more than
// maxCount times are dropped as well. Surviving records keep their order.
func KeepByCount(ds *Dataset, minCount, maxCount int) *Dataset {
	counts := make(map[int64]int)
	for _, r := range ds.Records {
		counts[r.MovieID]++
	}
	return ds.Filter(func(r RatingRecord) bool {
		c := counts[r.MovieID]
		if c <= minCount {
			return false
		}
		return maxCount <= 0 || c <= maxCount
	})
}
