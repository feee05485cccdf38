package linear

// Option configures a LinearRegression.
type Option func(*LinearRegression)

// WithFitIntercept sets whether an intercept column is added. Default true.
func WithFitIntercept(fit bool) Option {
	return func(lr *LinearRegression) {
		lr.FitIntercept = fit
	}
}

// WithParallelThreshold sets the row count above which design matrix
// preparation is split across goroutines.
func WithParallelThreshold(rows int) Option {
	return func(lr *LinearRegression) {
		lr.ParallelThreshold = rows
	}
}
