// Package features prepares the processed ratings dataset: it loads the raw
// CSV, cleans and validates it, derives the regression view and writes the
// result to the processed path used by training.
package features

import (
	"context"
	"time"

	"github.com/YuminosukeSato/movielens/dataset"
	"github.com/YuminosukeSato/movielens/pkg/errors"
	"github.com/YuminosukeSato/movielens/pkg/log"
)

// Stage names reported to a StageObserver.
const (
	StageLoad      = log.OperationLoad
	StageClean     = log.OperationClean
	StageValidate  = log.OperationValidate
	StageTransform = log.OperationTransform
	StageWrite     = log.OperationWrite
)

// Config holds the settings of one feature pipeline run.
type Config struct {
	RawPath       string
	ProcessedPath string
	Columns       dataset.Columns
	// NRows caps the number of raw rows read. Zero reads everything.
	NRows int
	// MinMovieRatingCount drops movies rated this many times or fewer.
	MinMovieRatingCount int
	// MaxMovieRatingCount drops movies rated more than this many times.
	// Zero disables the upper bound.
	MaxMovieRatingCount int
	// Filter is an optional CEL row filter applied after null removal.
	Filter string
}

// StageObserver is notified after every successful stage with the number
// of rows the stage produced.
type StageObserver interface {
	ObserveStage(stage string, elapsed time.Duration, rows int)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger overrides the pipeline logger.
func WithLogger(l log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithObserver registers a stage observer.
func WithObserver(o StageObserver) Option {
	return func(p *Pipeline) { p.observer = o }
}

// Pipeline runs load, clean, validate, transform and write in that order.
type Pipeline struct {
	cfg      Config
	filter   *RowFilter
	logger   log.Logger
	observer StageObserver
}

// New checks cfg and compiles the row filter, if any.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if cfg.RawPath == "" {
		return nil, errors.NewValidationError("data.ratings_raw", "is required", cfg.RawPath)
	}
	if cfg.ProcessedPath == "" {
		return nil, errors.NewValidationError("data.ratings_processed", "is required", cfg.ProcessedPath)
	}
	if cfg.NRows < 0 {
		return nil, errors.NewValidationError("exp.n_rows", "must be >= 0", cfg.NRows)
	}
	if cfg.MinMovieRatingCount < 0 {
		return nil, errors.NewValidationError("exp.min_movie_rating_count", "must be >= 0", cfg.MinMovieRatingCount)
	}
	if cfg.MaxMovieRatingCount < 0 {
		return nil, errors.NewValidationError("exp.max_movie_rating_count", "must be >= 0", cfg.MaxMovieRatingCount)
	}
	if cfg.MaxMovieRatingCount > 0 && cfg.MaxMovieRatingCount <= cfg.MinMovieRatingCount {
		return nil, errors.NewValidationError("exp.max_movie_rating_count", "must exceed exp.min_movie_rating_count", cfg.MaxMovieRatingCount)
	}
	if err := cfg.Columns.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg, logger: log.GetLoggerWithName("features")}
	for _, opt := range opts {
		opt(p)
	}
	if cfg.Filter != "" {
		f, err := CompileFilter(cfg.Filter)
		if err != nil {
			return nil, err
		}
		p.filter = f
	}
	return p, nil
}

// Load reads the raw ratings file.
func (p *Pipeline) Load(ctx context.Context) (*dataset.Dataset, error) {
	ds, err := dataset.Load(ctx, p.cfg.RawPath, p.cfg.Columns, p.cfg.NRows)
	if err != nil {
		return nil, err
	}
	p.logger.Info("raw ratings loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, p.cfg.RawPath,
		log.SamplesKey, ds.Len(),
	)
	return ds, nil
}

// Clean drops rows with nulls, applies the row filter and then drops
// long-tail movies and, when an upper bound is set, the most rated ones. Frequencies are counted on the rows that survived the
// first two steps.
func (p *Pipeline) Clean(ds *dataset.Dataset) (*dataset.Dataset, error) {
	in := ds.Len()
	out := dataset.DropNulls(ds)
	nulls := in - out.Len()

	filtered := 0
	if p.filter != nil {
		before := out.Len()
		var err error
		if out, err = p.filter.Apply(out); err != nil {
			return nil, err
		}
		filtered = before - out.Len()
	}

	before := out.Len()
	out = dataset.KeepByCount(out, p.cfg.MinMovieRatingCount, p.cfg.MaxMovieRatingCount)

	p.logger.Info("ratings cleaned",
		log.OperationKey, log.OperationClean,
		log.SamplesKey, out.Len(),
		log.DroppedKey, in-out.Len(),
		"dropped.nulls", nulls,
		"dropped.filter", filtered,
		"dropped.long_tail", before-out.Len(),
	)
	return out, nil
}

// Validate checks ds against the ratings schema.
func (p *Pipeline) Validate(ds *dataset.Dataset) error {
	if err := dataset.Validate(ds); err != nil {
		p.logger.Error("schema validation failed", err, log.OperationKey, log.OperationValidate)
		return err
	}
	return nil
}

// Transform derives the feature and target matrices. It returns nil for an
// empty dataset.
func (p *Pipeline) Transform(ds *dataset.Dataset) (*dataset.Features, error) {
	if ds.Len() == 0 {
		p.logger.Warn("no rows left to transform", log.OperationKey, log.OperationTransform)
		return nil, nil
	}
	f, err := dataset.NewFeatures(ds)
	if err != nil {
		return nil, err
	}
	rows, cols := f.Dims()
	p.logger.Debug("features built",
		log.OperationKey, log.OperationTransform,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
	)
	return f, nil
}

// Write replaces the processed file with ds.
func (p *Pipeline) Write(ctx context.Context, ds *dataset.Dataset) error {
	if err := dataset.Write(ctx, p.cfg.ProcessedPath, ds); err != nil {
		return err
	}
	p.logger.Info("processed ratings written",
		log.OperationKey, log.OperationWrite,
		log.PathKey, p.cfg.ProcessedPath,
		log.SamplesKey, ds.Len(),
	)
	return nil
}

// Run executes every stage and returns the processed dataset. A failing
// stage stops the run before anything is written.
func (p *Pipeline) Run(ctx context.Context) (*dataset.Dataset, error) {
	var ds *dataset.Dataset

	steps := []struct {
		name string
		fn   func() error
	}{
		{StageLoad, func() (err error) { ds, err = p.Load(ctx); return err }},
		{StageClean, func() (err error) { ds, err = p.Clean(ds); return err }},
		{StageValidate, func() error { return p.Validate(ds) }},
		{StageTransform, func() error { _, err := p.Transform(ds); return err }},
		{StageWrite, func() error { return p.Write(ctx, ds) }},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		if err := s.fn(); err != nil {
			return nil, errors.Wrapf(err, "feature pipeline: %s", s.name)
		}
		if p.observer != nil {
			p.observer.ObserveStage(s.name, time.Since(start), ds.Len())
		}
	}
	return ds, nil
}
