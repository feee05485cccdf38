// Package pipeline runs the feature pipeline and then the trainer for one
// configuration profile.
package pipeline

import (
	"context"
	"time"

	"github.com/YuminosukeSato/movielens/config"
	"github.com/YuminosukeSato/movielens/features"
	"github.com/YuminosukeSato/movielens/instrument"
	"github.com/YuminosukeSato/movielens/pkg/errors"
	"github.com/YuminosukeSato/movielens/pkg/log"
	"github.com/YuminosukeSato/movielens/publish"
	"github.com/YuminosukeSato/movielens/tracking"
	"github.com/YuminosukeSato/movielens/training"
)

// Pipeline wires the stages for a loaded configuration.
type Pipeline struct {
	cfg       *config.Config
	sink      tracking.Sink
	publisher publish.Publisher
	metrics   *instrument.Metrics
	logger    log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPublisher enables publishing of the top recommendations.
func WithPublisher(p publish.Publisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithMetrics records stage metrics in m.
func WithMetrics(m *instrument.Metrics) Option {
	return func(pl *Pipeline) { pl.metrics = m }
}

// New returns a pipeline logging runs to sink.
func New(cfg *config.Config, sink tracking.Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		sink:    sink,
		metrics: instrument.New(),
		logger:  log.GetLoggerWithName("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FeatureConfig derives the feature pipeline settings.
func FeatureConfig(cfg *config.Config) features.Config {
	return features.Config{
		RawPath:             cfg.Data.RatingsRaw,
		ProcessedPath:       cfg.Data.RatingsProcessed,
		Columns:             cfg.Columns,
		NRows:               cfg.Exp.NRows,
		MinMovieRatingCount: cfg.Exp.MinMovieRatingCount,
		MaxMovieRatingCount: cfg.Exp.MaxMovieRatingCount,
		Filter:              cfg.Data.Filter,
	}
}

// TrainingConfig derives the trainer settings.
func TrainingConfig(cfg *config.Config) training.Config {
	return training.Config{
		ProcessedPath: cfg.Data.RatingsProcessed,
		DataVersion:   cfg.Data.Version,
		Columns:       cfg.Columns,
		NRows:         cfg.Exp.NRows,
		Seed:          uint64(cfg.Exp.Seed),
		TestSize:      cfg.Training.TestSize,
		Experiment:    cfg.Exp.MLflow.ExperimentName,
		RunName:       cfg.Exp.Name,
		Model:         cfg.Exp.Model,
		PublishTopN:   cfg.Publish.TopN,
	}
}

// Run executes the feature pipeline and, if it succeeds, the trainer.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	start := time.Now()
	logger := p.logger.With(log.ProfileKey, p.cfg.Exp.Name)

	rendered, err := p.cfg.YAML()
	if err != nil {
		return err
	}
	logger.Info("effective configuration\n" + string(rendered))

	defer func() {
		status := tracking.StatusFinished
		if err != nil {
			status = tracking.StatusFailed
		}
		p.metrics.ObserveRun(string(status))
		if p.cfg.MetricsTextfile != "" {
			if werr := p.metrics.WriteTextfile(p.cfg.MetricsTextfile); werr != nil {
				logger.Warn("could not write metrics textfile", werr, log.PathKey, p.cfg.MetricsTextfile)
			}
		}
	}()

	fp, err := features.New(FeatureConfig(p.cfg), features.WithObserver(p.metrics))
	if err != nil {
		return err
	}
	if _, err := fp.Run(ctx); err != nil {
		return err
	}

	opts := []training.Option{training.WithObserver(p.metrics)}
	if p.publisher != nil {
		opts = append(opts, training.WithPublisher(p.publisher))
	}
	tr, err := training.New(TrainingConfig(p.cfg), p.sink, opts...)
	if err != nil {
		return err
	}
	if err := tr.Run(ctx); err != nil {
		return errors.Wrap(err, "training")
	}

	logger.Info("pipeline finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}
