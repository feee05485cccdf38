// Package training drives one experiment: it loads the processed ratings,
// splits them, builds the configured model, fits and evaluates it, and
// records everything in a tracking run.
package training

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/movielens/core/model"
	"github.com/YuminosukeSato/movielens/dataset"
	"github.com/YuminosukeSato/movielens/evaluate"
	"github.com/YuminosukeSato/movielens/metrics"
	"github.com/YuminosukeSato/movielens/pkg/errors"
	"github.com/YuminosukeSato/movielens/pkg/log"
	"github.com/YuminosukeSato/movielens/plotting"
	"github.com/YuminosukeSato/movielens/publish"
	"github.com/YuminosukeSato/movielens/recommender"
	"github.com/YuminosukeSato/movielens/tracking"
)

// Artifact locations inside a run.
const (
	DataArtifactDir  = "data"
	ModelArtifactDir = "model"
	ModelFile        = "model.gob"
	ModelCardFile    = "model_card.json"
)

// Config holds the settings of one training run.
type Config struct {
	ProcessedPath string
	DataVersion   string
	Columns       dataset.Columns
	// NRows caps the processed rows read. Zero reads everything.
	NRows      int
	Seed       uint64
	TestSize   float64
	Experiment string
	RunName    string
	Model      recommender.ModelSpec
	// PublishTopN is the length of the published ranking.
	PublishTopN int
}

// Observer receives stage timings and final scores.
type Observer interface {
	ObserveStage(stage string, elapsed time.Duration, rows int)
	ObserveScores(model string, scores map[string]float64)
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithEvaluator replaces the default regression evaluator.
func WithEvaluator(e evaluate.Evaluator) Option {
	return func(t *Trainer) { t.evaluator = e }
}

// WithPublisher publishes the top recommendations after logging.
func WithPublisher(p publish.Publisher) Option {
	return func(t *Trainer) { t.publisher = p }
}

// WithFactory builds the model with f instead of the registry entry for
// the configured name.
func WithFactory(f recommender.Factory) Option {
	return func(t *Trainer) { t.factory = f }
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(t *Trainer) { t.observer = o }
}

// WithLogger overrides the trainer logger.
func WithLogger(l log.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

// Trainer is a single-use state machine. Each step checks that the
// previous one completed; a failing step moves it to StateFailed.
type Trainer struct {
	cfg       Config
	sink      tracking.Sink
	evaluator evaluate.Evaluator
	publisher publish.Publisher
	factory   recommender.Factory
	observer  Observer
	logger    log.Logger

	state  State
	run    tracking.Run
	data   *dataset.Dataset
	train  *dataset.Dataset
	test   *dataset.Dataset
	model  model.Recommender
	result *evaluate.Result
}

// New returns a trainer in StateCreated.
func New(cfg Config, sink tracking.Sink, opts ...Option) (*Trainer, error) {
	if sink == nil {
		return nil, errors.NewValidationError("sink", "is required", nil)
	}
	if cfg.ProcessedPath == "" {
		return nil, errors.NewValidationError("data.ratings_processed", "is required", cfg.ProcessedPath)
	}
	if cfg.TestSize <= 0 || cfg.TestSize >= 1 {
		return nil, errors.NewValidationError("training.test_size", "must be in (0, 1)", cfg.TestSize)
	}
	if cfg.Experiment == "" {
		return nil, errors.NewValidationError("exp.mlflow.experiment_name", "is required", cfg.Experiment)
	}
	if cfg.Model.Name == "" {
		return nil, errors.NewValidationError("exp.model.name", "is required", cfg.Model.Name)
	}

	t := &Trainer{
		cfg:       cfg,
		sink:      sink,
		evaluator: evaluate.NewRegression(),
		state:     StateCreated,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.GetLoggerWithName("training")
	}
	t.logger = t.logger.With(log.ModelNameKey, cfg.Model.Name)
	return t, nil
}

// State returns the current state.
func (t *Trainer) State() State { return t.state }

// Result returns the evaluation result once Evaluate has succeeded.
func (t *Trainer) Result() *evaluate.Result { return t.result }

func (t *Trainer) expect(want State, op string) error {
	if t.state != want {
		return errors.NewValueError("Trainer."+op,
			fmt.Sprintf("cannot run in state %s, want %s", t.state, want))
	}
	return nil
}

func (t *Trainer) fail(err error) error {
	t.state = StateFailed
	return err
}

func (t *Trainer) enter(s State) {
	t.logger.Debug("trainer state changed", log.StateKey, s.String())
	t.state = s
}

func (t *Trainer) observe(stage string, start time.Time, rows int) {
	if t.observer != nil {
		t.observer.ObserveStage(stage, time.Since(start), rows)
	}
}

// Setup selects the tracking experiment.
func (t *Trainer) Setup(ctx context.Context) error {
	if err := t.expect(StateCreated, "Setup"); err != nil {
		return err
	}
	if err := t.sink.SetExperiment(ctx, t.cfg.Experiment); err != nil {
		return t.fail(err)
	}
	t.logger.Info("tracking configured", log.ExperimentKey, t.cfg.Experiment)
	t.enter(StateConfigured)
	return nil
}

// Load reads the processed dataset.
func (t *Trainer) Load(ctx context.Context) (*dataset.Dataset, error) {
	if err := t.expect(StateConfigured, "Load"); err != nil {
		return nil, err
	}
	start := time.Now()
	ds, err := dataset.Load(ctx, t.cfg.ProcessedPath, t.cfg.Columns, t.cfg.NRows)
	if err != nil {
		return nil, t.fail(err)
	}
	t.data = ds
	t.observe(log.OperationLoad, start, ds.Len())
	t.logger.Info("processed ratings loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, t.cfg.ProcessedPath,
		log.SamplesKey, ds.Len(),
	)
	t.enter(StateDataLoaded)
	return ds, nil
}

// Split partitions ds into train and test sets. The same seed and input
// always give the same partition.
func (t *Trainer) Split(ds *dataset.Dataset) (train, test *dataset.Dataset, err error) {
	if err := t.expect(StateDataLoaded, "Split"); err != nil {
		return nil, nil, err
	}
	train, test, err = dataset.Split(ds, t.cfg.TestSize, t.cfg.Seed)
	if err != nil {
		return nil, nil, t.fail(err)
	}
	t.train, t.test = train, test
	t.logger.Info("ratings split",
		log.OperationKey, log.OperationSplit,
		log.TestSizeKey, t.cfg.TestSize,
		log.RandomSeedKey, t.cfg.Seed,
		"split.train", train.Len(),
		"split.test", test.Len(),
	)
	t.enter(StateSplit)
	return train, test, nil
}

// Model resolves the configured model on first use and returns the same
// instance afterwards.
func (t *Trainer) Model() (model.Recommender, error) {
	if t.model != nil {
		return t.model, nil
	}
	f := t.factory
	if f == nil {
		var err error
		if f, err = recommender.GetFactory(t.cfg.Model.Name); err != nil {
			return nil, err
		}
	}
	m, err := f.Create(t.cfg.Model)
	if err != nil {
		return nil, err
	}
	t.model = m
	return m, nil
}

// AcquireModel is the state machine step that resolves the model.
func (t *Trainer) AcquireModel() (model.Recommender, error) {
	if err := t.expect(StateSplit, "AcquireModel"); err != nil {
		return nil, err
	}
	m, err := t.Model()
	if err != nil {
		return nil, t.fail(err)
	}
	t.logger.Info("model acquired", log.HyperParamsKey, tracking.ParamString(m.Params()))
	t.enter(StateModelAcquired)
	return m, nil
}

// Train fits the model on train.
func (t *Trainer) Train(train *dataset.Dataset) error {
	if err := t.expect(StateModelAcquired, "Train"); err != nil {
		return err
	}
	start := time.Now()
	if err := t.model.Fit(train); err != nil {
		return t.fail(err)
	}
	t.observe(log.OperationFit, start, train.Len())
	t.logger.Info("model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, train.Len(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	t.enter(StateTrained)
	return nil
}

// Evaluate scores the fitted model on test and keeps the predictions for
// plotting.
func (t *Trainer) Evaluate(_ context.Context, test *dataset.Dataset) (metrics.Scores, error) {
	if err := t.expect(StateTrained, "Evaluate"); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := t.evaluator.Evaluate(t.model, test)
	if err != nil {
		return nil, t.fail(err)
	}
	t.result = res
	t.observe(log.OperationEvaluate, start, len(res.Predictions))
	if t.observer != nil {
		t.observer.ObserveScores(t.model.Name(), res.Metrics)
	}
	t.logger.Info("model evaluated",
		log.OperationKey, log.OperationEvaluate,
		log.RMSEKey, res.Metrics[metrics.RMSEName],
		log.MAEKey, res.Metrics[metrics.MAEName],
		log.R2ScoreKey, res.Metrics[metrics.R2Name],
	)
	t.enter(StateEvaluated)
	return res.Metrics, nil
}

// LogRun records parameters, metrics, the processed data, the fitted model
// and the residual plots in the open tracking run.
func (t *Trainer) LogRun(ctx context.Context) error {
	if err := t.expect(StateEvaluated, "LogRun"); err != nil {
		return err
	}
	if t.run == nil {
		return t.fail(errors.NewValueError("Trainer.LogRun", "no tracking run is open"))
	}
	if err := t.logRun(ctx); err != nil {
		return t.fail(err)
	}
	t.logger.Info("run logged", log.RunIDKey, t.run.ID())
	t.enter(StateLogged)
	return nil
}

func (t *Trainer) logRun(ctx context.Context) error {
	// Hyperparameters are logged as individual params; the run fields below
	// take precedence on a name clash.
	params := make(map[string]any)
	for k, v := range t.model.Params() {
		params[k] = v
	}
	params["model_name"] = t.model.Name()
	params["test_size"] = t.cfg.TestSize
	params["seed"] = t.cfg.Seed
	params["data_version"] = t.cfg.DataVersion
	params["n_train"] = t.train.Len()
	params["n_test"] = t.test.Len()
	if err := t.run.LogParams(ctx, params); err != nil {
		return err
	}
	if err := t.run.LogMetrics(ctx, t.result.Metrics); err != nil {
		return err
	}
	if err := t.run.LogArtifact(ctx, t.cfg.ProcessedPath, DataArtifactDir); err != nil {
		return err
	}
	if err := t.logModel(ctx); err != nil {
		return err
	}
	return plotting.LogPlots(ctx, t.run, t.result.Predictions, t.result.Truths)
}

func (t *Trainer) logModel(ctx context.Context) error {
	dir, err := os.MkdirTemp("", "movielens-model-")
	if err != nil {
		return errors.NewPersistError(os.TempDir(), "mkdir", err)
	}
	defer os.RemoveAll(dir)

	modelPath := filepath.Join(dir, ModelFile)
	if err := model.SaveModelFile(t.model, modelPath); err != nil {
		return err
	}
	cardPath := filepath.Join(dir, ModelCardFile)
	if err := model.NewModelCard(t.model).WriteFile(cardPath); err != nil {
		return err
	}
	for _, p := range []string{modelPath, cardPath} {
		if err := t.run.LogArtifact(ctx, p, ModelArtifactDir); err != nil {
			return err
		}
	}
	return nil
}

// Publish writes the model's top recommendations through the publisher.
// It is a no-op without one.
func (t *Trainer) Publish(ctx context.Context) error {
	if err := t.expect(StateLogged, "Publish"); err != nil {
		return err
	}
	if t.publisher == nil {
		return nil
	}
	ranked, err := t.model.Recommend(0, t.cfg.PublishTopN)
	if err != nil {
		return t.fail(err)
	}
	if err := t.publisher.Publish(ctx, ranked); err != nil {
		return t.fail(err)
	}
	return nil
}

// Run executes every step inside one tracking run. The run is ended on
// every exit path: FINISHED on success, FAILED on an error or a panic.
func (t *Trainer) Run(ctx context.Context) (err error) {
	if err := t.Setup(ctx); err != nil {
		return err
	}

	run, err := t.sink.StartRun(ctx, t.cfg.RunName)
	if err != nil {
		return t.fail(err)
	}
	t.run = run
	logger := t.logger.With(log.RunIDKey, run.ID())
	logger.Info("training run started")

	defer func() {
		status := tracking.StatusFinished
		if err != nil {
			status = tracking.StatusFailed
			t.state = StateFailed
			logger.Error("training run failed", err, log.StateKey, t.state.String())
		}
		// the caller's context may already be cancelled
		if endErr := run.End(context.WithoutCancel(ctx), status); endErr != nil {
			logger.Error("failed to end tracking run", endErr)
			if err == nil {
				err = endErr
			}
		}
	}()
	defer errors.Recover(&err, "Trainer.Run")

	if err = t.steps(ctx); err != nil {
		return err
	}
	t.enter(StateDone)
	logger.Info("training run finished")
	return nil
}

func (t *Trainer) steps(ctx context.Context) error {
	ds, err := t.Load(ctx)
	if err != nil {
		return err
	}
	train, test, err := t.Split(ds)
	if err != nil {
		return err
	}
	if _, err := t.AcquireModel(); err != nil {
		return err
	}
	if err := t.Train(train); err != nil {
		return err
	}
	if _, err := t.Evaluate(ctx, test); err != nil {
		return err
	}
	if err := t.LogRun(ctx); err != nil {
		return err
	}
	return t.Publish(ctx)
}
