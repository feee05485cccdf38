package log

// Identity of the thing being logged.
const (
	ComponentKey = "ml.component"
	ModelNameKey = "model.name"
	OperationKey = "ml.operation"
	PhaseKey     = "ml.phase"
	StageKey     = "pipeline.stage"
	StateKey     = "trainer.state"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	PathKey     = "data.path"
	DroppedKey  = "data.dropped"
	VersionKey  = "data.version"
)

// Experiment tracking.
const (
	ExperimentKey = "tracking.experiment"
	RunIDKey      = "tracking.run_id"
	RunStatusKey  = "tracking.status"
	ArtifactKey   = "tracking.artifact"
)

// Performance and evaluation.
const (
	DurationMsKey = "perf.duration_ms"
	RMSEKey       = "metrics.rmse"
	MAEKey        = "metrics.mae"
	R2ScoreKey    = "metrics.r2_score"
	PredsKey      = "preds.count"
)

// Configuration.
const (
	HyperParamsKey = "model.hyperparams"
	RandomSeedKey  = "config.random_seed"
	TestSizeKey    = "config.test_size"
	ProfileKey     = "config.profile"
)

// Errors. ErrorKey matches zerolog.ErrorFieldName.
const (
	ErrorKey      = "error"
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Standard values for OperationKey and PhaseKey.
const (
	OperationLoad      = "load"
	OperationClean     = "clean"
	OperationValidate  = "validate"
	OperationTransform = "transform"
	OperationWrite     = "write"
	OperationSplit     = "split"
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationRecommend = "recommend"
	OperationEvaluate  = "evaluate"
	OperationPublish   = "publish"

	PhasePreprocessing = "preprocessing"
	PhaseTraining      = "training"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
)
