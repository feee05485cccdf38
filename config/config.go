// Package config loads the pipeline settings.
//
// Sources are layered, later ones winning:
//
//  1. built-in defaults
//  2. <dir>/config.yaml
//  3. <dir>/exp/<profile>.yaml, merged under the "exp" key
//  4. MOVIELENS_* environment variables, "__" separating path segments
//     (MOVIELENS_EXP__SEED=7 sets exp.seed)
//
// The result is validated once and then treated as immutable.
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/movielens/dataset"
	"github.com/YuminosukeSato/movielens/pkg/errors"
	"github.com/YuminosukeSato/movielens/recommender"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MOVIELENS_"

// File names inside the config directory.
const (
	BaseFile   = "config.yaml"
	ProfileDir = "exp"
)

// Config is the complete pipeline configuration.
type Config struct {
	Data            DataConfig      `koanf:"data" yaml:"data"`
	Columns         dataset.Columns `koanf:"columns" yaml:"columns"`
	Exp             ExpConfig       `koanf:"exp" yaml:"exp"`
	Training        TrainingConfig  `koanf:"training" yaml:"training"`
	Tracking        TrackingConfig  `koanf:"tracking" yaml:"tracking"`
	Logging         LoggingConfig   `koanf:"logging" yaml:"logging"`
	Publish         PublishConfig   `koanf:"publish" yaml:"publish"`
	MetricsTextfile string          `koanf:"metrics_textfile" yaml:"metrics_textfile"`
}

// DataConfig locates the raw and processed ratings.
type DataConfig struct {
	RatingsRaw       string `koanf:"ratings_raw" yaml:"ratings_raw" validate:"required"`
	RatingsProcessed string `koanf:"ratings_processed" yaml:"ratings_processed" validate:"required"`
	// Version is a tag logged with every run.
	Version string `koanf:"version" yaml:"version"`
	// Filter is an optional CEL expression over user_id, movie_id, rating
	// and timestamp.
	Filter string `koanf:"filter" yaml:"filter"`
}

// ExpConfig is the per-profile experiment section.
type ExpConfig struct {
	Name                string                `koanf:"name" yaml:"name" validate:"required"`
	Model               recommender.ModelSpec `koanf:"model" yaml:"model"`
	NRows               int                   `koanf:"n_rows" yaml:"n_rows" validate:"gte=0"`
	Seed                int64                 `koanf:"seed" yaml:"seed" validate:"gte=0"`
	MinMovieRatingCount int                   `koanf:"min_movie_rating_count" yaml:"min_movie_rating_count" validate:"gte=0"`
	MaxMovieRatingCount int                   `koanf:"max_movie_rating_count" yaml:"max_movie_rating_count" validate:"gte=0"`
	MLflow              MLflowConfig          `koanf:"mlflow" yaml:"mlflow"`
}

// MLflowConfig names the tracking experiment.
type MLflowConfig struct {
	ExperimentName string `koanf:"experiment_name" yaml:"experiment_name" validate:"required"`
}

// TrainingConfig controls the train/test split.
type TrainingConfig struct {
	TestSize float64 `koanf:"test_size" yaml:"test_size" validate:"gt=0,lt=1"`
}

// TrackingConfig locates the tracking database and artifact store.
type TrackingConfig struct {
	DSN          string `koanf:"dsn" yaml:"dsn" validate:"required"`
	ArtifactRoot string `koanf:"artifact_root" yaml:"artifact_root" validate:"required"`
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `koanf:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" yaml:"format" validate:"oneof=json console"`
}

// PublishConfig enables pushing the top recommendations to Redis.
type PublishConfig struct {
	Enabled bool          `koanf:"enabled" yaml:"enabled"`
	Addr    string        `koanf:"addr" yaml:"addr" validate:"required_if=Enabled true"`
	DB      int           `koanf:"db" yaml:"db" validate:"gte=0"`
	Key     string        `koanf:"key" yaml:"key" validate:"required_if=Enabled true"`
	TopN    int           `koanf:"top_n" yaml:"top_n" validate:"gte=0"`
	TTL     time.Duration `koanf:"ttl" yaml:"ttl" validate:"gte=0"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Data: DataConfig{
			RatingsRaw:       "data/raw/ml-latest-small/ratings.csv",
			RatingsProcessed: "data/processed/ratings.csv",
			Version:          "v1",
		},
		Columns: dataset.DefaultColumns(),
		Exp: ExpConfig{
			Name:                recommender.BaselineName,
			Model:               recommender.ModelSpec{Name: recommender.BaselineName},
			Seed:                42,
			MinMovieRatingCount: 1,
			MLflow:              MLflowConfig{ExperimentName: "movielens"},
		},
		Training: TrainingConfig{TestSize: 0.2},
		Tracking: TrackingConfig{
			DSN:          "mlruns/tracking.db",
			ArtifactRoot: "mlruns/artifacts",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Publish: PublishConfig{
			Addr: "localhost:6379",
			Key:  "movielens:top",
			TopN: 10,
			TTL:  24 * time.Hour,
		},
	}
}

// Load builds the configuration from dir and profile. An empty profile
// skips the profile layer; a named profile must exist.
func Load(dir, profile string) (*Config, error) {
	k := koanf.New(".")

	defaults := Default()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return nil, errors.Wrap(err, "load config defaults")
	}

	base := filepath.Join(dir, BaseFile)
	if _, err := os.Stat(base); err == nil {
		if err := k.Load(file.Provider(base), yaml.Parser()); err != nil {
			return nil, errors.NewDataLoadError(base, "parse config", err)
		}
	}

	if profile != "" {
		path := filepath.Join(dir, ProfileDir, profile+".yaml")
		if _, err := os.Stat(path); err != nil {
			return nil, errors.NewValidationError("profile", "no profile file "+path, profile)
		}
		exp := koanf.New(".")
		if err := exp.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.NewDataLoadError(path, "parse profile", err)
		}
		if err := k.MergeAt(exp, "exp"); err != nil {
			return nil, errors.Wrapf(err, "merge profile %s", profile)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "load environment overrides")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.NewValidationError("config", err.Error(), dir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps MOVIELENS_EXP__MODEL__NAME to exp.model.name.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks every field and reports all failing keys at once, by
// their dotted configuration path.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errors.Wrap(err, "validate config")
		}
		keys := make([]string, 0, len(verrs))
		rules := make([]string, 0, len(verrs))
		values := make([]any, 0, len(verrs))
		for _, fe := range verrs {
			_, key, _ := strings.Cut(fe.Namespace(), ".")
			keys = append(keys, key)
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			rules = append(rules, key+" ("+rule+")")
			values = append(values, fe.Value())
		}
		return errors.NewValidationError(strings.Join(keys, ", "), "invalid configuration: "+strings.Join(rules, ", "), values)
	}
	return c.Columns.Validate()
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	out, err := yamlv3.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "render config")
	}
	return out, nil
}
