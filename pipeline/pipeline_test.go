package pipeline

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/movielens/config"
	"github.com/YuminosukeSato/movielens/dataset"
	"github.com/YuminosukeSato/movielens/instrument"
	"github.com/YuminosukeSato/movielens/pkg/errors"
	"github.com/YuminosukeSato/movielens/tracking"
)

const rawRatings = `userId,movieId,rating,timestamp
1,10,4.0,100
1,20,3.0,101
2,10,5.0,102
2,20,2.0,103
3,10,3.5,104
3,30,4.5,105
4,20,,106
4,40,1.0,107
5,40,2.5,108
5,10,4.0,109
`

func testConfig(t *testing.T, raw string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "raw.csv")
	require.NoError(t, os.WriteFile(rawPath, []byte(raw), 0o644))

	cfg := config.Default()
	cfg.Data.RatingsRaw = rawPath
	cfg.Data.RatingsProcessed = filepath.Join(dir, "processed", "ratings.csv")
	cfg.MetricsTextfile = filepath.Join(dir, "metrics", "movielens.prom")
	require.NoError(t, cfg.Validate())
	return &cfg
}

func TestPipeline_EndToEndBaseline(t *testing.T) {
	cfg := testConfig(t, rawRatings)
	sink := tracking.NewMemorySink()

	require.NoError(t, New(cfg, sink).Run(context.Background()))

	processed, err := dataset.Load(context.Background(), cfg.Data.RatingsProcessed, cfg.Columns, 0)
	require.NoError(t, err)
	assert.Equal(t, 8, processed.Len())

	runs := sink.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, tracking.StatusFinished, runs[0].Status)
	rmse := runs[0].Metrics["rmse"]
	assert.GreaterOrEqual(t, rmse, 0.0)
	assert.False(t, math.IsInf(rmse, 0) || math.IsNaN(rmse))

	prom, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `movielens_stage_rows{stage="clean"} 8`)
	assert.Contains(t, string(prom), `movielens_runs_total{status="FINISHED"} 1`)
}

func TestPipeline_FeatureFailureSkipsTraining(t *testing.T) {
	cfg := testConfig(t, "userId,movieId,rating,timestamp\n1,10,9.0,1\n1,10,4.0,2\n")
	sink := tracking.NewMemorySink()
	metrics := instrument.New()

	err := New(cfg, sink, WithMetrics(metrics)).Run(context.Background())
	var schemaErr *errors.SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	assert.Empty(t, sink.Runs(), "trainer must not start")

	prom, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `movielens_runs_total{status="FAILED"} 1`)
}

func TestPipeline_TrainingFailureIsRecorded(t *testing.T) {
	cfg := testConfig(t, rawRatings)
	cfg.Exp.Model.Name = "unknown"
	sink := tracking.NewMemorySink()

	err := New(cfg, sink).Run(context.Background())
	var unknown *errors.UnknownModelError
	require.ErrorAs(t, err, &unknown)
	require.Len(t, sink.Runs(), 1)
	assert.Equal(t, tracking.StatusFailed, sink.Runs()[0].Status)
}

func TestConfigMapping(t *testing.T) {
	cfg := config.Default()
	cfg.Exp.Seed = 7
	cfg.Exp.MaxMovieRatingCount = 50
	cfg.Data.Filter = "rating > 1.0"

	fc := FeatureConfig(&cfg)
	assert.Equal(t, cfg.Data.RatingsRaw, fc.RawPath)
	assert.Equal(t, "rating > 1.0", fc.Filter)
	assert.Equal(t, 50, fc.MaxMovieRatingCount)

	tc := TrainingConfig(&cfg)
	assert.Equal(t, uint64(7), tc.Seed)
	assert.Equal(t, cfg.Exp.MLflow.ExperimentName, tc.Experiment)
	assert.Equal(t, cfg.Exp.Model, tc.Model)
}
