package instrument

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()
	m.ObserveStage("load", 1500*time.Millisecond, 10)
	m.ObserveStage("load", 250*time.Millisecond, 8)
	m.ObserveScores("baseline", map[string]float64{"rmse": 0.9})
	m.ObserveRun("FINISHED")
	m.ObserveRun("FINISHED")

	assert.Equal(t, 0.25, testutil.ToFloat64(m.stageDuration.WithLabelValues("load")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.stageRows.WithLabelValues("load")))
	assert.Equal(t, 0.9, testutil.ToFloat64(m.modelScore.WithLabelValues("baseline", "rmse")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("FINISHED")))
	assert.Greater(t, testutil.ToFloat64(m.lastRun), 0.0)
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.ObserveStage("write", time.Second, 8)

	path := filepath.Join(t.TempDir(), "textfile", "movielens.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `movielens_stage_rows{stage="write"} 8`)
	assert.Contains(t, string(data), "# HELP movielens_stage_duration_seconds")
}
