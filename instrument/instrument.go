// Package instrument collects per-run pipeline metrics in a private
// Prometheus registry and writes them in the node-exporter textfile format.
package instrument

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

const namespace = "movielens"

// Metrics is a set of collectors for one pipeline process.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration *prometheus.GaugeVec
	stageRows     *prometheus.GaugeVec
	modelScore    *prometheus.GaugeVec
	runs          *prometheus.CounterVec
	lastRun       prometheus.Gauge
}

// New registers the collectors in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of the last execution of a pipeline stage",
		}, []string{"stage"}),
		stageRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_rows",
			Help:      "Rows produced by the last execution of a pipeline stage",
		}, []string{"stage"}),
		modelScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_score",
			Help:      "Evaluation metric of the last trained model",
		}, []string{"model", "metric"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by final status",
		}, []string{"status"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last pipeline run finished",
		}),
	}
	m.registry.MustRegister(m.stageDuration, m.stageRows, m.modelScore, m.runs, m.lastRun)
	return m
}

// ObserveStage records the duration and output size of a stage.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration, rows int) {
	m.stageDuration.WithLabelValues(stage).Set(elapsed.Seconds())
	m.stageRows.WithLabelValues(stage).Set(float64(rows))
}

// ObserveScores records evaluation metrics of model.
func (m *Metrics) ObserveScores(model string, scores map[string]float64) {
	for name, v := range scores {
		m.modelScore.WithLabelValues(model, name).Set(v)
	}
}

// ObserveRun counts a finished run.
func (m *Metrics) ObserveRun(status string) {
	m.runs.WithLabelValues(status).Inc()
	m.lastRun.SetToCurrentTime()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile atomically writes all metrics to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewPersistError(path, "mkdir", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.NewPersistError(path, "write", err)
	}
	return nil
}
