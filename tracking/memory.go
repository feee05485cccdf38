package tracking

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/plot"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

// MemorySink keeps runs in memory. Artifact files are read and kept as
// bytes so tests can inspect them after temporary directories are gone.
type MemorySink struct {
	mu         sync.Mutex
	experiment string
	runs       []*MemoryRun
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) SetExperiment(_ context.Context, name string) error {
	if name == "" {
		return errors.NewValidationError("experiment_name", "must not be empty", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.experiment = name
	return nil
}

func (m *MemorySink) StartRun(_ context.Context, name string) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp := m.experiment
	if exp == "" {
		exp = DefaultExperiment
	}
	r := &MemoryRun{
		id:         uuid.New().String(),
		Name:       name,
		Experiment: exp,
		Status:     StatusRunning,
		Params:     map[string]string{},
		Metrics:    map[string]float64{},
		Artifacts:  map[string][]byte{},
	}
	m.runs = append(m.runs, r)
	return r, nil
}

// Experiment returns the selected experiment name.
func (m *MemorySink) Experiment() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.experiment
}

// Runs returns the runs started so far, oldest first.
func (m *MemorySink) Runs() []*MemoryRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MemoryRun(nil), m.runs...)
}

// MemoryRun is a run recorded by MemorySink. Fields must only be read after
// End.
type MemoryRun struct {
	id         string
	Name       string
	Experiment string
	Status     Status
	Params     map[string]string
	Metrics    map[string]float64
	Artifacts  map[string][]byte

	mu    sync.Mutex
	ended bool
}

func (r *MemoryRun) ID() string { return r.id }

func (r *MemoryRun) open() error {
	if r.ended {
		return errors.NewValueError("tracking.Run", fmt.Sprintf("run %s has already ended", r.id))
	}
	return nil
}

func (r *MemoryRun) LogParam(ctx context.Context, key string, value any) error {
	return r.LogParams(ctx, map[string]any{key: value})
}

func (r *MemoryRun) LogParams(_ context.Context, params map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.open(); err != nil {
		return err
	}
	for k, v := range params {
		r.Params[k] = ParamString(v)
	}
	return nil
}

func (r *MemoryRun) LogMetrics(_ context.Context, metrics map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.open(); err != nil {
		return err
	}
	for k, v := range metrics {
		r.Metrics[k] = v
	}
	return nil
}

func (r *MemoryRun) LogArtifact(_ context.Context, localPath, artifactPath string) error {
	dir, err := cleanArtifactPath(artifactPath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return errors.NewDataLoadError(localPath, "open artifact", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.open(); err != nil {
		return err
	}
	r.Artifacts[filepath.ToSlash(filepath.Join(dir, filepath.Base(localPath)))] = data
	return nil
}

func (r *MemoryRun) LogFigure(_ context.Context, p *plot.Plot, artifactFile string) error {
	rel, err := cleanArtifactPath(artifactFile)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := renderFigure(p, &buf); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.open(); err != nil {
		return err
	}
	r.Artifacts[filepath.ToSlash(rel)] = buf.Bytes()
	return nil
}

func (r *MemoryRun) End(_ context.Context, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.open(); err != nil {
		return err
	}
	r.ended = true
	r.Status = status
	return nil
}

var _ Sink = (*MemorySink)(nil)
