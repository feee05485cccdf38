// Package tracking records experiment runs: parameters, metrics, artifact
// files and rendered figures. SQLiteStore persists them locally and
// MemorySink keeps them in memory for tests.
package tracking

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning  Status = "RUNNING"
	StatusFinished Status = "FINISHED"
	StatusFailed   Status = "FAILED"
)

// DefaultExperiment is used when StartRun is called before SetExperiment.
const DefaultExperiment = "Default"

// Figure size used when rendering plots to PNG.
const (
	FigureWidth  = 6 * vg.Inch
	FigureHeight = 4 * vg.Inch
)

// Sink creates runs inside a named experiment.
type Sink interface {
	// SetExperiment selects the experiment, creating it if needed.
	SetExperiment(ctx context.Context, name string) error
	// StartRun opens a RUNNING run in the current experiment.
	StartRun(ctx context.Context, name string) (Run, error)
}

// Run is an open tracking run. End must be called exactly once; logging
// after End returns an error.
type Run interface {
	ID() string
	LogParam(ctx context.Context, key string, value any) error
	LogParams(ctx context.Context, params map[string]any) error
	LogMetrics(ctx context.Context, metrics map[string]float64) error
	// LogArtifact copies the file at localPath under artifactPath.
	LogArtifact(ctx context.Context, localPath, artifactPath string) error
	// LogFigure renders p as PNG to artifactFile, e.g. "plots/residuals.png".
	LogFigure(ctx context.Context, p *plot.Plot, artifactFile string) error
	End(ctx context.Context, status Status) error
}

// RunInfo is a recorded run as returned by ListRuns.
type RunInfo struct {
	ID          string
	Name        string
	Experiment  string
	Status      Status
	StartTime   time.Time
	EndTime     time.Time
	ArtifactURI string
	Params      map[string]string
	Metrics     map[string]float64
	Artifacts   []string
}

// ParamString renders a parameter value the way it is stored.
func ParamString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k + ": " + ParamString(t[k]))
		}
		b.WriteByte('}')
		return b.String()
	default:
		return fmt.Sprint(v)
	}
}

// copyFile copies src to dst, creating dst's directory.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.NewDataLoadError(src, "open artifact", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.NewPersistError(dst, "mkdir", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return errors.NewPersistError(dst, "create", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.NewPersistError(dst, "copy", err)
	}
	if err := out.Close(); err != nil {
		return errors.NewPersistError(dst, "close", err)
	}
	return nil
}

// renderFigure writes p as a PNG to w.
func renderFigure(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(FigureWidth, FigureHeight, "png")
	if err != nil {
		return errors.Wrap(err, "render figure")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write figure")
	}
	return nil
}

// cleanArtifactPath rejects absolute paths and paths escaping the run's
// artifact directory.
func cleanArtifactPath(p string) (string, error) {
	c := filepath.Clean(filepath.FromSlash(p))
	if c == "." {
		return "", nil
	}
	if filepath.IsAbs(c) || c == ".." || strings.HasPrefix(c, ".."+string(filepath.Separator)) {
		return "", errors.NewValidationError("artifact_path", "must be relative to the run's artifact directory", p)
	}
	return c, nil
}
