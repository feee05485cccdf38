// Package plotting draws residual figures for an evaluated model and logs
// them to a tracking run.
package plotting

import (
	"context"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/movielens/pkg/errors"
	"github.com/YuminosukeSato/movielens/tracking"
)

// Artifact files written by LogPlots.
const (
	PredVsTruthFile       = "plots/pred_vs_truth.png"
	ErrorDistributionFile = "plots/error_distribution.png"
)

// ErrorBins is the number of histogram bins in ErrorDistribution.
const ErrorBins = 30

func checkPairs(preds, truths []float64) error {
	if len(preds) != len(truths) {
		return errors.NewDimensionError("plot", len(truths), len(preds), 0)
	}
	if len(preds) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "plot")
	}
	return nil
}

// PredVsTruth scatters predictions against true ratings with the y = x
// reference line in red.
func PredVsTruth(preds, truths []float64) (*plot.Plot, error) {
	if err := checkPairs(preds, truths); err != nil {
		return nil, err
	}

	pts := make(plotter.XYs, len(preds))
	lo, hi := truths[0], truths[0]
	for i := range preds {
		pts[i].X = truths[i]
		pts[i].Y = preds[i]
		lo = min(lo, truths[i], preds[i])
		hi = max(hi, truths[i], preds[i])
	}

	p := plot.New()
	p.Title.Text = "Predictions vs. True Ratings"
	p.X.Label.Text = "True Ratings"
	p.Y.Label.Text = "Predicted Ratings"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.Wrap(err, "scatter")
	}
	scatter.GlyphStyle.Radius = 2

	diag, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return nil, errors.Wrap(err, "reference line")
	}
	diag.LineStyle.Color = color.RGBA{R: 255, A: 255}
	diag.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(scatter, diag)
	return p, nil
}

// ErrorDistribution is a histogram of prediction - truth.
func ErrorDistribution(preds, truths []float64) (*plot.Plot, error) {
	if err := checkPairs(preds, truths); err != nil {
		return nil, err
	}

	residuals := make(plotter.Values, len(preds))
	for i := range preds {
		residuals[i] = preds[i] - truths[i]
	}

	p := plot.New()
	p.Title.Text = "Distribution of Prediction Errors"
	p.X.Label.Text = "Prediction Error"
	p.Y.Label.Text = "Frequency"

	h, err := plotter.NewHist(residuals, ErrorBins)
	if err != nil {
		return nil, errors.Wrap(err, "histogram")
	}
	p.Add(h)
	return p, nil
}

// LogPlots renders both figures and logs them to run.
func LogPlots(ctx context.Context, run tracking.Run, preds, truths []float64) error {
	scatter, err := PredVsTruth(preds, truths)
	if err != nil {
		return err
	}
	if err := run.LogFigure(ctx, scatter, PredVsTruthFile); err != nil {
		return err
	}

	hist, err := ErrorDistribution(preds, truths)
	if err != nil {
		return err
	}
	return run.LogFigure(ctx, hist, ErrorDistributionFile)
}
