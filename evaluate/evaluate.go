// Package evaluate scores a fitted model against held-out ratings.
package evaluate

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/movielens/core/model"
	"github.com/YuminosukeSato/movielens/dataset"
	"github.com/YuminosukeSato/movielens/metrics"
	"github.com/YuminosukeSato/movielens/pkg/errors"
	"github.com/YuminosukeSato/movielens/pkg/log"
)

// Result holds the scores of one evaluation together with the prediction
// and truth pairs they were computed from.
type Result struct {
	Metrics     metrics.Scores
	Predictions []float64
	Truths      []float64
}

// Evaluator turns a model's predictions on a test set into metrics.
type Evaluator interface {
	Evaluate(m model.Predictor, test *dataset.Dataset) (*Result, error)
}

// Regression evaluates with rmse, mae and r2.
type Regression struct {
	logger log.Logger
}

// NewRegression returns a Regression evaluator.
func NewRegression() *Regression {
	return &Regression{logger: log.GetLoggerWithName("evaluate")}
}

// Evaluate predicts every (user, movie) pair of test and scores the result
// against the test ratings.
func (e *Regression) Evaluate(m model.Predictor, test *dataset.Dataset) (*Result, error) {
	if test.Len() == 0 {
		return nil, errors.NewEvaluationError("test set is empty", 0, 0, nil)
	}

	truths := test.Ratings()
	preds, err := m.Predict(test.UserIDs(), test.MovieIDs())
	if err != nil {
		return nil, errors.NewEvaluationError("predict test set", len(truths), len(truths), err)
	}
	res, err := Score(preds, truths)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("test set scored",
		log.OperationKey, log.OperationEvaluate,
		log.PredsKey, len(preds),
		log.RMSEKey, res.Metrics[metrics.RMSEName],
		log.MAEKey, res.Metrics[metrics.MAEName],
		log.R2ScoreKey, res.Metrics[metrics.R2Name],
	)
	return res, nil
}

// Score computes rmse, mae and r2 for preds against truths. The counts are
// compared before any metric is computed.
func Score(preds, truths []float64) (*Result, error) {
	if len(preds) != len(truths) {
		return nil, errors.NewEvaluationError("prediction count does not match truth count", len(truths), len(preds), nil)
	}
	if len(truths) == 0 {
		return nil, errors.NewEvaluationError("no predictions to score", 0, 0, nil)
	}

	scores, err := metrics.Regression(
		mat.NewVecDense(len(truths), append([]float64(nil), truths...)),
		mat.NewVecDense(len(preds), append([]float64(nil), preds...)),
	)
	if err != nil {
		return nil, errors.NewEvaluationError("compute metrics", len(truths), len(preds), err)
	}
	if err := errors.CheckFinite("evaluate", scores); err != nil {
		return nil, err
	}
	return &Result{Metrics: scores, Predictions: preds, Truths: truths}, nil
}

var _ Evaluator = (*Regression)(nil)
