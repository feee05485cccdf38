// Package errors provides the error taxonomy and warning system shared by the
// whole pipeline. Every constructor attaches a stack trace through
// cockroachdb/errors, and every structured error can be rendered as a zerolog
// object so failures are logged with their fields rather than a flat string.
package errors

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("movielens-warning: %v\n", w)
	}
	// set by pkg/log to avoid an import cycle
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the handler used for non-fatal warnings such as
// UndefinedMetricWarning.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // ignore warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a structured warning sink. It takes precedence
// over the plain handler.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning through the zerolog sink when one is installed and
// through the plain handler otherwise.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// UndefinedMetricWarning is raised when a metric cannot be computed from the
// given data and a conventional fallback value is returned instead, e.g. R²
// on a test set whose ratings are all equal.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject adds the warning fields to a zerolog event.
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning creates a new UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	Pipeline error taxonomy
//
// ===========================================================================

// DataLoadError means a dataset source is missing, unreadable or malformed.
type DataLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DataLoadError) Error() string {
	msg := fmt.Sprintf("movielens: load %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *DataLoadError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Str("reason", e.Reason).
		Str("type", "DataLoadError")
}

// NewDataLoadError creates a DataLoadError with a stack trace.
func NewDataLoadError(path, reason string, err error) error {
	return errors.WithStack(&DataLoadError{Path: path, Reason: reason, Err: err})
}

// SchemaValidationError lists the columns of a cleaned dataset that violate
// the ratings schema. Violations maps a column name to the number of rows
// that failed on it.
type SchemaValidationError struct {
	Columns    []string
	Violations map[string]int
}

func (e *SchemaValidationError) Error() string {
	parts := make([]string, 0, len(e.Columns))
	for _, c := range e.Columns {
		parts = append(parts, fmt.Sprintf("%s (%d rows)", c, e.Violations[c]))
	}
	return fmt.Sprintf("movielens: schema validation failed for columns: %s", strings.Join(parts, ", "))
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *SchemaValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Strs("columns", e.Columns).
		Str("type", "SchemaValidationError")
}

// NewSchemaValidationError creates a SchemaValidationError with a stack
// trace. Columns are taken from the keys of violations, sorted.
func NewSchemaValidationError(violations map[string]int) error {
	cols := make([]string, 0, len(violations))
	for c := range violations {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return errors.WithStack(&SchemaValidationError{Columns: cols, Violations: violations})
}

// UnknownModelError is returned by the model registry for a name that has
// no registered factory.
type UnknownModelError struct {
	Name      string
	Supported []string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("movielens: unknown model type '%s' (supported: %s)", e.Name, strings.Join(e.Supported, ", "))
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *UnknownModelError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.Name).
		Strs("supported", e.Supported).
		Str("type", "UnknownModelError")
}

// NewUnknownModelError creates an UnknownModelError with a stack trace.
func NewUnknownModelError(name string, supported []string) error {
	return errors.WithStack(&UnknownModelError{Name: name, Supported: supported})
}

// NotFittedError is returned when Predict or Recommend is called on a model
// before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("movielens: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// EvaluationError means predictions could not be scored, either because
// their count differs from the number of truths or because a metric could
// not be computed.
type EvaluationError struct {
	Reason   string
	Expected int
	Got      int
	Err      error
}

func (e *EvaluationError) Error() string {
	msg := "movielens: evaluation failed: " + e.Reason
	if e.Expected != e.Got {
		msg += fmt.Sprintf(" (expected %d predictions, got %d)", e.Expected, e.Got)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *EvaluationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("reason", e.Reason).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("type", "EvaluationError")
}

// NewEvaluationError creates an EvaluationError with a stack trace.
func NewEvaluationError(reason string, expected, got int, err error) error {
	return errors.WithStack(&EvaluationError{Reason: reason, Expected: expected, Got: got, Err: err})
}

// PersistError wraps a failure to delete or write the processed dataset.
type PersistError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("movielens: persist %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *PersistError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Str("op", e.Op).
		Str("type", "PersistError")
}

// NewPersistError creates a PersistError with a stack trace.
func NewPersistError(path, op string, err error) error {
	return errors.WithStack(&PersistError{Path: path, Op: op, Err: err})
}

// ===========================================================================
//
//	General purpose errors
//
// ===========================================================================

// DimensionError is returned when two inputs that must line up do not.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("movielens: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError is returned when a parameter (a hyperparameter, a config
// value) fails validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("movielens: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace.
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError is returned when an argument has an unusable value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("movielens: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError is a general failure inside a model implementation.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("movielens: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("movielens: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError with a stack trace.
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// ===========================================================================
//
//	cockroachdb/errors passthroughs
//
// ===========================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap annotates err with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates an error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Sentinel errors
//
// ===========================================================================

var (
	// ErrEmptyData is returned when an operation receives no rows.
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix is returned when the normal equations cannot be solved.
	ErrSingularMatrix = New("singular matrix")
)
