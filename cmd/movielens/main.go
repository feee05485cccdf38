package main

import (
	"fmt"
	"os"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

// Exit codes
const (
	ExitSuccess = 0 // Command completed
	ExitFailure = 1 // A pipeline stage failed
	ExitUsage   = 2 // Bad flags, bad configuration or setup error
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps pipeline failures to ExitFailure and everything else,
// including configuration problems, to ExitUsage.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var (
		loadErr     *errors.DataLoadError
		schemaErr   *errors.SchemaValidationError
		unknownErr  *errors.UnknownModelError
		notFitted   *errors.NotFittedError
		evalErr     *errors.EvaluationError
		persistErr  *errors.PersistError
		modelErr    *errors.ModelError
		dimErr      *errors.DimensionError
		valueErr    *errors.ValueError
		panicErr    *errors.PanicError
		configError *usageError
	)
	switch {
	case errors.As(err, &configError):
		return ExitUsage
	case errors.As(err, &loadErr),
		errors.As(err, &schemaErr),
		errors.As(err, &unknownErr),
		errors.As(err, &notFitted),
		errors.As(err, &evalErr),
		errors.As(err, &persistErr),
		errors.As(err, &modelErr),
		errors.As(err, &dimErr),
		errors.As(err, &valueErr),
		errors.As(err, &panicErr):
		return ExitFailure
	default:
		return ExitUsage
	}
}

// usageError marks errors caused by how the command was invoked.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usage(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}
