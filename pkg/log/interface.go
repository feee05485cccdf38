// Package log defines the structured logging interface used across the
// pipeline and a zerolog-backed implementation of it.
//
// The interface is slog-shaped: a message followed by alternating key/value
// fields. Keys should come from attributes.go so that every stage logs the
// same field names.
//
//	logger := log.GetLoggerWithName("trainer").With(log.ModelNameKey, "baseline")
//	logger.Info("model trained",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 8,
//	)
package log

import (
	"context"
)

// Logger is a leveled, structured logger.
//
// Error treats a leading error field specially: the error is attached under
// the "error" key and its cockroachdb stack trace, when present, under
// StacktraceKey.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a child logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether a record at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level. Values match slog.Level.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the upper case name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider hands out loggers that share one sink and one level.
type LoggerProvider interface {
	// GetLogger returns the root logger.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with ComponentKey=name.
	GetLoggerWithName(name string) Logger

	// SetLevel changes the minimum level of every logger from this provider.
	SetLevel(level Level)
}
