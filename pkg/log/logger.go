package log

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	mlerrors "github.com/YuminosukeSato/movielens/pkg/errors"
)

// Config selects the level and encoding of the zerolog sink.
type Config struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string
	// Format is json or console. Default: console.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the configuration used before Init is called.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console", Output: os.Stderr}
}

// ToLogLevel parses a level name. Unknown names are a ValidationError.
func ToLogLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, mlerrors.NewValidationError("logging.level", "must be one of debug, info, warn, error", level)
	}
}

func toZerologLevel(l Level) zerolog.Level {
	switch {
	case l <= LevelDebug:
		return zerolog.DebugLevel
	case l <= LevelInfo:
		return zerolog.InfoLevel
	case l <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ZerologProvider is the production LoggerProvider.
type ZerologProvider struct {
	base  zerolog.Logger
	level atomic.Int64
}

// NewZerologProvider builds a provider writing to cfg.Output.
func NewZerologProvider(cfg Config) (*ZerologProvider, error) {
	level, err := ToLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	case "json":
	default:
		return nil, mlerrors.NewValidationError("logging.format", "must be json or console", cfg.Format)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	p := &ZerologProvider{base: zerolog.New(out).With().Timestamp().Logger()}
	p.level.Store(int64(level))
	return p, nil
}

func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{zl: p.base, provider: p}
}

func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger(), provider: p}
}

func (p *ZerologProvider) SetLevel(level Level) {
	p.level.Store(int64(level))
}

func (p *ZerologProvider) currentLevel() Level {
	return Level(p.level.Load())
}

type zerologLogger struct {
	zl       zerolog.Logger
	provider *ZerologProvider
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.emit(LevelDebug, msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.emit(LevelInfo, msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.emit(LevelWarn, msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { l.emit(LevelError, msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := appendFields(l.zl.With(), fields)
	return &zerologLogger{zl: ctx.Logger(), provider: l.provider}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= l.provider.currentLevel()
}

func (l *zerologLogger) emit(level Level, msg string, fields []any) {
	if level < l.provider.currentLevel() {
		return
	}
	e := l.zl.WithLevel(toZerologLevel(level))
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = withError(e, err)
			fields = fields[1:]
		}
	}
	appendFields(e, fields).Msg(msg)
}

var (
	globalMu       sync.RWMutex
	globalProvider LoggerProvider
)

func init() {
	p, _ := NewZerologProvider(DefaultConfig())
	globalProvider = p
}

// Init replaces the global provider with a zerolog provider built from cfg
// and routes pkg/errors warnings through it.
func Init(cfg Config) (*ZerologProvider, error) {
	p, err := NewZerologProvider(cfg)
	if err != nil {
		return nil, err
	}
	SetProvider(p)
	return p, nil
}

// SetProvider installs p as the global provider.
func SetProvider(p LoggerProvider) {
	globalMu.Lock()
	globalProvider = p
	globalMu.Unlock()

	mlerrors.SetZerologWarnFunc(func(w error) {
		GetLoggerWithName("warnings").Warn(w.Error(), "warning", w)
	})
}

// GetLogger returns the root logger of the global provider.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalProvider.GetLogger()
}

// GetLoggerWithName returns a named logger from the global provider.
func GetLoggerWithName(name string) Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalProvider.GetLoggerWithName(name)
}
