// Package logger provides the runtime's structured logger. The template
// engine, executor, condition evaluator and LogNotifier receive a Logger by
// injection rather than using a package-level global, so tests can silence
// or capture output per call; ContextWithLogger/FromContext carry one
// through a context.Context.
package logger

import (
	"context"
	"io"
	"os"
	"testing"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the interface every runtime component logs through.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	With(keyvals ...any) Logger
}

// LogLevel is a string-valued log level, kept string-typed (rather than
// reusing charmlog.Level directly) so Config can be decoded from plain
// config sources (env vars, YAML) without an import on charmlog.
type LogLevel string

const (
	DebugLevel    LogLevel = "debug"
	InfoLevel     LogLevel = "info"
	WarnLevel     LogLevel = "warn"
	ErrorLevel    LogLevel = "error"
	DisabledLevel LogLevel = "disabled"
)

// ToCharmlogLevel maps LogLevel onto charmbracelet/log's level scale.
// Unrecognized levels default to InfoLevel.
func (l LogLevel) ToCharmlogLevel() charmlog.Level {
	switch l {
	case DebugLevel:
		return charmlog.DebugLevel
	case InfoLevel:
		return charmlog.InfoLevel
	case WarnLevel:
		return charmlog.WarnLevel
	case ErrorLevel:
		return charmlog.ErrorLevel
	case DisabledLevel:
		// charmlog has no explicit "disabled" level; use a level above
		// Error so nothing is ever emitted.
		return charmlog.Level(1000)
	default:
		return charmlog.InfoLevel
	}
}

// Config controls how NewLogger builds a Logger.
type Config struct {
	Level      LogLevel
	Output     io.Writer
	JSON       bool
	AddSource  bool
	TimeFormat string
}

// DefaultConfig is the configuration used when no explicit Config is given
// outside of a test environment.
func DefaultConfig() *Config {
	return &Config{
		Level:      InfoLevel,
		Output:     os.Stdout,
		JSON:       false,
		AddSource:  false,
		TimeFormat: "15:04:05",
	}
}

// TestConfig silences all output, for use in unit tests that don't want log
// noise but still need a non-nil Logger.
func TestConfig() *Config {
	return &Config{
		Level:      DisabledLevel,
		Output:     io.Discard,
		JSON:       false,
		AddSource:  false,
		TimeFormat: "15:04:05",
	}
}

// IsTestEnvironment reports whether the current process is running under
// `go test`.
func IsTestEnvironment() bool {
	return testing.Testing()
}

type charmLogger struct {
	l *charmlog.Logger
}

// NewLogger builds a Logger from config. A nil config falls back to
// TestConfig() under `go test` and DefaultConfig() otherwise, so code that
// forgets to pass a config still behaves sanely in both contexts.
func NewLogger(config *Config) Logger {
	if config == nil {
		if IsTestEnvironment() {
			config = TestConfig()
		} else {
			config = DefaultConfig()
		}
	}
	output := config.Output
	if output == nil {
		output = os.Stdout
	}
	opts := charmlog.Options{
		ReportTimestamp: true,
		ReportCaller:    config.AddSource,
		TimeFormat:      config.TimeFormat,
	}
	if config.JSON {
		opts.Formatter = charmlog.JSONFormatter
	}
	l := charmlog.NewWithOptions(output, opts)
	l.SetLevel(config.Level.ToCharmlogLevel())
	return &charmLogger{l: l}
}

func (c *charmLogger) Debug(msg string, keyvals ...any) { c.l.Debug(msg, keyvals...) }
func (c *charmLogger) Info(msg string, keyvals ...any)  { c.l.Info(msg, keyvals...) }
func (c *charmLogger) Warn(msg string, keyvals ...any)  { c.l.Warn(msg, keyvals...) }
func (c *charmLogger) Error(msg string, keyvals ...any) { c.l.Error(msg, keyvals...) }

func (c *charmLogger) With(keyvals ...any) Logger {
	return &charmLogger{l: c.l.With(keyvals...)}
}

type ctxKey string

// LoggerCtxKey is the context key under which a Logger is stored.
const LoggerCtxKey ctxKey = "logger"

// ContextWithLogger returns a new context carrying logger.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, LoggerCtxKey, logger)
}

// FromContext returns the Logger stored in ctx, or a default Logger if ctx
// carries none or carries a value of the wrong type.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(LoggerCtxKey).(Logger); ok && l != nil {
		return l
	}
	return NewLogger(nil)
}
