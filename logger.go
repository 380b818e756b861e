package sidongo

import (
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/sidongo/search"
	"github.com/hupe1980/sidongo/store"
)

// Logger wraps slog.Logger with sidongo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithN adds the target set size field to the logger.
func (l *Logger) WithN(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("n", n),
	}
}

// WithBound adds a bound field to the logger.
func (l *Logger) WithBound(bound uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("bound", bound),
	}
}

// WithWorkers adds a worker-count field to the logger.
func (l *Logger) WithWorkers(workers int) *Logger {
	return &Logger{
		Logger: l.Logger.With("workers", workers),
	}
}

// LogSolve logs the outcome of one search run.
func (l *Logger) LogSolve(result *search.Result, err error) {
	if err != nil {
		l.Error("solve failed",
			"n", result.N,
			"error", err,
		)
		return
	}
	l.Info("solve completed",
		"n", result.N,
		"status", result.Status.String(),
		"max", result.MaxValue,
		"set", store.SetKey(result.Set),
		"nodes", result.NodesExplored,
		"elapsed", result.ComputationTime,
	)
}

// LogSkip logs an already-solved target being skipped.
func (l *Logger) LogSkip(n int) {
	l.Info("already solved, skipping", "n", n)
}

// LogSave logs a persistence write.
func (l *Logger) LogSave(n int, duration time.Duration, err error) {
	if err != nil {
		l.Error("save failed",
			"n", n,
			"error", err,
		)
	} else {
		l.Debug("result saved",
			"n", n,
			"elapsed", duration,
		)
	}
}
