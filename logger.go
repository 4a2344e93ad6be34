package aggo

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with aggo-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogCollect logs the per-segment collection phase of one pass.
func (l *Logger) LogCollect(ctx context.Context, segments int, docs uint64, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "collection failed",
			"segments", segments,
			"docs", docs,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "collection completed",
			"segments", segments,
			"docs", docs,
			"elapsed", elapsed,
		)
	}
}

// LogPostCollect logs the index-wide post-collection phase.
func (l *Logger) LogPostCollect(ctx context.Context, aggregations int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "post-collection failed",
			"aggregations", aggregations,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "post-collection completed",
			"aggregations", aggregations,
			"elapsed", elapsed,
		)
	}
}

// LogBuild logs result materialization.
func (l *Logger) LogBuild(ctx context.Context, aggregations int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "result build failed",
			"aggregations", aggregations,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "result build completed",
			"aggregations", aggregations,
		)
	}
}

// LogPipeline logs the pipeline reduction stage.
func (l *Logger) LogPipeline(ctx context.Context, steps int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "pipeline reduction failed",
			"steps", steps,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "pipeline reduction completed",
			"steps", steps,
		)
	}
}

// LogArchive logs an archive write.
func (l *Logger) LogArchive(ctx context.Context, name string, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "archive failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "archive saved",
			"name", name,
			"bytes", bytes,
		)
	}
}
