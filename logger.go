package predgt

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger with predgt-specific context.
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
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithDatasetID adds the dataset id field to the logger.
func (l *Logger) WithDatasetID(id uuid.UUID) *Logger {
	return &Logger{
		Logger: l.Logger.With("dataset_id", id.String()),
	}
}

// WithParams adds the dataset shape fields to the logger.
func (l *Logger) WithParams(p Params) *Logger {
	return &Logger{
		Logger: l.Logger.With("n", p.N, "p", p.P, "x", p.X),
	}
}

// LogGenerate logs corpus and query synthesis.
func (l *Logger) LogGenerate(ctx context.Context, groups int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "generate failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "generate completed",
			"groups", groups,
		)
	}
}

// LogSearch logs the restricted search over all queries.
func (l *Logger) LogSearch(ctx context.Context, metric string, k, degenerate int, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "search failed",
			"metric", metric,
			"k", k,
			"error", err,
		)
	case degenerate > 0:
		l.WarnContext(ctx, "search completed with degenerate queries",
			"metric", metric,
			"k", k,
			"degenerate", degenerate,
		)
	default:
		l.InfoContext(ctx, "search completed",
			"metric", metric,
			"k", k,
		)
	}
}

// LogWrite logs the dataset file write.
func (l *Logger) LogWrite(ctx context.Context, path string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "write failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "dataset written",
			"path", path,
			"bytes", bytes,
		)
	}
}

// LogPublish logs an upload to a blob store.
func (l *Logger) LogPublish(ctx context.Context, uri string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "publish failed",
			"uri", uri,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "dataset published",
			"uri", uri,
			"bytes", bytes,
		)
	}
}
