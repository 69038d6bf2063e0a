// Package logger provides structured logging for the signal engine using
// log/slog, with lineage trace IDs propagated through context.Context so a
// signal's open → gale → resolution timeline can be reconstructed from logs.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// Init creates a JSON logger for the given service and sets it as the
// slog default.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	l := slog.New(handler).With(
		slog.String("service", service),
	)
	slog.SetDefault(l)
	return l
}

// WithTraceID stores a lineage trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID extracts the lineage trace ID from context. Returns "" if unset.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// LineageID creates a trace ID for a new signal lineage.
// Format: "{pair}-{unixNano}" — stable across gale escalations.
func LineageID(pair string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", pair, ts.UnixNano())
}

// Trace returns slog attributes carrying the trace ID from context.
// Usage: slog.Info("msg", logger.Trace(ctx)...)
func Trace(ctx context.Context) []any {
	tid := TraceID(ctx)
	if tid == "" {
		return nil
	}
	return []any{slog.String("trace_id", tid)}
}
