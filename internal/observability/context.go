package observability

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

// Request-scoped context keys set by the correlation ID middleware.
const (
	CorrelationIDKey contextKey = "correlation_id"
	LoggerKey        contextKey = "logger"
)

// LoggerFromContext returns the request logger, or a no-op logger when none is attached.
func LoggerFromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(LoggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// CorrelationID returns the request correlation ID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(CorrelationIDKey).(string)
	return id
}
