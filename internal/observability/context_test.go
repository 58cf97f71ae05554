package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLoggerFromContext(t *testing.T) {
	if l := LoggerFromContext(context.Background()); l == nil {
		t.Fatal("LoggerFromContext() = nil, want no-op logger")
	}

	want := zap.NewExample()
	ctx := context.WithValue(context.Background(), LoggerKey, want)
	if got := LoggerFromContext(ctx); got != want {
		t.Error("LoggerFromContext() did not return the attached logger")
	}
}

func TestCorrelationID(t *testing.T) {
	if id := CorrelationID(context.Background()); id != "" {
		t.Errorf("CorrelationID() = %q, want empty", id)
	}
	ctx := context.WithValue(context.Background(), CorrelationIDKey, "abc-123")
	if id := CorrelationID(ctx); id != "abc-123" {
		t.Errorf("CorrelationID() = %q, want abc-123", id)
	}
}
