package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"timeout sentinel", fmt.Errorf("forecast: %w", ErrTimeout), ErrorCategoryTimeout},
		{"timeout context", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"canceled context", context.Canceled, ErrorCategoryTimeout},
		{"invalid API key", ErrInvalidAPIKey, ErrorCategoryInvalidAPIKey},
		{"wrapped invalid API key", fmt.Errorf("current weather: %w", ErrInvalidAPIKey), ErrorCategoryInvalidAPIKey},
		{"location not found", ErrLocationNotFound, ErrorCategoryLocationNotFound},
		{"rate limited", ErrRateLimited, ErrorCategoryRateLimited},
		{"upstream failure", fmt.Errorf("%w: HTTP 502", ErrUpstreamFailure), ErrorCategoryUpstream},
		{"invalid response", ErrInvalidResponse, ErrorCategoryParsing},
		{"network in message", errors.New("dial tcp: connection refused"), ErrorCategoryNetwork},
		{"dns in message", errors.New("lookup api.example: no such host"), ErrorCategoryNetwork},
		{"parse in message", errors.New("parse response: invalid json"), ErrorCategoryParsing},
		{"unknown", errors.New("something else"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategorizeError(tt.err); got != tt.want {
				t.Errorf("CategorizeError() = %v, want %v", got, tt.want)
			}
		})
	}
}
