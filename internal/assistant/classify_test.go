package assistant

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want ErrorKind
	}{
		{"api key reason", "gemini: [400 INVALID_ARGUMENT] API key not valid. Please pass a valid API key. (API_KEY_INVALID)", KindInvalidCredential},
		{"quota", "gemini: [429 RESOURCE_EXHAUSTED] You exceeded your current quota, please check your plan", KindQuotaExceeded},
		{"safety", "gemini: prompt blocked: SAFETY", KindContentFiltered},
		{"generic", "gemini request failed: dial tcp: connection refused", KindUnavailable},
		{"empty", "", KindUnavailable},
		{"lowercase api key is not a marker", "bad api_key", KindUnavailable},
		{"uppercase quota is not a marker", "QUOTA", KindUnavailable},
		{"api key wins over quota", "API_KEY quota SAFETY", KindInvalidCredential},
		{"quota wins over safety", "quota SAFETY", KindQuotaExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.msg); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	if got := ClassifyError(fmt.Errorf("wrap: %w", ErrNotConfigured)); got != KindConfiguration {
		t.Errorf("ClassifyError(ErrNotConfigured) = %v, want configuration", got)
	}
	if got := ClassifyError(fmt.Errorf("%w: context deadline exceeded", ErrTimeout)); got != KindUnavailable {
		t.Errorf("ClassifyError(timeout) = %v, want unavailable", got)
	}
}

func TestErrorKind_Label(t *testing.T) {
	tests := map[ErrorKind]string{
		KindConfiguration:     "API key not configured",
		KindInvalidCredential: "Invalid API key",
		KindQuotaExceeded:     "API quota exceeded",
		KindContentFiltered:   "Content filtered by safety settings",
		KindUnavailable:       "Failed to get response from AI",
		ErrorKind("other"):    "Failed to get response from AI",
	}
	for kind, want := range tests {
		if got := kind.Label(); got != want {
			t.Errorf("%v.Label() = %q, want %q", kind, got, want)
		}
	}
}

func TestFailure_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	f := &Failure{Kind: KindUnavailable, Err: inner}
	if !errors.Is(f, inner) {
		t.Error("errors.Is(Failure, inner) = false")
	}
	var target *Failure
	if !errors.As(fmt.Errorf("ctx: %w", f), &target) || target.Kind != KindUnavailable {
		t.Errorf("errors.As() = %+v", target)
	}
	if f.Error() != "assistant_unavailable: boom" {
		t.Errorf("Error() = %q", f.Error())
	}
}
