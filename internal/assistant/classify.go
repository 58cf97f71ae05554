package assistant

import (
	"errors"
	"strings"
)

// ErrorKind classifies an assistant failure for the response label and metrics.
type ErrorKind string

const (
	KindConfiguration     ErrorKind = "configuration_error"
	KindInvalidCredential ErrorKind = "invalid_credential"
	KindQuotaExceeded     ErrorKind = "quota_exceeded"
	KindContentFiltered   ErrorKind = "content_filtered"
	KindUnavailable       ErrorKind = "assistant_unavailable"
)

// ErrNotConfigured is returned when the provider has no credential (or host) to call with.
var ErrNotConfigured = errors.New("assistant provider not configured")

// ErrTimeout marks a provider call cut off by its deadline.
var ErrTimeout = errors.New("assistant provider timeout")

// Markers searched for in provider error messages. Case-sensitive.
const (
	markerAPIKey = "API_KEY"
	markerQuota  = "quota"
	markerSafety = "SAFETY"
)

// Classify maps a provider error message to an ErrorKind by substring. This is the
// single place to swap in structured provider error codes.
func Classify(providerErrorMessage string) ErrorKind {
	switch {
	case strings.Contains(providerErrorMessage, markerAPIKey):
		return KindInvalidCredential
	case strings.Contains(providerErrorMessage, markerQuota):
		return KindQuotaExceeded
	case strings.Contains(providerErrorMessage, markerSafety):
		return KindContentFiltered
	default:
		return KindUnavailable
	}
}

// ClassifyError is Classify over err, with ErrNotConfigured mapped directly.
func ClassifyError(err error) ErrorKind {
	if errors.Is(err, ErrNotConfigured) {
		return KindConfiguration
	}
	return Classify(err.Error())
}

// Label is the short human-readable text returned to the dashboard for kind.
func (k ErrorKind) Label() string {
	switch k {
	case KindConfiguration:
		return "API key not configured"
	case KindInvalidCredential:
		return "Invalid API key"
	case KindQuotaExceeded:
		return "API quota exceeded"
	case KindContentFiltered:
		return "Content filtered by safety settings"
	default:
		return "Failed to get response from AI"
	}
}

// Failure is a classified assistant error returned by the service layer.
type Failure struct {
	Kind ErrorKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }
