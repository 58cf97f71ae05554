package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestMetrics_Usable verifies label dimensions match usage in client, assistant and http.
func TestMetrics_Usable(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/api/weather", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("POST", "/api/assistant").Observe(0.01)
	RecordWeatherAPICall("current", "success", 120*time.Millisecond)
	RecordWeatherAPICall("forecast", "server_error", time.Second)
	WeatherAPIErrorsTotal.WithLabelValues("timeout").Inc()
	RecordAssistantCall("gemini", "success", 2*time.Second)
	RecordAssistantCall("ollama", "assistant_unavailable", 10*time.Second)
	RateLimitDeniedTotal.Inc()
}

func TestMetricLocationLabel(t *testing.T) {
	SetTrackedLocations([]string{"London", " paris "})
	defer SetTrackedLocations(nil)

	tests := map[string]string{
		"london":    "london",
		"  LONDON ": "london",
		"Paris":     "paris",
		"Berlin":    "other",
		"":          CoordinatesLocationLabel,
	}
	for in, want := range tests {
		if got := MetricLocationLabel(in); got != want {
			t.Errorf("MetricLocationLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecordWeatherQuery_NoTrackedLocations(t *testing.T) {
	SetTrackedLocations(nil)
	if got := MetricLocationLabel("london"); got != "other" {
		t.Errorf("MetricLocationLabel() = %q, want other", got)
	}
	RecordWeatherQuery("london")
	RecordWeatherQuery("")
}

func TestRegisterRateLimitGauges_Idempotent(t *testing.T) {
	RegisterRateLimitGauges(time.Minute)
	RegisterRateLimitGauges(time.Minute)
}

func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/health", "2xx").Inc()
	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "httpRequestsTotal") {
		t.Error("MetricsHandler response should contain metric output")
	}
}
