package observability

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/weather-assistant-proxy/internal/traffic"
)

// Location label for coordinate queries; lat/lon pairs are never used as label values.
const CoordinatesLocationLabel = "coordinates"

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// OpenWeatherMap calls by endpoint (current, forecast) and status class.
	WeatherAPICallsTotal *prometheus.CounterVec

	// OpenWeatherMap latency. Watch for: p95 approaching weather_api.timeout.
	WeatherAPIDuration *prometheus.HistogramVec

	// Weather proxy failures by client.ErrorCategory.
	WeatherAPIErrorsTotal *prometheus.CounterVec

	// Assistant provider calls by provider and classified outcome (success, invalid_credential, ...).
	AssistantCallsTotal *prometheus.CounterVec

	// Assistant provider latency. LLM calls are slow; buckets reach the 10s default timeout.
	AssistantDuration *prometheus.HistogramVec

	// Total weather lookups.
	WeatherQueriesTotal prometheus.Counter

	// Per-location query count (allow-list; others go to "other", coordinates to "coordinates").
	WeatherQueriesByLocationTotal *prometheus.CounterVec

	// Rate limit denials.
	RateLimitDeniedTotal prometheus.Counter

	trackedLocationsMu sync.RWMutex
	trackedLocations   map[string]struct{}

	rateLimitGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of OpenWeatherMap API calls",
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "OpenWeatherMap API latency in seconds (per call)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiErrorsTotal",
			Help: "Weather proxy failures by error category",
		},
		[]string{"category"},
	)
	AssistantCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistantCallsTotal",
			Help: "Total number of assistant provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)
	AssistantDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistantDurationSeconds",
			Help:    "Assistant provider latency in seconds (per call)",
			Buckets: []float64{.25, .5, 1, 2, 4, 6, 8, 10, 15},
		},
		[]string{"provider"},
	)
	WeatherQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherQueriesTotal",
			Help: "Total number of weather lookups",
		},
	)
	WeatherQueriesByLocationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherQueriesByLocationTotal",
			Help: "Weather queries by location (allow-list; others use location=other)",
		},
		[]string{"location"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIErrorsTotal,
		AssistantCallsTotal, AssistantDuration,
		WeatherQueriesTotal, WeatherQueriesByLocationTotal,
		RateLimitDeniedTotal,
	)
}

// RegisterRateLimitGauges registers load and rejects gauges for the rate-limited routes.
// Call from main after config load with cfg.OverloadWindow.
func RegisterRateLimitGauges(window time.Duration) {
	rateLimitGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting rate-limited routes in sliding window",
				},
				func() float64 { return float64(traffic.CountsFor("", window).Total()) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in sliding window",
				},
				func() float64 { return float64(traffic.CountsFor("", window).Denied) },
			),
		)
	})
}

// SetTrackedLocations sets the allow-list for location metrics. Non-tracked locations increment "other".
func SetTrackedLocations(locations []string) {
	trackedLocationsMu.Lock()
	defer trackedLocationsMu.Unlock()
	trackedLocations = make(map[string]struct{}, len(locations))
	for _, loc := range locations {
		trackedLocations[normalizeLocationForMetrics(loc)] = struct{}{}
	}
}

// RecordWeatherQuery records a weather query. Pass the city, or "" for a coordinate query.
func RecordWeatherQuery(city string) {
	WeatherQueriesTotal.Inc()
	WeatherQueriesByLocationTotal.WithLabelValues(MetricLocationLabel(city)).Inc()
}

// MetricLocationLabel maps a city to its bounded-cardinality label value.
func MetricLocationLabel(city string) string {
	loc := normalizeLocationForMetrics(city)
	if loc == "" {
		return CoordinatesLocationLabel
	}
	trackedLocationsMu.RLock()
	_, ok := trackedLocations[loc] // nil map read is safe in Go
	trackedLocationsMu.RUnlock()
	if ok {
		return loc
	}
	return "other"
}

// RecordWeatherAPICall records one upstream weather call.
func RecordWeatherAPICall(endpoint, status string, d time.Duration) {
	WeatherAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	WeatherAPIDuration.WithLabelValues(endpoint, status).Observe(d.Seconds())
}

// RecordAssistantCall records one assistant provider call and its classified outcome.
func RecordAssistantCall(provider, outcome string, d time.Duration) {
	AssistantCallsTotal.WithLabelValues(provider, outcome).Inc()
	AssistantDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func normalizeLocationForMetrics(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
