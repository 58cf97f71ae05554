package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-assistant-proxy/internal/assistant"
	"github.com/kjstillabower/weather-assistant-proxy/internal/client"
	"github.com/kjstillabower/weather-assistant-proxy/internal/lifecycle"
	"github.com/kjstillabower/weather-assistant-proxy/internal/models"
	"github.com/kjstillabower/weather-assistant-proxy/internal/observability"
	"github.com/kjstillabower/weather-assistant-proxy/internal/service"
	"github.com/kjstillabower/weather-assistant-proxy/internal/traffic"
	"github.com/kjstillabower/weather-assistant-proxy/internal/validation"
)

// Route names used for traffic tracking.
const (
	RouteWeather   = "weather"
	RouteAssistant = "assistant"
)

// maxAssistantBodyBytes caps the assistant request body.
const maxAssistantBodyBytes = 1 << 20

// Error texts returned in the {error} envelope.
const (
	msgMissingParameters  = "Missing parameters"
	msgInvalidParameters  = "Invalid parameters"
	msgWeatherKeyInvalid  = "Weather API key invalid"
	msgLocationNotFound   = "Location not found"
	msgWeatherRateLimited = "Weather provider rate limited"
	msgWeatherUnavailable = "Weather provider unavailable"
	msgWeatherTimedOut    = "Weather provider timed out"
	msgWeatherFetchFailed = "Failed to fetch weather data"
	msgTooManyRequests    = "Too many requests"
	msgMethodNotAllowed   = "Method not allowed"
	msgNotFound           = "Not found"
)

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int // 0 when rate limiter disabled
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	StartTime            time.Time
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weather          *service.WeatherService
	assistant        *service.AssistantService
	healthConfig     *HealthConfig
	logger           *zap.Logger
	maxLocationLen   int
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. maxLocationLen bounds the city parameter.
func NewHandler(
	weather *service.WeatherService,
	assistant *service.AssistantService,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	maxLocationLen int,
) *Handler {
	return &Handler{
		weather:        weather,
		assistant:      assistant,
		healthConfig:   healthConfig,
		logger:         logger,
		maxLocationLen: maxLocationLen,
	}
}

// GetWeather handles GET /api/weather?city= or ?lat=&lon=.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	q, err := validation.ParseLocationQuery(r.URL.Query(), h.maxLocationLen)
	if err != nil {
		if errors.Is(err, validation.ErrMissingParameters) {
			writeError(w, http.StatusBadRequest, msgMissingParameters)
			return
		}
		observability.LoggerFromContext(r.Context()).Debug("invalid weather query", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgInvalidParameters)
		return
	}

	env, err := h.weather.GetWeather(r.Context(), q)
	if err != nil {
		status, msg := weatherErrorResponse(err)
		if errors.Is(err, client.ErrLocationNotFound) {
			// the provider answered; an unknown place says nothing about its health
			traffic.Record(RouteWeather, traffic.Success)
		} else {
			traffic.Record(RouteWeather, traffic.Error)
		}
		writeError(w, status, msg)
		return
	}
	traffic.Record(RouteWeather, traffic.Success)
	writeJSON(w, http.StatusOK, env)
}

// weatherErrorResponse maps a weather service error to a status and error text.
func weatherErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, client.ErrInvalidAPIKey):
		return http.StatusInternalServerError, msgWeatherKeyInvalid
	case errors.Is(err, client.ErrLocationNotFound):
		return http.StatusNotFound, msgLocationNotFound
	case errors.Is(err, client.ErrRateLimited):
		return http.StatusServiceUnavailable, msgWeatherRateLimited
	case errors.Is(err, client.ErrUpstreamFailure):
		return http.StatusBadGateway, msgWeatherUnavailable
	case errors.Is(err, client.ErrTimeout):
		return http.StatusGatewayTimeout, msgWeatherTimedOut
	default:
		return http.StatusInternalServerError, msgWeatherFetchFailed
	}
}

// PostAssistant handles POST /api/assistant with {message, weatherData}.
// Provider configuration is checked before the body is read. Every failure is a 500
// carrying one of the assistant error labels; an unreadable body gets the generic one.
func (h *Handler) PostAssistant(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context())

	if !h.assistant.Configured() {
		logger.Error("assistant request rejected: provider not configured",
			zap.String("provider", h.assistant.ProviderName()))
		traffic.Record(RouteAssistant, traffic.Error)
		writeError(w, http.StatusInternalServerError, assistant.KindConfiguration.Label())
		return
	}

	var req models.AssistantRequest
	body := http.MaxBytesReader(w, r.Body, maxAssistantBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		logger.Warn("unreadable assistant body", zap.Error(err))
		traffic.Record(RouteAssistant, traffic.Error)
		writeError(w, http.StatusInternalServerError, assistant.KindUnavailable.Label())
		return
	}

	text, err := h.assistant.Ask(r.Context(), req)
	if err != nil {
		kind := assistant.KindUnavailable
		var f *assistant.Failure
		if errors.As(err, &f) {
			kind = f.Kind
		}
		traffic.Record(RouteAssistant, traffic.Error)
		writeError(w, http.StatusInternalServerError, kind.Label())
		return
	}
	traffic.Record(RouteAssistant, traffic.Success)
	writeJSON(w, http.StatusOK, models.AssistantResponse{Message: text})
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{
		"weatherApi": configuredLabel(h.weather.Configured()),
		"assistant":  configuredLabel(h.assistant.Configured()),
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   observability.ServiceName,
		"provider":  h.assistant.ProviderName(),
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.healthConfig != nil && !h.healthConfig.StartTime.IsZero() {
		resp["uptimeSeconds"] = int64(time.Since(h.healthConfig.StartTime).Seconds())
	}
	writeJSON(w, result.statusCode, resp)
}

func configuredLabel(ok bool) string {
	if ok {
		return "configured"
	}
	return "missing"
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	cfg := h.healthConfig

	// Overloaded: denials exceed the configured share of what the limiter admits in the window.
	if cfg.RateLimitRPS > 0 && cfg.OverloadWindow > 0 && cfg.OverloadThresholdPct > 0 {
		threshold := float64(cfg.RateLimitRPS) * cfg.OverloadWindow.Seconds() * float64(cfg.OverloadThresholdPct) / 100
		if float64(traffic.CountsFor("", cfg.OverloadWindow).Denied) > threshold {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}

	if cfg.DegradedWindow > 0 && cfg.DegradedErrorPct > 0 {
		counts := traffic.CountsFor("", cfg.DegradedWindow)
		if counts.Success+counts.Errors > 0 && counts.ErrorPct() >= float64(cfg.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}

	return healthResult{"healthy", http.StatusOK, ""}
}

// NotFound answers unknown paths with the {error} envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, msgNotFound)
}

// MethodNotAllowed answers known paths hit with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the {error: message} envelope shared by every endpoint.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}
