package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-assistant-proxy/internal/observability"
)

// NewRouter wires the proxy routes, their aliases, health and metrics.
// The proxy routes share limiter and carry requestTimeout; health and metrics do neither.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.NotFoundHandler = http.HandlerFunc(NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(MethodNotAllowed)

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	limited := RateLimitMiddleware(limiter)
	timed := TimeoutMiddleware(requestTimeout)
	proxy := func(fn http.HandlerFunc) http.Handler { return limited(timed(fn)) }

	for _, path := range []string{"/api/weather", "/weather"} {
		router.Handle(path, proxy(h.GetWeather)).Methods(http.MethodGet)
	}
	for _, path := range []string{"/api/assistant", "/api/gemini", "/assistant"} {
		router.Handle(path, proxy(h.PostAssistant)).Methods(http.MethodPost)
	}
	return router
}
