package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-assistant-proxy/internal/observability"
	"github.com/kjstillabower/weather-assistant-proxy/internal/traffic"
)

// CorrelationIDMiddleware reuses the caller's X-Correlation-ID or mints one, echoes it,
// and attaches it plus a request-scoped logger to the context.
func CorrelationIDMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			corrID := r.Header.Get("X-Correlation-ID")
			if corrID == "" {
				corrID = uuid.New().String()
			}
			w.Header().Set("X-Correlation-ID", corrID)

			reqLogger := logger.With(zap.String("correlation_id", corrID))
			ctx := context.WithValue(r.Context(), observability.CorrelationIDKey, corrID)
			ctx = context.WithValue(ctx, observability.LoggerKey, reqLogger)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MetricsMiddleware records request count, duration and in-flight gauge, and
// counts the request in the shutdown drain tracker.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		globalInFlightTracker.Increment()
		defer globalInFlightTracker.Decrement()
		observability.HTTPRequestsInFlight.Inc()
		defer observability.HTTPRequestsInFlight.Dec()

		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := getRoute(r)
		observability.HTTPRequestsTotal.WithLabelValues(r.Method, route, statusCodeString(recorder.statusCode)).Inc()
		observability.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// getRoute maps a path to a bounded route label; aliases collapse onto their canonical route.
func getRoute(r *http.Request) string {
	switch r.URL.Path {
	case "/health":
		return "/health"
	case "/metrics":
		return "/metrics"
	case "/api/weather", "/weather":
		return "/api/weather"
	case "/api/assistant", "/api/gemini", "/assistant":
		return "/api/assistant"
	default:
		return "other"
	}
}

// trafficRoute names the proxy route for the traffic tracker.
func trafficRoute(r *http.Request) string {
	if getRoute(r) == "/api/weather" {
		return RouteWeather
	}
	return RouteAssistant
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func statusCodeString(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// TimeoutMiddleware sets a deadline on the request context. Outbound provider calls
// inherit it on top of their own per-call timeouts.
func TimeoutMiddleware(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware returns 429 when the token bucket is exhausted. Disabled when limiter is nil.
func RateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				observability.LoggerFromContext(r.Context()).Debug("rate limit denied", zap.String("route", getRoute(r)))
				traffic.Record(trafficRoute(r), traffic.Denied)
				observability.RateLimitDeniedTotal.Inc()
				writeError(w, http.StatusTooManyRequests, msgTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
