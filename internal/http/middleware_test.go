package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-assistant-proxy/internal/observability"
	"github.com/kjstillabower/weather-assistant-proxy/internal/traffic"
)

func newTestRouter(wc *mockWeatherClient, p *mockProvider, limiter *rate.Limiter, timeout time.Duration) *mux.Router {
	handler := newTestHandler(wc, p, nil, nil)
	return NewRouter(handler, zap.NewNop(), limiter, timeout)
}

func TestCorrelationIDMiddleware_GeneratesAndAttaches(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var ctxID string
	h := CorrelationIDMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = observability.CorrelationID(r.Context())
		observability.LoggerFromContext(r.Context()).Info("inside")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	header := w.Header().Get("X-Correlation-ID")
	if header == "" {
		t.Fatal("X-Correlation-ID header missing")
	}
	if ctxID != header {
		t.Errorf("context correlation ID = %q, header = %q", ctxID, header)
	}
	entries := logs.FilterMessage("inside").All()
	if len(entries) != 1 || entries[0].ContextMap()["correlation_id"] != header {
		t.Errorf("request logger missing correlation_id field: %+v", entries)
	}
}

func TestCorrelationIDMiddleware_ReusesClientID(t *testing.T) {
	router := newTestRouter(&mockWeatherClient{env: sampleEnvelope}, &mockProvider{}, nil, time.Second)

	req := httptest.NewRequest("GET", "/api/weather?city=Paris", nil)
	req.Header.Set("X-Correlation-ID", "client-provided-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Correlation-ID"); got != "client-provided-id" {
		t.Errorf("X-Correlation-ID = %q, want client-provided-id", got)
	}
}

func TestRouter_Aliases(t *testing.T) {
	tests := []struct {
		method string
		path   string
		body   string
	}{
		{"GET", "/api/weather?city=Paris", ""},
		{"GET", "/weather?city=Paris", ""},
		{"POST", "/api/assistant", `{"message":"hi"}`},
		{"POST", "/api/gemini", `{"message":"hi"}`},
		{"POST", "/assistant", `{"message":"hi"}`},
		{"GET", "/health", ""},
		{"GET", "/metrics", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			router := newTestRouter(&mockWeatherClient{env: sampleEnvelope}, &mockProvider{text: "hello", configured: true}, nil, time.Second)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", w.Code)
			}
		})
	}
}

func TestRouter_UnknownPathAndWrongMethod(t *testing.T) {
	router := newTestRouter(&mockWeatherClient{}, &mockProvider{}, nil, time.Second)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/nowhere", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", w.Code)
	}
	if got := decodeError(t, w); got != msgNotFound {
		t.Errorf("error = %q, want %q", got, msgNotFound)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/assistant", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method status = %d, want 405", w.Code)
	}
	if got := decodeError(t, w); got != msgMethodNotAllowed {
		t.Errorf("error = %q, want %q", got, msgMethodNotAllowed)
	}
}

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := TimeoutMiddleware(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if !ok {
		t.Fatal("request context has no deadline")
	}
	if until := time.Until(deadline); until <= 0 || until > time.Minute {
		t.Errorf("deadline in %v, want within a minute", until)
	}
}

func TestTimeoutMiddleware_WeatherRouteTimesOut(t *testing.T) {
	wc := &mockWeatherClient{block: true}
	router := newTestRouter(wc, &mockProvider{}, nil, 50*time.Millisecond)

	start := time.Now()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/weather?city=Oslo", nil))

	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", w.Code)
	}
	if got := decodeError(t, w); got != msgWeatherTimedOut {
		t.Errorf("error = %q, want %q", got, msgWeatherTimedOut)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("request took %v, want it cut off near the deadline", elapsed)
	}
}

func TestRateLimitMiddleware_Returns429WhenExceeded(t *testing.T) {
	wc := &mockWeatherClient{env: sampleEnvelope}
	router := newTestRouter(wc, &mockProvider{}, rate.NewLimiter(1, 2), time.Second)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/weather?city=Rome", nil))

		if i < 2 {
			if w.Code != http.StatusOK {
				t.Errorf("request %d: status = %d, want 200", i, w.Code)
			}
			continue
		}
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("request %d: status = %d, want 429", i, w.Code)
		}
		if got := decodeError(t, w); got != msgTooManyRequests {
			t.Errorf("error = %q, want %q", got, msgTooManyRequests)
		}
	}
	if wc.callCount() != 2 {
		t.Errorf("upstream calls = %d, want 2 (denied request must not go upstream)", wc.callCount())
	}
	if c := traffic.CountsFor(RouteWeather, time.Minute); c.Denied != 1 {
		t.Errorf("traffic denied = %d, want 1", c.Denied)
	}
}

func TestRateLimitMiddleware_SharedAcrossProxyRoutes(t *testing.T) {
	router := newTestRouter(&mockWeatherClient{env: sampleEnvelope}, &mockProvider{text: "ok", configured: true}, rate.NewLimiter(1, 1), time.Second)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/weather?city=Rome", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/assistant", strings.NewReader(`{"message":"hi"}`)))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("assistant status = %d, want 429", w.Code)
	}
	if c := traffic.CountsFor(RouteAssistant, time.Minute); c.Denied != 1 {
		t.Errorf("assistant traffic denied = %d, want 1", c.Denied)
	}

	// health is never rate limited
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code == http.StatusTooManyRequests {
		t.Error("health was rate limited")
	}
}

func TestRateLimitMiddleware_NilLimiterPassesThrough(t *testing.T) {
	var reached bool
	h := RateLimitMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/weather", nil))
	if !reached {
		t.Error("nil limiter should pass through")
	}
}

func TestGetRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/api/weather", "/api/weather"},
		{"/weather", "/api/weather"},
		{"/api/assistant", "/api/assistant"},
		{"/api/gemini", "/api/assistant"},
		{"/assistant", "/api/assistant"},
		{"/wp-admin", "other"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		if got := getRoute(req); got != tt.want {
			t.Errorf("getRoute(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestStatusRecorder_CapturesCode(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	rec.WriteHeader(http.StatusBadGateway)
	if rec.statusCode != http.StatusBadGateway {
		t.Errorf("statusCode = %d, want 502", rec.statusCode)
	}
	if got := statusCodeString(rec.statusCode); got != "5xx" {
		t.Errorf("statusCodeString = %q, want 5xx", got)
	}
}
