package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/weather-assistant-proxy/internal/models"
	"github.com/kjstillabower/weather-assistant-proxy/internal/observability"
)

// WeatherClient fetches current conditions and forecast for one location.
type WeatherClient interface {
	GetWeather(ctx context.Context, q models.LocationQuery) (models.WeatherEnvelope, error)
	Configured() bool
}

var (
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
	ErrTimeout          = errors.New("upstream timeout")
	ErrInvalidResponse  = errors.New("invalid upstream response")
)

// Upstream endpoints under the OpenWeatherMap 2.5 base URL.
const (
	EndpointCurrent  = "weather"
	EndpointForecast = "forecast"
)

// maxBodyBytes caps a provider body. The 5-day forecast is ~20 KiB.
const maxBodyBytes = 4 << 20

type OpenWeatherClient struct {
	apiKey  string
	baseURL *url.URL
	timeout time.Duration
	client  *http.Client
}

// NewOpenWeatherClient builds a client for baseURL (e.g. https://api.openweathermap.org/data/2.5).
// An empty apiKey is accepted: the provider rejects the call and the proxy reports
// ErrInvalidAPIKey. timeout bounds each of the two upstream calls separately.
func NewOpenWeatherClient(apiKey, baseURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q: scheme and host required", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenWeatherClient{
		apiKey:  apiKey,
		baseURL: u,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Configured reports whether an API key is set. Used by health only; requests are
// attempted regardless.
func (c *OpenWeatherClient) Configured() bool {
	return c.apiKey != ""
}

// GetWeather issues the current-conditions call then the forecast call with the same
// selector. Either failure aborts the pair; there is no retry.
func (c *OpenWeatherClient) GetWeather(ctx context.Context, q models.LocationQuery) (models.WeatherEnvelope, error) {
	current, err := c.fetch(ctx, EndpointCurrent, q)
	if err != nil {
		return models.WeatherEnvelope{}, fmt.Errorf("current weather: %w", err)
	}
	forecast, err := c.fetch(ctx, EndpointForecast, q)
	if err != nil {
		return models.WeatherEnvelope{}, fmt.Errorf("forecast: %w", err)
	}
	return models.WeatherEnvelope{Current: current, Forecast: forecast}, nil
}

func (c *OpenWeatherClient) fetch(ctx context.Context, endpoint string, q models.LocationQuery) (json.RawMessage, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, endpoint, q)
	if err != nil {
		observability.RecordWeatherAPICall(endpoint, "error", time.Since(start))
		return nil, fmt.Errorf("build request: %w", err)
	}

	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			observability.RecordWeatherAPICall(endpoint, "timeout", time.Since(start))
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		observability.RecordWeatherAPICall(endpoint, "error", time.Since(start))
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	observability.RecordWeatherAPICall(endpoint, statusLabel(resp.StatusCode), time.Since(start))

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}
	if readErr != nil {
		if isTimeout(readErr) {
			return nil, fmt.Errorf("%w: read body: %w", ErrTimeout, readErr)
		}
		return nil, fmt.Errorf("read response body: %w", readErr)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s body is not JSON", ErrInvalidResponse, endpoint)
	}
	return json.RawMessage(body), nil
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, endpoint string, q models.LocationQuery) (*http.Request, error) {
	u := c.baseURL.JoinPath(endpoint)

	params := url.Values{}
	if q.City != "" {
		params.Set("q", q.City)
	} else if q.HasCoordinates() {
		params.Set("lat", strconv.FormatFloat(*q.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(*q.Lon, 'f', -1, 64))
	} else {
		return nil, errors.New("empty location query")
	}
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

// handleErrorResponse maps a non-2xx provider status to a sentinel error.
func (c *OpenWeatherClient) handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: HTTP 401", ErrInvalidAPIKey)
	case http.StatusNotFound:
		return fmt.Errorf("%w", ErrLocationNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
