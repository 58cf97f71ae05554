package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-assistant-proxy/internal/client"
	"github.com/kjstillabower/weather-assistant-proxy/internal/models"
	"github.com/kjstillabower/weather-assistant-proxy/internal/observability"
)

// WeatherService fronts the weather provider client for the Weather Proxy Endpoint.
// It holds no request data; every call goes upstream.
type WeatherService struct {
	client client.WeatherClient
}

// NewWeatherService creates a new WeatherService.
func NewWeatherService(client client.WeatherClient) *WeatherService {
	return &WeatherService{client: client}
}

// Configured reports whether the weather provider has a key. Health only.
func (s *WeatherService) Configured() bool {
	return s.client.Configured()
}

// GetWeather fetches current conditions and forecast for q. Errors are counted by
// client.CategorizeError and returned wrapped.
func (s *WeatherService) GetWeather(ctx context.Context, q models.LocationQuery) (models.WeatherEnvelope, error) {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx)
	observability.RecordWeatherQuery(q.City)

	env, err := s.client.GetWeather(ctx, q)
	if err != nil {
		category := client.CategorizeError(err)
		observability.WeatherAPIErrorsTotal.WithLabelValues(string(category)).Inc()
		logger.Warn("weather fetch failed",
			zap.String("location", q.String()),
			zap.String("category", string(category)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return models.WeatherEnvelope{}, fmt.Errorf("fetch weather for %s: %w", q.String(), err)
	}

	logger.Debug("weather served", zap.String("location", q.String()), zap.Duration("duration", time.Since(start)))
	return env, nil
}
