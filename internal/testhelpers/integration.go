//go:build integration
// +build integration

// Package testhelpers builds live-provider services for integration tests.
package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/weather-assistant-proxy/internal/assistant"
	"github.com/kjstillabower/weather-assistant-proxy/internal/client"
	"github.com/kjstillabower/weather-assistant-proxy/internal/service"
)

// LiveConfig holds provider credentials and endpoints for integration tests.
type LiveConfig struct {
	WeatherAPIKey  string
	WeatherBaseURL string
	GeminiAPIKey   string
	GeminiBaseURL  string
	GeminiModel    string
}

// LiveConfigFromEnv reads credentials from the environment. Missing keys are left
// empty; use RequireWeather / RequireGemini to skip.
func LiveConfigFromEnv() LiveConfig {
	cfg := LiveConfig{
		WeatherAPIKey:  firstEnv("WEATHER_API_KEY", "OPENWEATHER_API_KEY"),
		WeatherBaseURL: firstEnv("WEATHER_API_URL"),
		GeminiAPIKey:   firstEnv("GEMINI_API_KEY"),
		GeminiBaseURL:  firstEnv("GEMINI_API_URL"),
		GeminiModel:    firstEnv("GEMINI_MODEL"),
	}
	if cfg.WeatherBaseURL == "" {
		cfg.WeatherBaseURL = "https://api.openweathermap.org/data/2.5"
	}
	if cfg.GeminiBaseURL == "" {
		cfg.GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.5-flash"
	}
	return cfg
}

// RequireWeather skips t unless a weather API key is set.
func (c LiveConfig) RequireWeather(t *testing.T) {
	t.Helper()
	if c.WeatherAPIKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}
}

// RequireGemini skips t unless a Gemini API key is set.
func (c LiveConfig) RequireGemini(t *testing.T) {
	t.Helper()
	if c.GeminiAPIKey == "" {
		t.Skip("GEMINI_API_KEY not set, skipping integration test")
	}
}

// SetupWeatherService returns a WeatherService backed by the live OpenWeatherMap API.
func SetupWeatherService(t *testing.T, cfg LiveConfig) *service.WeatherService {
	t.Helper()
	c, err := client.NewOpenWeatherClient(cfg.WeatherAPIKey, cfg.WeatherBaseURL, 10*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return service.NewWeatherService(c)
}

// SetupAssistantService returns an AssistantService backed by the live Gemini API.
func SetupAssistantService(t *testing.T, cfg LiveConfig) *service.AssistantService {
	t.Helper()
	g, err := assistant.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel, 20*time.Second)
	if err != nil {
		t.Fatalf("NewGeminiClient() error = %v", err)
	}
	return service.NewAssistantService(g)
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
