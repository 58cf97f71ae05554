//go:build integration
// +build integration

package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kjstillabower/weather-assistant-proxy/internal/assistant"
	"github.com/kjstillabower/weather-assistant-proxy/internal/client"
	"github.com/kjstillabower/weather-assistant-proxy/internal/models"
	"github.com/kjstillabower/weather-assistant-proxy/internal/testhelpers"
)

func TestWeatherService_Live_City(t *testing.T) {
	cfg := testhelpers.LiveConfigFromEnv()
	cfg.RequireWeather(t)
	svc := testhelpers.SetupWeatherService(t, cfg)

	env, err := svc.GetWeather(context.Background(), models.LocationQuery{City: "London"})
	if err != nil {
		t.Fatalf("GetWeather() error = %v", err)
	}
	var current struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(env.Current, &current); err != nil {
		t.Fatalf("current is not JSON: %v", err)
	}
	if !strings.EqualFold(current.Name, "London") {
		t.Errorf("current.name = %q, want London", current.Name)
	}
	var forecast struct {
		List []json.RawMessage `json:"list"`
	}
	if err := json.Unmarshal(env.Forecast, &forecast); err != nil || len(forecast.List) == 0 {
		t.Errorf("forecast list empty or invalid: %v", err)
	}
}

func TestWeatherService_Live_UnknownCity(t *testing.T) {
	cfg := testhelpers.LiveConfigFromEnv()
	cfg.RequireWeather(t)
	svc := testhelpers.SetupWeatherService(t, cfg)

	_, err := svc.GetWeather(context.Background(), models.LocationQuery{City: "Qwzxnotaplace"})
	if !errors.Is(err, client.ErrLocationNotFound) {
		t.Errorf("GetWeather() error = %v, want ErrLocationNotFound", err)
	}
}

func TestWeatherService_Live_BadKey(t *testing.T) {
	cfg := testhelpers.LiveConfigFromEnv()
	cfg.RequireWeather(t)
	cfg.WeatherAPIKey = "00000000000000000000000000000000"
	svc := testhelpers.SetupWeatherService(t, cfg)

	_, err := svc.GetWeather(context.Background(), models.LocationQuery{City: "London"})
	if !errors.Is(err, client.ErrInvalidAPIKey) {
		t.Errorf("GetWeather() error = %v, want ErrInvalidAPIKey", err)
	}
}

func TestAssistantService_Live_Ask(t *testing.T) {
	cfg := testhelpers.LiveConfigFromEnv()
	cfg.RequireGemini(t)
	svc := testhelpers.SetupAssistantService(t, cfg)

	text, err := svc.Ask(context.Background(), models.AssistantRequest{Message: "Is it a good day for a walk?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if strings.TrimSpace(text) == "" {
		t.Error("Ask() returned empty text")
	}
}

func TestAssistantService_Live_BadKey(t *testing.T) {
	cfg := testhelpers.LiveConfigFromEnv()
	cfg.RequireGemini(t)
	cfg.GeminiAPIKey = "not-a-real-key"
	svc := testhelpers.SetupAssistantService(t, cfg)

	_, err := svc.Ask(context.Background(), models.AssistantRequest{Message: "hello"})
	var f *assistant.Failure
	if !errors.As(err, &f) || f.Kind != assistant.KindInvalidCredential {
		t.Errorf("Ask() error = %v, want invalid_credential failure", err)
	}
}
