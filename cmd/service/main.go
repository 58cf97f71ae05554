package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-assistant-proxy/internal/assistant"
	"github.com/kjstillabower/weather-assistant-proxy/internal/client"
	"github.com/kjstillabower/weather-assistant-proxy/internal/config"
	httphandler "github.com/kjstillabower/weather-assistant-proxy/internal/http"
	"github.com/kjstillabower/weather-assistant-proxy/internal/lifecycle"
	"github.com/kjstillabower/weather-assistant-proxy/internal/observability"
	"github.com/kjstillabower/weather-assistant-proxy/internal/service"
)

func main() {
	// .env is optional; real environment variables win over it.
	envErr := godotenv.Load()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn("load .env", zap.Error(envErr))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	weatherClient, err := client.NewOpenWeatherClient(cfg.WeatherAPIKey, cfg.WeatherAPIBaseURL, cfg.WeatherAPITimeout)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}
	if !weatherClient.Configured() {
		logger.Warn("weather API key not set; weather requests will fail upstream")
	}

	provider, err := newAssistantProvider(cfg)
	if err != nil {
		logger.Fatal("assistant provider", zap.Error(err))
	}
	if !provider.Configured() {
		logger.Warn("assistant provider not configured; assistant requests will return 500",
			zap.String("provider", provider.Name()))
	}

	weatherService := service.NewWeatherService(weatherClient)
	assistantService := service.NewAssistantService(provider)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
		StartTime:            time.Now(),
	}
	handler := httphandler.NewHandler(weatherService, assistantService, healthConfig, logger, cfg.LocationMaxLength)

	observability.RegisterRateLimitGauges(cfg.OverloadWindow)
	if len(cfg.TrackedLocations) > 0 {
		observability.SetTrackedLocations(cfg.TrackedLocations)
	}

	router := httphandler.NewRouter(handler, logger, limiter, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("assistant_provider", provider.Name()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	cause := lifecycle.AwaitShutdown(context.Background())
	logger.Info("graceful shutdown triggered", zap.String("cause", cause))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// newAssistantProvider builds the provider named by cfg.AssistantProvider.
func newAssistantProvider(cfg *config.Config) (assistant.Provider, error) {
	switch cfg.AssistantProvider {
	case config.ProviderOllama:
		return assistant.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel, cfg.AssistantTimeout)
	case config.ProviderGemini:
		return assistant.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel, cfg.AssistantTimeout)
	default:
		return nil, fmt.Errorf("unknown assistant provider %q", cfg.AssistantProvider)
	}
}
