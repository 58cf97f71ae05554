package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-assistant-proxy/internal/assistant"
	"github.com/kjstillabower/weather-assistant-proxy/internal/models"
	"github.com/kjstillabower/weather-assistant-proxy/internal/observability"
)

// AssistantService composes the prompt and makes the single provider call for the
// Assistant Proxy Endpoint.
type AssistantService struct {
	provider assistant.Provider
}

// NewAssistantService creates a new AssistantService around a startup-built provider.
func NewAssistantService(provider assistant.Provider) *AssistantService {
	return &AssistantService{provider: provider}
}

// Configured reports whether the provider can be called at all.
func (s *AssistantService) Configured() bool {
	return s.provider.Configured()
}

// ProviderName names the backing provider for logs and health.
func (s *AssistantService) ProviderName() string {
	return s.provider.Name()
}

// Ask answers req. Every failure is an *assistant.Failure carrying its ErrorKind;
// an unconfigured provider fails without an outbound call.
func (s *AssistantService) Ask(ctx context.Context, req models.AssistantRequest) (string, error) {
	logger := observability.LoggerFromContext(ctx)
	name := s.provider.Name()

	if !s.provider.Configured() {
		logger.Error("assistant provider not configured", zap.String("provider", name))
		return "", &assistant.Failure{Kind: assistant.KindConfiguration, Err: assistant.ErrNotConfigured}
	}

	prompt := assistant.BuildPrompt(req)
	start := time.Now()
	text, err := s.provider.Generate(ctx, prompt)
	elapsed := time.Since(start)
	if err != nil {
		kind := assistant.ClassifyError(err)
		outcome := string(kind)
		if errors.Is(err, assistant.ErrTimeout) {
			outcome = "timeout"
		}
		observability.RecordAssistantCall(name, outcome, elapsed)
		logger.Warn("assistant call failed",
			zap.String("provider", name),
			zap.String("kind", string(kind)),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return "", &assistant.Failure{Kind: kind, Err: err}
	}

	observability.RecordAssistantCall(name, "success", elapsed)
	logger.Debug("assistant answered",
		zap.String("provider", name),
		zap.Bool("with_weather", len(req.WeatherData) > 0),
		zap.Int("prompt_bytes", len(prompt)),
		zap.Duration("duration", elapsed))
	return text, nil
}
