package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weather-assistant-proxy/internal/traffic"
)

// Assistant provider names accepted by assistant.provider / ASSISTANT_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	WeatherAPIKey     string
	WeatherAPIBaseURL string
	WeatherAPITimeout time.Duration

	AssistantProvider string
	AssistantTimeout  time.Duration
	GeminiAPIKey      string
	GeminiBaseURL     string
	GeminiModel       string
	OllamaHost        string
	OllamaModel       string

	RequestTimeout time.Duration

	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	OverloadWindow       time.Duration
	OverloadThresholdPct int
	DegradedWindow       time.Duration
	DegradedErrorPct     int

	LocationMaxLength int

	TrackedLocations []string
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Assistant struct {
		Provider string `yaml:"provider"`
		Timeout  string `yaml:"timeout"`
		Gemini   struct {
			BaseURL string `yaml:"base_url"`
			Model   string `yaml:"model"`
		} `yaml:"gemini"`
		Ollama struct {
			Host  string `yaml:"host"`
			Model string `yaml:"model"`
		} `yaml:"ollama"`
	} `yaml:"assistant"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"inflight_timeout"`
		InFlightCheckInterval string `yaml:"inflight_check_interval"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"lifecycle"`

	Validation struct {
		MaxLocationLength int `yaml:"max_location_length"`
	} `yaml:"validation"`

	Metrics struct {
		TrackedLocations []string `yaml:"tracked_locations"`
	} `yaml:"metrics"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
	GeminiAPIKey  string `yaml:"gemini_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// Provider keys come from env (WEATHER_API_KEY or OPENWEATHER_API_KEY, GEMINI_API_KEY) or the
// secrets file. Missing keys are not an error: the handlers report them per request.
// Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := loadSecrets(filepath.Join(cwd, "config", "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "8080")

	cfg.WeatherAPIKey = firstNonEmpty(os.Getenv("WEATHER_API_KEY"), os.Getenv("OPENWEATHER_API_KEY"), sec.WeatherAPIKey)
	cfg.WeatherAPIBaseURL = strings.TrimRight(firstNonEmpty(fc.WeatherAPI.BaseURL, "https://api.openweathermap.org/data/2.5"), "/")
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 10*time.Second)

	cfg.AssistantProvider = strings.ToLower(strings.TrimSpace(firstNonEmpty(os.Getenv("ASSISTANT_PROVIDER"), fc.Assistant.Provider, ProviderGemini)))
	cfg.AssistantTimeout = parseDurationOrZero(fc.Assistant.Timeout, 10*time.Second)
	cfg.GeminiAPIKey = firstNonEmpty(os.Getenv("GEMINI_API_KEY"), sec.GeminiAPIKey)
	cfg.GeminiBaseURL = strings.TrimRight(firstNonEmpty(fc.Assistant.Gemini.BaseURL, "https://generativelanguage.googleapis.com/v1beta"), "/")
	cfg.GeminiModel = firstNonEmpty(fc.Assistant.Gemini.Model, "gemini-2.5-flash")
	cfg.OllamaHost = firstNonEmpty(os.Getenv("OLLAMA_HOST"), fc.Assistant.Ollama.Host)
	cfg.OllamaModel = firstNonEmpty(fc.Assistant.Ollama.Model, "llama3")

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 25*time.Second)

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 30*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.OverloadWindow = parseDuration(fc.Lifecycle.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Lifecycle.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Lifecycle.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 25
	}

	cfg.LocationMaxLength = fc.Validation.MaxLocationLength
	if cfg.LocationMaxLength <= 0 {
		cfg.LocationMaxLength = 100
	}

	cfg.TrackedLocations = fc.Metrics.TrackedLocations

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSecrets reads the optional secrets file. A missing file yields empty secrets.
func loadSecrets(path string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	return sec, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is so validate can reject them.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
// Provider timeouts must be positive. The weather route makes two sequential
// upstream calls, so RequestTimeout is raised to cover both plus a second of slack,
// and to cover the assistant call likewise.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.AssistantTimeout <= 0 {
		return fmt.Errorf("assistant.timeout must be positive")
	}
	if floor := 2*cfg.WeatherAPITimeout + time.Second; cfg.RequestTimeout < floor {
		cfg.RequestTimeout = floor
	}
	if floor := cfg.AssistantTimeout + time.Second; cfg.RequestTimeout < floor {
		cfg.RequestTimeout = floor
	}
	if cfg.OverloadWindow <= 0 || cfg.OverloadWindow > traffic.Retention {
		return fmt.Errorf("lifecycle.overload_window must be in (0, %v], got %v", traffic.Retention, cfg.OverloadWindow)
	}
	if cfg.DegradedWindow <= 0 || cfg.DegradedWindow > traffic.Retention {
		return fmt.Errorf("lifecycle.degraded_window must be in (0, %v], got %v", traffic.Retention, cfg.DegradedWindow)
	}
	switch cfg.AssistantProvider {
	case ProviderGemini, ProviderOllama:
		// valid
	default:
		return fmt.Errorf("assistant.provider must be gemini or ollama, got %q", cfg.AssistantProvider)
	}
	return nil
}
