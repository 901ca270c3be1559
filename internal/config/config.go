// Package config resolves service settings from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Default ports per service.
const (
	PortComplaint     = 5001
	PortCaption       = 5002
	PortVideoAnalysis = 5003
	PortFakeDetection = 5004
)

// Config holds everything a service needs at startup.
type Config struct {
	Service string
	Port    int

	// Provider selects the model backend: gemini, openai or http.
	Provider string

	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	ModelServerURL   string
	LabelMappingPath string

	// SSMAPIKeyParam is read in Lambda when the provider key is not set.
	SSMAPIKeyParam string

	MediaTempDir   string
	MaxUploadBytes int64
	MediaBucket    string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Model defaults.
const (
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultSSMAPIKeyParam = "/civic-sense/prod/model-api-key"
	DefaultMaxUploadMB    = 100
)

// LoadDotEnv copies variables from ./.env into the environment without
// overriding ones already set. A missing file is not an error. Binaries call
// it before logging.Init so LOG_* settings in .env take effect.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load reads .env (if present) and the environment. PORT falls back to
// defaultPort.
func Load(service string, defaultPort int) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	port, err := envInt("PORT", defaultPort)
	if err != nil {
		return nil, err
	}
	maxMB, err := envInt("MAX_UPLOAD_MB", DefaultMaxUploadMB)
	if err != nil {
		return nil, err
	}
	rps, err := envFloat("RATE_LIMIT_RPS", 0)
	if err != nil {
		return nil, err
	}
	burst, err := envInt("RATE_LIMIT_BURST", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Service:          service,
		Port:             port,
		Provider:         strings.ToLower(EnvOrDefault("MODEL_PROVIDER", "gemini")),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      EnvOrDefault("GEMINI_MODEL", DefaultGeminiModel),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      EnvOrDefault("OPENAI_MODEL", DefaultOpenAIModel),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		ModelServerURL:   os.Getenv("MODEL_SERVER_URL"),
		LabelMappingPath: os.Getenv("LABEL_MAPPING_PATH"),
		SSMAPIKeyParam:   EnvOrDefault("SSM_API_KEY_PARAM", DefaultSSMAPIKeyParam),
		MediaTempDir:     os.Getenv("MEDIA_TEMP_DIR"),
		MaxUploadBytes:   int64(maxMB) << 20,
		MediaBucket:      os.Getenv("MEDIA_BUCKET_NAME"),
		RateLimitRPS:     rps,
		RateLimitBurst:   burst,
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = max(1, int(cfg.RateLimitRPS))
	}
	return cfg, cfg.Validate()
}

// Validate checks settings that would otherwise fail on the first request.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Provider {
	case "gemini", "openai":
	case "http":
		if c.ModelServerURL == "" {
			return errors.New("MODEL_SERVER_URL is required when MODEL_PROVIDER=http")
		}
	default:
		return fmt.Errorf("unknown MODEL_PROVIDER %q", c.Provider)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid MAX_UPLOAD_MB")
	}
	return nil
}

// APIKey returns the key for the configured hosted provider.
func (c *Config) APIKey() string {
	if c.Provider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// SetAPIKey stores a key fetched at startup for the configured provider.
func (c *Config) SetAPIKey(key string) {
	if c.Provider == "openai" {
		c.OpenAIAPIKey = key
		return
	}
	c.GeminiAPIKey = key
}

// EnvOrDefault returns the named variable, or defaultVal when it is unset or empty.
func EnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}
