package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	DefaultProviderURL   = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel         = "llama-3.3-70b-versatile"
	DefaultFallbackModel = "llama-3.1-8b-instant"
)

type Config struct {
	ProviderAPIKey        string
	ProviderAPIURL        string
	ProviderModel         string
	ProviderFallbackModel string
	DatabaseURL           string
	HTTPPort              string
	LogLevel              string
	JWTSecret             string
}

// Load reads configuration from the environment, with an optional .env file.
// The provider API key is deliberately NOT required here: its absence must
// surface as a request-time error on the chat endpoints, before any network
// call is attempted.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional, environment variables win

	cfg := &Config{
		ProviderAPIKey:        getEnv("PROVIDER_API_KEY", os.Getenv("MENTOR_API_KEY")),
		ProviderAPIURL:        getEnv("PROVIDER_API_URL", DefaultProviderURL),
		ProviderModel:         getEnv("PROVIDER_MODEL", DefaultModel),
		ProviderFallbackModel: getEnv("PROVIDER_FALLBACK_MODEL", DefaultFallbackModel),
		DatabaseURL:           getEnv("DATABASE_URL", "headcoach.db"),
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:             getEnv("JWT_SECRET", ""),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}
