// Package config reads all runtime configuration from the environment.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the dashboard reads. Only Load touches
// os.Getenv.
type Config struct {
	Port string

	// Analysis defaults, overridable per request.
	RiskFreeRate         float64
	CorrelationThreshold float64
	DefaultTickers       []string
	DefaultRange         string

	SQLitePath  string
	HTTPTimeout time.Duration

	// Optional integrations; empty token disables the feature.
	TelegramToken string
	WebhookURL    string
	OpenAIKey     string

	LogLevel  string
	LogFormat string
}

// Load reads the environment (after trying .env files) and validates it.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		RiskFreeRate:         getEnvAsFloat("RISK_FREE_RATE", 0.02),
		CorrelationThreshold: getEnvAsFloat("CORRELATION_THRESHOLD", 0.7),
		DefaultTickers:       splitTickers(getEnv("DEFAULT_TICKERS", "JPM,AAPL,MSFT,SPY")),
		DefaultRange:         getEnv("DEFAULT_RANGE", "1y"),
		SQLitePath:           getEnv("SQLITE_PATH", "data/usage.db"),
		HTTPTimeout:          getEnvAsDuration("HTTP_TIMEOUT", "15s"),
		TelegramToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:           getEnv("WEBHOOK_URL", ""),
		OpenAIKey:            getEnv("OPENAI_API_KEY", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// TelegramEnabled reports whether the webhook bot should start.
func (c *Config) TelegramEnabled() bool { return c.TelegramToken != "" }

// InsightsEnabled reports whether AI commentary is available.
func (c *Config) InsightsEnabled() bool { return c.OpenAIKey != "" }

func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if math.IsNaN(c.RiskFreeRate) || math.IsInf(c.RiskFreeRate, 0) {
		return fmt.Errorf("RISK_FREE_RATE must be a finite number")
	}
	if c.CorrelationThreshold < 0 || c.CorrelationThreshold > 1 {
		return fmt.Errorf("CORRELATION_THRESHOLD must be between 0 and 1")
	}
	if len(c.DefaultTickers) == 0 {
		return fmt.Errorf("DEFAULT_TICKERS must list at least one symbol")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.TelegramToken != "" && c.WebhookURL == "" {
		return fmt.Errorf("WEBHOOK_URL is required when TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}

func splitTickers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile tries .env next to the working directory, then next to the
// executable.
func loadEnvFile() {
	paths := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
