package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/faktorino/faktorino/internal/logger"
)

type Config struct {
	// HTTP API
	ListenAddr string
	JWTSecret  string

	// Database: Postgres DSN, or empty for a local SQLite file
	DatabaseURL string
	SQLitePath  string

	// Credits granted to a user who has no ledger yet
	FreeCredits int

	// Optional: OpenAI (discrepancy advisor)
	OpenAIAPIKey string

	// Optional: Google Document AI (payout PDF extraction)
	GoogleCloudProject  string
	GoogleCloudLocation string
	PayoutProcessorID   string

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	freeCredits, err := strconv.Atoi(getEnv("FREE_CREDITS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid FREE_CREDITS: %w", err)
	}

	config := &Config{
		ListenAddr:          getEnv("LISTEN_ADDR", ":8080"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		SQLitePath:          getEnv("SQLITE_PATH", "faktorino.db"),
		FreeCredits:         freeCredits,
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		GoogleCloudProject:  getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation: getEnv("GOOGLE_CLOUD_LOCATION", "eu"),
		PayoutProcessorID:   getEnv("PAYOUT_PROCESSOR_ID", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:       getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:           getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.FreeCredits < 0 {
		return fmt.Errorf("FREE_CREDITS must not be negative")
	}
	return nil
}

// ValidateServer checks the settings the HTTP server additionally needs.
// The CLI commands work without them.
func (c *Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required to run the server")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
