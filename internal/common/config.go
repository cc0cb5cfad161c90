package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all client configuration
type Config struct {
	API  APIConfig
	Sync SyncConfig
	List ListConfig
}

// APIConfig holds transport-related configuration
type APIConfig struct {
	BaseURL     string
	HTTPTimeout time.Duration
}

// SyncConfig holds status-sync configuration
type SyncConfig struct {
	PollInterval time.Duration
}

// ListConfig holds job-list configuration
type ListConfig struct {
	PageSize int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:     getEnv("MEDEXTRACT_API_URL", "http://localhost:8000/api/v1"),
			HTTPTimeout: getEnvAsDuration("MEDEXTRACT_HTTP_TIMEOUT", 30*time.Second),
		},
		Sync: SyncConfig{
			PollInterval: getEnvAsDuration("MEDEXTRACT_POLL_INTERVAL", 3*time.Second),
		},
		List: ListConfig{
			PageSize: getEnvAsInt("MEDEXTRACT_PAGE_SIZE", 20),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "MEDEXTRACT_API_URL is required", ErrInvalidInput)
	}
	if c.Sync.PollInterval <= 0 {
		return NewAppError("CONFIG_ERROR", "MEDEXTRACT_POLL_INTERVAL must be positive", ErrInvalidInput)
	}
	if c.List.PageSize <= 0 {
		return NewAppError("CONFIG_ERROR", "MEDEXTRACT_PAGE_SIZE must be positive", ErrInvalidInput)
	}
	return nil
}
