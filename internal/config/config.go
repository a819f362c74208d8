package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken         string
	GitHubAPIURL        string // empty means api.github.com
	GitHubHTTPTimeout   time.Duration
	GitHubStatsAttempts int
	GitHubStatsDelay    time.Duration

	// Storage
	StorageType string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresURL string

	// API Server
	APIPort   string
	APIHost   string
	JWTSecret string

	// CLI
	APIEndpoint string

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	timeout, err := getEnvDuration("GITHUB_HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	statsDelay, err := getEnvDuration("GITHUB_STATS_DELAY", 2*time.Second)
	if err != nil {
		return nil, err
	}
	statsAttempts, err := getEnvInt("GITHUB_STATS_ATTEMPTS", 6)
	if err != nil {
		return nil, err
	}

	return &Config{
		GitHubToken:         getEnv("GITHUB_TOKEN", ""),
		GitHubAPIURL:        getEnv("GITHUB_API_URL", ""),
		GitHubHTTPTimeout:   timeout,
		GitHubStatsAttempts: statsAttempts,
		GitHubStatsDelay:    statsDelay,
		StorageType:         getEnv("STORAGE_TYPE", "sqlite"),
		SQLitePath:          getEnv("SQLITE_PATH", "./skills.db"),
		PostgresURL:         getEnv("POSTGRES_URL", ""),
		APIPort:             getEnv("API_PORT", "8080"),
		APIHost:             getEnv("API_HOST", "localhost"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		APIEndpoint:         getEnv("API_ENDPOINT", "http://localhost:8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be an integer"}
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be a duration such as 2s or 500ms"}
	}
	return d, nil
}

// Validate validates the settings shared by every command
func (c *Config) Validate() error {
	if c.StorageType != "sqlite" && c.StorageType != "postgres" {
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'sqlite' or 'postgres'"}
	}
	if c.StorageType == "postgres" && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
	}
	if c.GitHubStatsAttempts < 1 {
		return &ConfigError{Field: "GITHUB_STATS_ATTEMPTS", Message: "must be at least 1"}
	}
	if c.GitHubStatsDelay < 0 {
		return &ConfigError{Field: "GITHUB_STATS_DELAY", Message: "must not be negative"}
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return &ConfigError{Field: "LOG_FORMAT", Message: "must be 'text' or 'json'"}
	}
	return nil
}

// ValidateServer validates the settings required by the API server
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.JWTSecret) < 16 {
		return &ConfigError{Field: "JWT_SECRET", Message: "must be at least 16 characters"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
