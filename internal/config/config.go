package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken      string
	GitHubGraphQLURL string

	// Storage
	StorageType string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresURL string

	// API Server
	APIPort string
	APIHost string

	// Bulk load input directory
	DataDir string

	// Default number of results when a search request carries no limit
	SearchDefaultLimit int

	// CLI
	APIEndpoint string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		GitHubToken:        getEnv("GITHUB_TOKEN", ""),
		GitHubGraphQLURL:   getEnv("GITHUB_GRAPHQL_URL", "https://api.github.com/graphql"),
		StorageType:        getEnv("STORAGE_TYPE", "sqlite"),
		SQLitePath:         getEnv("SQLITE_PATH", "./packages.db"),
		PostgresURL:        getEnv("POSTGRES_URL", ""),
		APIPort:            getEnv("API_PORT", "8080"),
		APIHost:            getEnv("API_HOST", "localhost"),
		DataDir:            getEnv("DATA_DIR", "./data"),
		SearchDefaultLimit: getEnvInt("SEARCH_DEFAULT_LIMIT", 50),
		APIEndpoint:        getEnv("API_ENDPOINT", "http://localhost:8080"),
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GitHubToken == "" {
		return &ConfigError{Field: "GITHUB_TOKEN", Message: "GitHub token is required"}
	}
	if c.StorageType != "sqlite" && c.StorageType != "postgres" {
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'sqlite' or 'postgres'"}
	}
	if c.StorageType == "postgres" && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
	}
	if c.SearchDefaultLimit <= 0 {
		return &ConfigError{Field: "SEARCH_DEFAULT_LIMIT", Message: "must be a positive integer"}
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
