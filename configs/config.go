package config

import (
	"os"
)

// Config holds the application configuration
type Config struct {
	Port           string
	Environment    string
	APIKey         string
	DatabasePath   string
	OpenAIEndpoint string
	OpenAIAPIKey   string
	OpenAIModel    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		APIKey:         getEnv("API_KEY", ""),
		DatabasePath:   getEnv("DATABASE_PATH", "codot.db"),
		OpenAIEndpoint: getEnv("OPENAI_ENDPOINT", ""),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
