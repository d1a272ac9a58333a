// Package config provides configuration for the conversation service.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Analyzer settings
	AnalyzerProvider string
	AnalyzerBaseURL  string
	AnalyzerAPIKey   string
	AnalyzerModel    string
	AnalyzeTimeout   time.Duration
	PromptPath       string

	// Outbox processor
	OutboxInterval time.Duration
}

// Load loads configuration from the environment. A .env file in the working
// directory is applied first, if present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("INFO: loaded configuration from .env")
	}

	return &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:      getEnv("DATABASE_URL", "file:conversations.db?cache=shared&mode=rwc"),
		AnalyzerProvider: getEnv("ANALYZER_PROVIDER", "mock"),
		AnalyzerBaseURL:  getEnv("ANALYZER_BASE_URL", ""),
		AnalyzerAPIKey:   getEnv("ANALYZER_API_KEY", ""),
		AnalyzerModel:    getEnv("ANALYZER_MODEL", "gemini-2.5-flash-lite"),
		AnalyzeTimeout:   time.Duration(getEnvInt("ANALYZE_TIMEOUT_MS", 5000)) * time.Millisecond,
		PromptPath:       getEnv("PROMPT_PATH", "prompts/risk_analyzer.yaml"),
		OutboxInterval:   time.Duration(getEnvInt("OUTBOX_INTERVAL_MS", 5000)) * time.Millisecond,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
