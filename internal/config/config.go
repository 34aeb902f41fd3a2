// Package config loads client configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	SupabaseURL     string
	SupabaseAnonKey string
	GeminiAPIKey    string
	HTTPTimeout     time.Duration
}

func New() *Config {
	_ = godotenv.Load()

	timeout := 30 * time.Second
	if v := getEnv("HTTP_TIMEOUT", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}

	return &Config{
		SupabaseURL:     getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey: getEnv("SUPABASE_ANON_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		HTTPTimeout:     timeout,
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
