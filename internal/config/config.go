package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr  string
	TLSCertFile string
	TLSKeyFile  string
	TLSCAFile   string // Optional: enables mTLS client verification

	// Database
	DatabaseURL string

	// Google Maps Platform
	GoogleAPIKey  string
	PlacesBaseURL string // Override for tests and proxies; empty means Google

	// Geocode cache. Empty means an in-process cache.
	RedisURL string

	// API
	APIToken        string // Static bearer token; empty disables auth (dev only)
	CORSOrigins     string // Comma-separated allowed origins
	RateLimitPerMin int

	// Logging
	LogLevel string // debug, info, warn, error

	// Search tuning file
	ConfigFile string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present; real
// environment variables win over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:             getEnv("ENV", "development"),
		ServerAddr:      getEnv("SERVER_ADDR", ":3000"),
		TLSCertFile:     getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:      getEnv("TLS_KEY_FILE", ""),
		TLSCAFile:       getEnv("TLS_CA_FILE", ""),
		DatabaseURL:     getEnv("DATABASE_URL", "postgres://localhost:5432/looklike?sslmode=disable"),
		GoogleAPIKey:    getEnv("GOOGLE_API_KEY", ""),
		PlacesBaseURL:   getEnv("PLACES_BASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		APIToken:        getEnv("API_TOKEN", ""),
		CORSOrigins:     getEnv("CORS_ORIGINS", ""),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 100),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ConfigFile:      getEnv("CONFIG_FILE", "config.yaml"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		slog.Warn("ignoring invalid integer env var", "key", key, "value", value)
		return fallback
	}
	return n
}

// TLSEnabled reports whether both a certificate and key are configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
