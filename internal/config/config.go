// Package config loads application configuration from the environment,
// with a .env file for local development.
package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables.
// Provide sane defaults for local development.
type Config struct {
	Port   string
	DBPath string

	// JWT
	JWTSecret string
	TokenTTL  time.Duration

	// Foreign ledger (Splitwise) OAuth
	SplitwiseBaseURL      string
	SplitwiseClientID     string
	SplitwiseClientSecret string
	SplitwiseRedirectURI  string

	// Mailgun; when the domain is empty notifications go to the log.
	MailgunDomain string
	MailgunAPIKey string
	MailgunSender string
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	return &Config{
		Port:   getEnv("PORT", "8080"),
		DBPath: getEnv("DB_PATH", "./data/owetrack.db"),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:  getDuration("TOKEN_TTL", 24*time.Hour),

		SplitwiseBaseURL:      getEnv("SPLITWISE_BASE_URL", "https://secure.splitwise.com"),
		SplitwiseClientID:     os.Getenv("SPLITWISE_CLIENT_ID"),
		SplitwiseClientSecret: os.Getenv("SPLITWISE_CLIENT_SECRET"),
		SplitwiseRedirectURI:  os.Getenv("SPLITWISE_REDIRECT_URI"),

		MailgunDomain: os.Getenv("MAILGUN_DOMAIN"),
		MailgunAPIKey: os.Getenv("MAILGUN_API_KEY"),
		MailgunSender: getEnv("MAILGUN_SENDER", "owetrack <noreply@owetrack.local>"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", value)
		return fallback
	}
	return d
}
