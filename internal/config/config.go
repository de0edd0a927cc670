package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds settings shared by the API and the auth service
type Config struct {
	Port        string
	AuthPort    string
	Environment string
	LogLevel    slog.Level

	// PostgreSQL (exercise bank, tests, courses, resolutions)
	DatabaseURL string

	// MongoDB (auth users and sessions)
	MongoURI      string
	MongoDatabase string

	// Redis (cache and revoked sessions); empty disables it
	RedisURL string

	Auth AuthConfig

	// Kafka brokers for domain events; empty uses the in-process channel
	KafkaBrokers []string
	EventsTopic  string

	DraftTTL time.Duration
}

// AuthConfig holds token settings and the location of the auth service
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	ServiceURL string
}

// LoadConfig reads an optional .env file and then the process environment
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		AuthPort:      getEnv("AUTH_PORT", "3000"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		DatabaseURL:   getEnv("DATABASE_URL", "host=localhost user=chalk password=chalk dbname=chalk port=5432 sslmode=disable"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "Chalk-Test-Auth"),
		RedisURL:      getEnv("REDIS_URL", ""),
		EventsTopic:   getEnv("EVENTS_TOPIC", "chalk.events"),
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			ServiceURL: getEnv("AUTH_SERVICE_URL", "http://localhost:3000"),
		},
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.Auth.TokenTTL, err = getDuration("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DraftTTL, err = getDuration("DRAFT_TTL", 2*time.Hour); err != nil {
		return nil, err
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		if c.Environment == "production" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.Auth.JWTSecret = "chalk-development-secret"
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.DraftTTL <= 0 {
		return fmt.Errorf("DRAFT_TTL must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", raw, err)
	}
	return level, nil
}
