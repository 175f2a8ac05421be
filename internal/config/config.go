package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Storage  string
	Database DatabaseConfig
	Log      LogConfig
	Auth     AuthConfig
	NATS     NATSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// AuthConfig holds the shared secret of the token issuer.
type AuthConfig struct {
	JWTSecret string
}

// NATSConfig holds event publishing settings. An empty URL disables
// publishing.
type NATSConfig struct {
	URL    string
	Stream string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			CORSAllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
			ShutdownTimeout:    getDurationEnv("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Storage: getEnv("STORAGE", StorageInMemory),
		Database: DatabaseConfig{
			URL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret: strings.TrimSpace(os.Getenv("JWT_SECRET")),
		},
		NATS: NATSConfig{
			URL:    strings.TrimSpace(os.Getenv("NATS_URL")),
			Stream: getEnv("NATS_STREAM", "BOOKS_COMMENTS"),
		},
	}
	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageInMemory:
	case StoragePostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL must be set for postgres storage")
		}
	default:
		return errors.New("storage must be in-memory or postgres")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal >= 0 {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
