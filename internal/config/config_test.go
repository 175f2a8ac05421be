package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE", "DATABASE_URL", "LOG_LEVEL", "NATS_URL", "NATS_STREAM", "CORS_ALLOWED_ORIGINS", "SHUTDOWN_TIMEOUT", "DB_MAX_OPEN_CONNS"} {
		t.Setenv(key, "")
	}
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StorageInMemory, cfg.Storage)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "BOOKS_COMMENTS", cfg.NATS.Stream)
	assert.Empty(t, cfg.NATS.URL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/books")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Storage: StoragePostgres, Auth: AuthConfig{JWTSecret: "x"}}
	assert.EqualError(t, cfg.Validate(), "DATABASE_URL must be set for postgres storage")

	cfg = &Config{Storage: "redis", Auth: AuthConfig{JWTSecret: "x"}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Storage: StorageInMemory}
	assert.EqualError(t, cfg.Validate(), "JWT_SECRET is required")
}
