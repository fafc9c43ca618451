package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "production")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, StoreBackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.False(t, cfg.Database.UseSSL)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Auth.PasswordCost)
	assert.Equal(t, "account-events", cfg.MQ.Channel)
	assert.Equal(t, "deleted-users", cfg.Storage.ArchivePrefix)
	assert.False(t, cfg.Log.Development)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("JWT_SECRET", "  secret  ")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("MQ_BACKEND", "RabbitMQ")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_TTL", "30s")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, StoreBackendMemory, cfg.StoreBackend)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, "secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "rabbitmq", cfg.MQ.Backend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
}

func TestLoadConfigInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("DB_USE_SSL", "maybe")
	t.Setenv("JWT_TTL", "forever")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.False(t, cfg.Database.UseSSL)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenTTL)
}
