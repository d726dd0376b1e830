package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "file:pulse.db?_foreign_keys=on", cfg.DBDSN)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("TRACK_RATE_RPS", "5.5")

	cfg := Load()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 5.5, cfg.TrackRateRPS)
}

func TestLoadIgnoresGarbageNumbers(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	assert.Equal(t, 8080, Load().Port)
}
