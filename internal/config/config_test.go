package config_test

import (
	"globalchat/backend/internal/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, config.BackendLocal, cfg.BroadcastBackend)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 4096, cfg.MaxMessageSize)
	assert.NotEmpty(t, cfg.DatabaseDSN)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("BROADCAST_BACKEND", "redis")
	t.Setenv("HANDLE_CACHE_TTL", "30s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, config.BackendRedis, cfg.BroadcastBackend)
	assert.Equal(t, 30*time.Second, cfg.HandleCacheTTL)
}

func TestSanitize(t *testing.T) {
	cfg := config.Sanitize(config.Config{
		BroadcastBackend: "kafka",
		HistoryLimit:     10_000,
		SendBufferSize:   -1,
	})

	assert.Equal(t, config.BackendLocal, cfg.BroadcastBackend)
	assert.Equal(t, config.DefaultHistoryLimit, cfg.HistoryLimit)
	assert.Equal(t, 256, cfg.SendBufferSize)
}

func TestOrigins(t *testing.T) {
	cfg := config.Config{AllowedOrigins: " http://a.example , ,*"}
	assert.Equal(t, []string{"http://a.example", "*"}, cfg.Origins())
}
