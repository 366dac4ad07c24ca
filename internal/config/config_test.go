package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8090, cfg.HTTPPort)
	assert.Equal(t, "https://mlm-backend.pixl.uz", cfg.UpstreamURL)
	assert.Equal(t, 15*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "bolt", cfg.StorageBackend)
	assert.Equal(t, int64(10), cfg.DailyBonusCoins)
	assert.Equal(t, 120*time.Second, cfg.DepositCooldown)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORTAL_HTTP_PORT", "9000")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, "redis", cfg.StorageBackend)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("PORTAL_HTTP_PORT", "99999")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidStorageBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "sqlite")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidUpstreamURL(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "not a url")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_NonPositiveTimeout(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "0s")
	_, err := Load()
	assert.Error(t, err)
}
