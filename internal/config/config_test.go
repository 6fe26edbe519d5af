package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, CatalogFixture, cfg.CatalogSource)
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, 30*time.Second, cfg.CatalogCacheTTL)
	require.NoError(t, cfg.Validate())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "myshop.yaml")
	err := os.WriteFile(path, []byte(`
catalog_source: remote
catalog_service_url: https://dummyjson.com
catalog_cache_ttl: 2m
http_port: "9000"
`), 0o600)
	require.NoError(t, err)

	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, CatalogRemote, cfg.CatalogSource)
	assert.Equal(t, "https://dummyjson.com", cfg.CatalogServiceURL)
	assert.Equal(t, 2*time.Minute, cfg.CatalogCacheTTL)
	assert.Equal(t, "9100", cfg.HTTPPort)
	assert.Equal(t, 5, cfg.RateLimitRequests)
}

func TestLoadRejectsUnknownCatalogSource(t *testing.T) {
	t.Setenv("CATALOG_SOURCE", "carrier-pigeon")

	_, err := Load("")
	assert.ErrorContains(t, err, "carrier-pigeon")
}

func TestMalformedDurationFallsBack(t *testing.T) {
	t.Setenv("TOKEN_TTL", "forever")

	cfg := NewConfig()
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
}

func TestSlogLevel(t *testing.T) {
	cfg := NewConfig()
	cfg.LogLevel = "debug"
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	cfg.LogLevel = "chatty"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
