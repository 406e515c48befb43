package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[polymarket]
data_host = "https://data.example.com"

[sync]
page_size = 250
market_stale_after = "90m"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://data.example.com", cfg.Polymarket.DataHost)
	assert.Equal(t, 250, cfg.Sync.PageSize)
	assert.Equal(t, 90*time.Minute, cfg.Sync.MarketStaleAfter.Duration)

	// Untouched sections keep their defaults.
	assert.Equal(t, 5, cfg.Sync.MaxPages)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 8000
`), 0o644))

	t.Setenv("POLYFOLIO_SERVER_PORT", "9100")
	t.Setenv("POLYFOLIO_DATABASE_PASSWORD", "sekrit")
	t.Setenv("POLYFOLIO_SYNC_LOCK_TTL", "45s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "sekrit", cfg.Database.Password)
	assert.Equal(t, 45*time.Second, cfg.Sync.LockTTL.Duration)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Polymarket.DataHost = ""
	cfg.Sync.PageSize = 0
	cfg.Server.Port = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "data_host")
	assert.Contains(t, err.Error(), "page_size")
	assert.Contains(t, err.Error(), "port")
}
