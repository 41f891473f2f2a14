package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ruminaider/profilepop/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Run("full file", func(t *testing.T) {
		input := []byte(`storage:
  backend: sqlite
  path: /tmp/profiles.db
license:
  free_profile_limit: 3
  trial_days: 14
  sku: pro_sku
  purchase_url: https://example.com/buy
  storefront_url: https://store.example.com
  request_timeout: 3s
  use_keyring: true
server:
  listen: 127.0.0.1:9000
  allowed_origins:
    - http://localhost:5173
log:
  level: debug
`)
		cfg, err := config.Parse(input)
		require.NoError(t, err)
		assert.Equal(t, config.BackendSQLite, cfg.Storage.Backend)
		assert.Equal(t, "/tmp/profiles.db", cfg.Storage.Path)
		assert.Equal(t, 3, cfg.License.FreeProfileLimit)
		assert.Equal(t, 14*24*time.Hour, cfg.License.TrialPeriod())
		assert.Equal(t, 3*time.Second, cfg.License.RequestTimeout)
		assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
		assert.True(t, cfg.License.UseKeyring)
		assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		cfg, err := config.Parse([]byte("server:\n  listen: :8080\n"))
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Listen)
		assert.Equal(t, config.BackendFile, cfg.Storage.Backend)
		assert.Equal(t, 5, cfg.License.FreeProfileLimit)
		assert.Equal(t, 7, cfg.License.TrialDays)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.Parse([]byte("storage:\n  backend: floppy\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown storage backend")
	})

	t.Run("redis without address", func(t *testing.T) {
		_, err := config.Parse([]byte("storage:\n  backend: redis\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis_addr")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := config.Parse([]byte(`{{{`))
		assert.Error(t, err)
	})
}

func TestMarshalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendMemory

	data, err := config.Marshal(cfg)
	require.NoError(t, err)

	parsed, err := config.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.Load(filepath.Join(dir, "config.yaml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().License, cfg.License)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  listen: 127.0.0.1:1\n"), 0644))

	t.Setenv("PROFILEPOP_LISTEN", "127.0.0.1:2")
	t.Setenv("PROFILEPOP_STORAGE", "memory")

	cfg, err := config.Load(cfgPath, "")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:2", cfg.Server.Listen)
	assert.Equal(t, config.BackendMemory, cfg.Storage.Backend)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("PROFILEPOP_LOG_LEVEL=warn\n"), 0644))

	// godotenv does not override variables that are already set.
	t.Setenv("PROFILEPOP_LOG_LEVEL", "")
	os.Unsetenv("PROFILEPOP_LOG_LEVEL")

	cfg, err := config.Load(filepath.Join(dir, "config.yaml"), envPath)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}
