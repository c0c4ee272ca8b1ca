package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Equal(t, "http://localhost:8080", cfg.Server.URL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, 100, cfg.API.PageSize)

	assert.Equal(t, 60, cfg.Stream.BufferSize)
	assert.Equal(t, time.Second, cfg.Stream.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Stream.MaxDelay)
	assert.Equal(t, 10, cfg.Stream.MaxAttempts)

	assert.True(t, cfg.Prefetch.Enabled)
	assert.Equal(t, 10, cfg.Prefetch.Immediate)
	assert.Equal(t, 5, cfg.Prefetch.ChunkSize)
	assert.Equal(t, 200*time.Millisecond, cfg.Prefetch.ChunkDelay)

	assert.Equal(t, 70, cfg.Display.Thresholds.Warning)
	assert.Equal(t, 90, cfg.Display.Thresholds.Critical)

	require.NoError(t, Validate(cfg))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)

	content := `
version: 1
server:
  url: https://fleet.example.com/
  token: " abc123 "
api:
  timeout: 5s
  max_rps: 2.5
stream:
  buffer_size: 120
  base_delay: 500ms
  max_attempts: 3
prefetch:
  immediate: 4
  chunk_delay: 1s
display:
  timezone: UTC
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://fleet.example.com", cfg.Server.URL, "trailing slash trimmed")
	assert.Equal(t, "abc123", cfg.Server.Token)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.InDelta(t, 2.5, cfg.API.MaxRPS, 0.0001)
	assert.Equal(t, 100, cfg.API.PageSize, "unset keys keep defaults")

	assert.Equal(t, 120, cfg.Stream.BufferSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Stream.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Stream.MaxDelay)
	assert.Equal(t, 3, cfg.Stream.MaxAttempts)

	assert.Equal(t, 4, cfg.Prefetch.Immediate)
	assert.Equal(t, 5, cfg.Prefetch.ChunkSize)
	assert.Equal(t, time.Second, cfg.Prefetch.ChunkDelay)

	assert.Equal(t, "UTC", cfg.Display.Timezone)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  url: http://from-file:8080\n"), 0o644))

	t.Setenv("FLEETWATCH_SERVER_URL", "http://from-env:9090")
	t.Setenv("FLEETWATCH_SERVER_TOKEN", "env-token")
	t.Setenv("FLEETWATCH_STREAM_MAX_ATTEMPTS", "4")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:9090", cfg.Server.URL)
	assert.Equal(t, "env-token", cfg.Server.Token)
	assert.Equal(t, 4, cfg.Stream.MaxAttempts)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [unclosed"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	configPath := filepath.Join(root, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1\n"), 0o644))

	t.Chdir(nested)
	t.Setenv("HOME", t.TempDir())

	found, err := Find("")
	require.NoError(t, err)
	assert.Equal(t, configPath, found)
}

func TestFind_Explicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

	found, err := Find(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)

	_, err = Find(path + ".nope")
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFind_Global(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	global := GlobalPath(home)
	require.NoError(t, os.MkdirAll(filepath.Dir(global), 0o755))
	require.NoError(t, os.WriteFile(global, []byte("version: 1\n"), 0o644))

	found, err := Find("")
	require.NoError(t, err)
	assert.Equal(t, global, found)
}

func TestLoadOrDefault_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("FLEETWATCH_SERVER_TOKEN", "tok")

	cfg, path, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, "http://localhost:8080", cfg.Server.URL)
	assert.Equal(t, "tok", cfg.Server.Token)
}
