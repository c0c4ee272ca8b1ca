package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/fleetwatch/internal/config"
	"github.com/rileyhilliard/fleetwatch/internal/demo"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSavesVerifiedCredentials(t *testing.T) {
	b := startBackend(t, demo.Options{Bookmarks: 1})
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	var buf bytes.Buffer
	require.NoError(t, login(context.Background(), &buf, b.url+"/", " "+b.token+" ", path, true))
	assert.Contains(t, buf.String(), "Logged in")
	assert.Contains(t, buf.String(), "5 agents visible")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, b.url, cfg.Server.URL)
	assert.Equal(t, b.token, cfg.Server.Token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoginJSON(t *testing.T) {
	b := startBackend(t, demo.Options{Bookmarks: 1})
	withMachineMode(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	var buf bytes.Buffer
	require.NoError(t, login(context.Background(), &buf, b.url, b.token, path, true))

	var res loginResult
	decodeEnvelope(t, &buf, &res)
	assert.True(t, res.Verified)
	assert.Equal(t, "alice", res.User)
	assert.Equal(t, 5, res.Agents)
	assert.Equal(t, path, res.ConfigPath)
}

func TestLoginRejectsBadToken(t *testing.T) {
	b := startBackend(t, demo.Options{Bookmarks: 1})
	path := filepath.Join(t.TempDir(), "config.yaml")

	var buf bytes.Buffer
	err := login(context.Background(), &buf, b.url, "not-a-token", path, true)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuth))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing saved on failure")
}

func TestLoginSkipVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	var buf bytes.Buffer
	require.NoError(t, login(context.Background(), &buf, "https://fleet.example.com", "opaque", path, false))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://fleet.example.com", cfg.Server.URL)
}

func TestLoginRejectsBadURL(t *testing.T) {
	var buf bytes.Buffer
	err := login(context.Background(), &buf, "not a url", "x", filepath.Join(t.TempDir(), "c.yaml"), false)
	assert.Error(t, err)
}

func TestLoginConfigPath(t *testing.T) {
	got, err := loginConfigPath("/tmp/explicit.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/explicit.yaml", got)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	got, err = loginConfigPath("")
	require.NoError(t, err)
	assert.Equal(t, config.GlobalPath(home), got)
}
