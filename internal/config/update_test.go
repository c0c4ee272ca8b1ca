package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveServer_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", GlobalConfigFile)

	require.NoError(t, SaveServer(path, "https://fleet.example.com", "tok"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Equal(t, "https://fleet.example.com", cfg.Server.URL)
	assert.Equal(t, "tok", cfg.Server.Token)
}

func TestSaveServer_PreservesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `# my fleet
version: 1
server:
  url: http://old:8080
  token: old
stream:
  max_attempts: 3 # keep trying a little
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	require.NoError(t, SaveServer(path, "http://new:8080", "new-token"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "# my fleet")
	assert.Contains(t, out, "# keep trying a little")
	assert.NotContains(t, out, "http://old:8080")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://new:8080", cfg.Server.URL)
	assert.Equal(t, "new-token", cfg.Server.Token)
	assert.Equal(t, 3, cfg.Stream.MaxAttempts)
}

func TestSaveServer_AddsServerSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

	require.NoError(t, SaveServer(path, "http://x:1", "t"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://x:1", cfg.Server.URL)
}

func TestSaveServer_RejectsNonMappingServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("server: nope\n"), 0o644))

	assert.Error(t, SaveServer(path, "http://x:1", "t"))
}
