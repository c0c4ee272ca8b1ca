package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, Prefs{}, p)
	assert.True(t, p.Live(), "live mode defaults on")
	assert.Equal(t, TabAgents, p.Tab())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	var p Prefs
	require.NoError(t, p.Set("timezone", "America/New_York"))
	require.NoError(t, p.Set("default_tab", "Monitors"))
	require.NoError(t, p.Set("live_mode", "false"))
	require.NoError(t, Save(path, p))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", got.Timezone)
	assert.Equal(t, TabMonitors, got.Tab())
	assert.False(t, got.Live())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file cleaned up")
}

func TestSave_OverwritesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("# hand edit\ntimezone: UTC\nextra: kept?\n"), 0o644))

	require.NoError(t, Save(path, Prefs{DefaultTab: TabLogs}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "default_tab: logs\n", string(data))
}

func TestSet(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
		check   func(t *testing.T, p Prefs)
	}{
		{name: "utc", key: "timezone", value: "UTC", check: func(t *testing.T, p Prefs) {
			assert.Equal(t, "UTC", p.Timezone)
		}},
		{name: "bad zone", key: "timezone", value: "Mars/Olympus", wantErr: true},
		{name: "clear tab", key: "default_tab", value: "", check: func(t *testing.T, p Prefs) {
			assert.Equal(t, TabAgents, p.Tab())
		}},
		{name: "bad tab", key: "default_tab", value: "settings", wantErr: true},
		{name: "live on", key: "live_mode", value: "true", check: func(t *testing.T, p Prefs) {
			assert.True(t, p.Live())
			v, _ := p.Get("live_mode")
			assert.Equal(t, "true", v)
		}},
		{name: "live garbage", key: "live_mode", value: "sometimes", wantErr: true},
		{name: "unknown key", key: "theme", value: "dark", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Prefs{DefaultTab: TabLogs}
			err := p.Set(tt.key, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrPrefs))
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	corrupt := filepath.Join(dir, "corrupt.yaml")
	require.NoError(t, os.WriteFile(corrupt, []byte("timezone: [oops"), 0o644))
	_, err := Load(corrupt)
	assert.True(t, errors.IsCode(err, errors.ErrPrefs))

	badValue := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badValue, []byte("default_tab: nowhere\n"), 0o644))
	_, err = Load(badValue)
	assert.True(t, errors.IsCode(err, errors.ErrPrefs))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{"default_tab", "live_mode", "timezone"}, Keys())
}
