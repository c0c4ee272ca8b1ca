package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUnknownCommandError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "unknown command error",
			err:  errors.New(`unknown command "agnets" for "fleetwatch"`),
			want: true,
		},
		{
			name: "unknown flag error",
			err:  errors.New(`unknown flag: --foo`),
			want: true,
		},
		{
			name: "other error",
			err:  errors.New("connection refused"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUnknownCommandError(tt.err))
		})
	}
}

func TestExtractUnknownCommand(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "standard cobra format",
			err:  errors.New(`unknown command "agnets" for "fleetwatch"`),
			want: "agnets",
		},
		{
			name: "command with hyphen",
			err:  errors.New(`unknown command "book-marks" for "fleetwatch"`),
			want: "book-marks",
		},
		{
			name: "no quotes returns empty",
			err:  errors.New("unknown command foo"),
			want: "",
		},
		{
			name: "single quote returns empty",
			err:  errors.New(`unknown command "foo`),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractUnknownCommand(tt.err))
		})
	}
}

func TestRootRegistersCommands(t *testing.T) {
	want := []string{"dashboard", "watch", "agents", "bookmarks", "alerts", "logs", "login", "prefs", "demo", "version", "completion"}
	for _, name := range want {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{name})
			if assert.NoError(t, err) {
				assert.Equal(t, name, cmd.Name())
			}
		})
	}
}

func TestSuggestionsForTypos(t *testing.T) {
	assert.Contains(t, rootCmd.SuggestionsFor("agnets"), "agents")
	assert.Contains(t, rootCmd.SuggestionsFor("bookmark"), "bookmarks")
}

func TestApplyOverrides(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Server.URL = "https://from-file.example.com"
	cfg.Server.Token = "file-token"

	applyOverrides(cfg, "", "  ")
	assert.Equal(t, "https://from-file.example.com", cfg.Server.URL)
	assert.Equal(t, "file-token", cfg.Server.Token)

	applyOverrides(cfg, " https://flag.example.com/ ", "flag-token")
	assert.Equal(t, "https://flag.example.com", cfg.Server.URL)
	assert.Equal(t, "flag-token", cfg.Server.Token)
}

func TestRequireArgID(t *testing.T) {
	id, err := requireArgID("agent", "  web-01 ")
	assert.NoError(t, err)
	assert.Equal(t, "web-01", id)

	_, err = requireArgID("agent", "   ")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "fleetwatch agents list")
}
