package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the per-directory config file name.
	ConfigFileName = ".fleetwatch.yaml"
	// GlobalConfigDir is the directory for global config, relative to home.
	GlobalConfigDir = ".config/fleetwatch"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. FLEETWATCH_SERVER_URL.
	EnvPrefix = "FLEETWATCH"
)

// Load reads config from the specified path, with defaults and environment
// overrides merged in.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'fleetwatch login' to create one, or point --config at an existing file")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .fleetwatch.yaml in current directory
// 3. .fleetwatch.yaml in parent directories (stops at home)
// 4. ~/.config/fleetwatch/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	home, _ := os.UserHomeDir()
	dir := cwd
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir || (home != "" && dir == home) {
			break
		}
		dir = parent
	}

	if home != "" {
		global := GlobalPath(home)
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// GlobalPath returns the global config path under home.
func GlobalPath(home string) string {
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

// LoadOrDefault loads the config found by Find, or defaults plus environment
// overrides when no file exists.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg, err := parseConfig(newViper(), "")
		return cfg, "", err
	}

	cfg, err := Load(path)
	return cfg, path, err
}

// newViper builds a viper instance with defaults and env binding applied.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		source := "the environment"
		if path != "" {
			source = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax and value types in "+source)
	}

	cfg.Server.URL = strings.TrimRight(strings.TrimSpace(cfg.Server.URL), "/")
	cfg.Server.Token = strings.TrimSpace(cfg.Server.Token)
	cfg.Server.StreamURL = strings.TrimRight(strings.TrimSpace(cfg.Server.StreamURL), "/")

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("version", d.Version)
	v.SetDefault("server.url", d.Server.URL)
	v.SetDefault("server.token", d.Server.Token)
	v.SetDefault("server.stream_url", d.Server.StreamURL)

	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.max_rps", d.API.MaxRPS)
	v.SetDefault("api.burst", d.API.Burst)
	v.SetDefault("api.page_size", d.API.PageSize)

	v.SetDefault("stream.buffer_size", d.Stream.BufferSize)
	v.SetDefault("stream.base_delay", d.Stream.BaseDelay)
	v.SetDefault("stream.max_delay", d.Stream.MaxDelay)
	v.SetDefault("stream.max_attempts", d.Stream.MaxAttempts)
	v.SetDefault("stream.handshake_timeout", d.Stream.HandshakeTimeout)

	v.SetDefault("prefetch.enabled", d.Prefetch.Enabled)
	v.SetDefault("prefetch.immediate", d.Prefetch.Immediate)
	v.SetDefault("prefetch.chunk_size", d.Prefetch.ChunkSize)
	v.SetDefault("prefetch.chunk_delay", d.Prefetch.ChunkDelay)
	v.SetDefault("prefetch.history_limit", d.Prefetch.HistoryLimit)

	v.SetDefault("display.refresh", d.Display.Refresh)
	v.SetDefault("display.timezone", d.Display.Timezone)
	v.SetDefault("display.thresholds.warning", d.Display.Thresholds.Warning)
	v.SetDefault("display.thresholds.critical", d.Display.Thresholds.Critical)
}
