package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete fleetwatch configuration file.
type Config struct {
	Version  int            `yaml:"version" mapstructure:"version"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	API      APIConfig      `yaml:"api" mapstructure:"api"`
	Stream   StreamConfig   `yaml:"stream" mapstructure:"stream"`
	Prefetch PrefetchConfig `yaml:"prefetch" mapstructure:"prefetch"`
	Display  DisplayConfig  `yaml:"display" mapstructure:"display"`
}

// ServerConfig points at the fleet backend.
type ServerConfig struct {
	// URL is the backend base URL, e.g. https://fleet.example.com.
	URL string `yaml:"url" mapstructure:"url"`

	// Token is the bearer token sent on every request and stream.
	Token string `yaml:"token" mapstructure:"token"`

	// StreamURL overrides the WebSocket base. Derived from URL when empty.
	StreamURL string `yaml:"stream_url,omitempty" mapstructure:"stream_url"`
}

// APIConfig controls REST behavior.
type APIConfig struct {
	// Timeout bounds every REST call so a stalled backend can't hang a view.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// MaxRPS caps client-side request rate. Zero disables throttling.
	MaxRPS float64 `yaml:"max_rps" mapstructure:"max_rps"`

	// Burst is the token-bucket burst allowed above MaxRPS.
	Burst int `yaml:"burst" mapstructure:"burst"`

	// PageSize is the limit sent on paginated queries.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
}

// StreamConfig controls the live metric stream.
type StreamConfig struct {
	// BufferSize is how many recent samples are kept per focused agent.
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size"`

	// BaseDelay is the first reconnect delay; each further failure doubles it.
	BaseDelay time.Duration `yaml:"base_delay" mapstructure:"base_delay"`

	// MaxDelay caps the reconnect delay.
	MaxDelay time.Duration `yaml:"max_delay" mapstructure:"max_delay"`

	// MaxAttempts is how many reconnects are tried before giving up.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`

	// HandshakeTimeout bounds the WebSocket upgrade.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" mapstructure:"handshake_timeout"`
}

// PrefetchConfig controls background loading of monitor details.
type PrefetchConfig struct {
	// Enabled turns background prefetch on. Direct loads always work.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Immediate is the number of leading items fetched all at once.
	Immediate int `yaml:"immediate" mapstructure:"immediate"`

	// ChunkSize is the batch size for the remaining items.
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size"`

	// ChunkDelay is the pause before each background batch.
	ChunkDelay time.Duration `yaml:"chunk_delay" mapstructure:"chunk_delay"`

	// HistoryLimit is how many check results are loaded with each monitor.
	HistoryLimit int `yaml:"history_limit" mapstructure:"history_limit"`
}

// DisplayConfig controls the dashboard.
type DisplayConfig struct {
	// Refresh is how often list views poll the backend.
	Refresh time.Duration `yaml:"refresh" mapstructure:"refresh"`

	// Timezone overrides the display zone; the prefs file wins when set.
	Timezone string `yaml:"timezone" mapstructure:"timezone"`

	// Thresholds for coloring metrics.
	Thresholds Thresholds `yaml:"thresholds" mapstructure:"thresholds"`
}

// Thresholds holds warning/critical percentages.
type Thresholds struct {
	Warning  int `yaml:"warning" mapstructure:"warning"`
	Critical int `yaml:"critical" mapstructure:"critical"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Server: ServerConfig{
			URL: "http://localhost:8080",
		},
		API: APIConfig{
			Timeout:  15 * time.Second,
			MaxRPS:   20,
			Burst:    10,
			PageSize: 100,
		},
		Stream: StreamConfig{
			BufferSize:       60,
			BaseDelay:        time.Second,
			MaxDelay:         30 * time.Second,
			MaxAttempts:      10,
			HandshakeTimeout: 10 * time.Second,
		},
		Prefetch: PrefetchConfig{
			Enabled:      true,
			Immediate:    10,
			ChunkSize:    5,
			ChunkDelay:   200 * time.Millisecond,
			HistoryLimit: 50,
		},
		Display: DisplayConfig{
			Refresh:  5 * time.Second,
			Timezone: "local",
			Thresholds: Thresholds{
				Warning:  70,
				Critical: 90,
			},
		},
	}
}
