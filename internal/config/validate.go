package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
)

// Floors below which settings would hammer the backend.
const (
	minRefresh    = 500 * time.Millisecond
	minBaseDelay  = 100 * time.Millisecond
	minAPITimeout = time.Second
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but fleetwatch only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade fleetwatch to the latest release.")
	}

	if err := validateServer(cfg.Server); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'server' section, or pass --server.")
	}

	if err := validateAPI(cfg.API); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'api' section of your config.")
	}

	if err := validateStream(cfg.Stream); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'stream' section of your config.")
	}

	if err := validatePrefetch(cfg.Prefetch); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'prefetch' section of your config.")
	}

	if err := validateDisplay(cfg.Display); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'display' section of your config.")
	}

	return nil
}

func validateServer(s ServerConfig) error {
	if s.URL == "" {
		return fmt.Errorf("server.url is empty")
	}
	if err := validateBaseURL("server.url", s.URL, "http", "https"); err != nil {
		return err
	}
	if s.StreamURL != "" {
		if err := validateBaseURL("server.stream_url", s.StreamURL, "ws", "wss", "http", "https"); err != nil {
			return err
		}
	}
	return nil
}

func validateBaseURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s '%s' is not a valid URL: %v", field, raw, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return fmt.Errorf("%s '%s' has no host", field, raw)
			}
			return nil
		}
	}
	return fmt.Errorf("%s '%s' must use one of %v", field, raw, schemes)
}

func validateAPI(a APIConfig) error {
	if a.Timeout < minAPITimeout {
		return fmt.Errorf("api.timeout %s is below the %s minimum", a.Timeout, minAPITimeout)
	}
	if a.MaxRPS < 0 {
		return fmt.Errorf("api.max_rps can't be negative")
	}
	if a.MaxRPS > 0 && a.Burst < 1 {
		return fmt.Errorf("api.burst must be at least 1 when api.max_rps is set")
	}
	if a.PageSize < 1 || a.PageSize > 1000 {
		return fmt.Errorf("api.page_size %d must be between 1 and 1000", a.PageSize)
	}
	return nil
}

func validateStream(s StreamConfig) error {
	if s.BufferSize < 2 {
		return fmt.Errorf("stream.buffer_size %d must be at least 2", s.BufferSize)
	}
	if s.BaseDelay < minBaseDelay {
		return fmt.Errorf("stream.base_delay %s is below the %s minimum", s.BaseDelay, minBaseDelay)
	}
	if s.MaxDelay < s.BaseDelay {
		return fmt.Errorf("stream.max_delay %s is shorter than stream.base_delay %s", s.MaxDelay, s.BaseDelay)
	}
	if s.MaxAttempts < 1 {
		return fmt.Errorf("stream.max_attempts must be at least 1")
	}
	return nil
}

func validatePrefetch(p PrefetchConfig) error {
	if p.Immediate < 0 {
		return fmt.Errorf("prefetch.immediate can't be negative")
	}
	if p.ChunkSize < 1 {
		return fmt.Errorf("prefetch.chunk_size must be at least 1")
	}
	if p.ChunkDelay < 0 {
		return fmt.Errorf("prefetch.chunk_delay can't be negative")
	}
	if p.HistoryLimit < 1 {
		return fmt.Errorf("prefetch.history_limit must be at least 1")
	}
	return nil
}

func validateDisplay(d DisplayConfig) error {
	if d.Refresh < minRefresh {
		return fmt.Errorf("display.refresh %s is below the %s minimum", d.Refresh, minRefresh)
	}
	if _, err := timefmt.LoadLocation(d.Timezone); err != nil {
		return fmt.Errorf("display.timezone: %v", err)
	}
	t := d.Thresholds
	if t.Warning < 0 || t.Critical > 100 || t.Warning >= t.Critical {
		return fmt.Errorf("display.thresholds need 0 <= warning < critical <= 100 (got %d/%d)", t.Warning, t.Critical)
	}
	return nil
}
