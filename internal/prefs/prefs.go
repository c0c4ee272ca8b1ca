// Package prefs persists the handful of UI choices a user makes from inside
// the dashboard (display timezone, starting tab, live/history mode).
//
// The file is small and owned by fleetwatch, so it is rewritten wholesale on
// every save instead of being edited in place like the config file.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the prefs file name inside the global config directory.
	FileName = "prefs.yaml"
	dirName  = ".config/fleetwatch"
)

// Tabs the dashboard can open on.
const (
	TabAgents   = "agents"
	TabMonitors = "monitors"
	TabLogs     = "logs"
)

// Prefs are the persisted UI preferences. Zero values mean "use the default".
type Prefs struct {
	Timezone   string `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	DefaultTab string `yaml:"default_tab,omitempty" json:"default_tab,omitempty"`
	LiveMode   *bool  `yaml:"live_mode,omitempty" json:"live_mode,omitempty"`
}

// keys maps settable names to their accessors.
var keys = map[string]struct {
	get func(Prefs) string
	set func(*Prefs, string) error
}{
	"timezone": {
		get: func(p Prefs) string { return p.Timezone },
		set: func(p *Prefs, v string) error {
			if v != "" {
				if _, err := timefmt.LoadLocation(v); err != nil {
					return err
				}
			}
			p.Timezone = v
			return nil
		},
	},
	"default_tab": {
		get: func(p Prefs) string { return p.DefaultTab },
		set: func(p *Prefs, v string) error {
			v = strings.ToLower(v)
			switch v {
			case "", TabAgents, TabMonitors, TabLogs:
				p.DefaultTab = v
				return nil
			}
			return fmt.Errorf("unknown tab %q (want %s, %s or %s)", v, TabAgents, TabMonitors, TabLogs)
		},
	},
	"live_mode": {
		get: func(p Prefs) string {
			if p.LiveMode == nil {
				return ""
			}
			return strconv.FormatBool(*p.LiveMode)
		},
		set: func(p *Prefs, v string) error {
			if v == "" {
				p.LiveMode = nil
				return nil
			}
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("live_mode must be true or false, got %q", v)
			}
			p.LiveMode = &b
			return nil
		},
	},
}

// Keys returns the settable preference names, sorted.
func Keys() []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns the stored value for key, empty when unset.
func (p Prefs) Get(key string) (string, error) {
	k, ok := keys[key]
	if !ok {
		return "", unknownKey(key)
	}
	return k.get(p), nil
}

// Set validates and stores value under key. An empty value clears it.
func (p *Prefs) Set(key, value string) error {
	k, ok := keys[key]
	if !ok {
		return unknownKey(key)
	}
	if err := k.set(p, strings.TrimSpace(value)); err != nil {
		return errors.WrapWithCode(err, errors.ErrPrefs,
			fmt.Sprintf("Can't set %s", key),
			err.Error())
	}
	return nil
}

// Live reports the live-mode preference, defaulting to on.
func (p Prefs) Live() bool {
	return p.LiveMode == nil || *p.LiveMode
}

// Tab returns the starting tab, defaulting to agents.
func (p Prefs) Tab() string {
	if p.DefaultTab == "" {
		return TabAgents
	}
	return p.DefaultTab
}

func unknownKey(key string) error {
	return errors.New(errors.ErrPrefs,
		fmt.Sprintf("Unknown preference '%s'", key),
		"Valid keys: "+strings.Join(Keys(), ", "))
}

// DefaultPath returns ~/.config/fleetwatch/prefs.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrPrefs,
			"Can't find your home directory",
			"Set $HOME so preferences have somewhere to live.")
	}
	return filepath.Join(home, dirName, FileName), nil
}

// Load reads prefs from path. A missing file yields empty prefs.
func Load(path string) (Prefs, error) {
	var p Prefs

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return p, errors.WrapWithCode(err, errors.ErrPrefs,
			"Failed to read preferences",
			"Check permissions on "+path)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prefs{}, errors.WrapWithCode(err, errors.ErrPrefs,
			"Preferences file is corrupt",
			"Delete "+path+" to reset, or fix the YAML by hand.")
	}

	// Values written by hand get the same checks as `prefs set`.
	for _, k := range Keys() {
		v, _ := p.Get(k)
		if err := p.Set(k, v); err != nil {
			return Prefs{}, err
		}
	}
	return p, nil
}

// Save writes prefs to path, replacing whatever was there.
func Save(path string, p Prefs) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrPrefs, "Failed to encode preferences", "")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrPrefs,
			"Failed to create preferences directory",
			"Check permissions on "+filepath.Dir(path))
	}

	// Write then rename so a crash never leaves half a file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrPrefs, "Failed to write preferences", "")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.WrapWithCode(err, errors.ErrPrefs, "Failed to write preferences", "")
	}
	return nil
}
