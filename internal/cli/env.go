package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/config"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/prefs"
	"github.com/rileyhilliard/fleetwatch/internal/session"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
	"github.com/rileyhilliard/fleetwatch/internal/ui"
	"golang.org/x/term"
)

// environment is everything a backend-facing command needs: the resolved
// config, the session built from it, and an API client for that session.
type environment struct {
	cfg        *config.Config
	configPath string
	session    *session.Session
	client     *api.Client
	prefs      prefs.Prefs
	prefsPath  string
}

// loadConfig finds and validates the config, then applies --server/--token.
func loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, "", err
	}
	applyOverrides(cfg, serverFlag, tokenFlag)
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// applyOverrides lets flags win over the file and the environment.
func applyOverrides(cfg *config.Config, server, token string) {
	if s := strings.TrimRight(strings.TrimSpace(server), "/"); s != "" {
		cfg.Server.URL = s
	}
	if t := strings.TrimSpace(token); t != "" {
		cfg.Server.Token = t
	}
}

// newEnvironment loads config and prefs and builds the session and client.
func newEnvironment() (*environment, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}

	sess, err := session.New(cfg.Server.URL, cfg.Server.StreamURL, cfg.Server.Token)
	if err != nil {
		return nil, err
	}
	if sess.Expired(time.Now()) && !machineMode {
		ui.PrintWarning("Your token expired at " + sess.ExpiresAt.Local().Format(timefmt.LayoutFull) + ". Run 'fleetwatch login' to refresh it.")
	}

	p, prefsPath, err := loadPrefs()
	if err != nil {
		return nil, err
	}

	client := api.NewClient(sess, api.Options{
		Timeout:  cfg.API.Timeout,
		MaxRPS:   cfg.API.MaxRPS,
		Burst:    cfg.API.Burst,
		PageSize: cfg.API.PageSize,
		Logger:   logger.NewEnvLogger("[api]"),
	})

	return &environment{
		cfg:        cfg,
		configPath: path,
		session:    sess,
		client:     client,
		prefs:      p,
		prefsPath:  prefsPath,
	}, nil
}

// location is the display zone: the prefs file wins over display.timezone.
func (e *environment) location() *time.Location {
	name := e.cfg.Display.Timezone
	if e.prefs.Timezone != "" {
		name = e.prefs.Timezone
	}
	loc, err := timefmt.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// loadPrefs reads the prefs file from its default location.
func loadPrefs() (prefs.Prefs, string, error) {
	path, err := prefs.DefaultPath()
	if err != nil {
		return prefs.Prefs{}, "", err
	}
	p, err := prefs.Load(path)
	if err != nil {
		return prefs.Prefs{}, "", err
	}
	return p, path, nil
}

// commandContext is cancelled on Ctrl-C or SIGTERM.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// isInteractive reports whether prompts can be shown.
func isInteractive() bool {
	return !machineMode && term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// requireArgID trims an id argument and rejects blanks.
func requireArgID(kind, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New(errors.ErrValidation,
			"Missing "+kind+" id",
			"Pass the id as the first argument. List them with 'fleetwatch "+kind+"s list'.")
	}
	return id, nil
}
