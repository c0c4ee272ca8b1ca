package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/config"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/session"
	"github.com/rileyhilliard/fleetwatch/internal/ui"
	"github.com/spf13/cobra"
)

var loginSkipVerify bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save the backend URL and token",
	Long: `Save the backend URL and bearer token to the config file.

Prompts for anything not passed with --server or --token. The token is
checked against the backend before it's saved unless --skip-verify is set.

The file written is --config when given, otherwise the config file already
in use, otherwise ~/.config/fleetwatch/config.yaml.

Examples:
  fleetwatch login
  fleetwatch login --server https://fleet.example.com --token $FLEET_TOKEN`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, token := serverFlag, tokenFlag
		if server == "" || token == "" {
			if !isInteractive() {
				return errors.New(errors.ErrConfig,
					"Missing --server or --token",
					"Pass both flags when not running in a terminal.")
			}
			var err error
			if server, token, err = promptLogin(server, token); err != nil {
				return err
			}
		}

		path, err := loginConfigPath(cfgFile)
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		return login(ctx, cmd.OutOrStdout(), server, token, path, !loginSkipVerify)
	},
}

func init() {
	loginCmd.Flags().BoolVar(&loginSkipVerify, "skip-verify", false, "save without checking the token")
	rootCmd.AddCommand(loginCmd)
}

func promptLogin(server, token string) (string, string, error) {
	if server == "" {
		if cfg, _, err := config.LoadOrDefault(cfgFile); err == nil {
			server = cfg.Server.URL
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL").
				Placeholder("https://fleet.example.com").
				Value(&server).
				Validate(func(s string) error {
					_, err := session.New(s, "", "")
					if err != nil {
						return fmt.Errorf("enter a full URL like https://fleet.example.com")
					}
					return nil
				}),
			huh.NewInput().
				Title("Token").
				Description("Bearer token from the fleet web UI").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("token is required")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return "", "", errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't get your input",
			"Try again, or pass --server and --token.")
	}
	return server, token, nil
}

// loginConfigPath picks the file login writes.
func loginConfigPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if found, err := config.Find(""); err == nil && found != "" {
		return found, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine your home directory",
			"Pass --config to choose where to save.")
	}
	return config.GlobalPath(home), nil
}

type loginResult struct {
	Server     string    `json:"server"`
	User       string    `json:"user,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	Agents     int       `json:"agents"`
	ConfigPath string    `json:"config_path"`
	Verified   bool      `json:"verified"`
}

// login validates the credentials, optionally checks them against the
// backend, and saves them to path.
func login(ctx context.Context, w io.Writer, server, token, path string, verify bool) error {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	token = strings.TrimSpace(token)

	sess, err := session.New(server, "", token)
	if err != nil {
		return err
	}
	if sess.Expired(time.Now()) {
		return errors.New(errors.ErrAuth,
			"This token has already expired",
			"Create a new token and try again.")
	}

	res := loginResult{
		Server:     server,
		User:       sess.User,
		ExpiresAt:  sess.ExpiresAt,
		ConfigPath: path,
	}
	if verify {
		client := api.NewClient(sess, api.Options{Timeout: 15 * time.Second, Logger: logger.NewEnvLogger("[api]")})
		agents, err := client.ListAgents(ctx)
		if err != nil {
			return err
		}
		res.Agents = len(agents)
		res.Verified = true
	}

	if err := config.SaveServer(path, server, token); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't save credentials to "+path,
			"Check the file is writable, or pass --config to save elsewhere.")
	}

	return printResult(w, res, func() error {
		fmt.Fprintf(w, "%s Logged in to %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), sess.Label())
		if res.Verified {
			fmt.Fprintf(w, "  %s\n", ui.MutedStyle().Render(fmt.Sprintf("%d agents visible", res.Agents)))
		}
		if !res.ExpiresAt.IsZero() {
			fmt.Fprintf(w, "  %s\n", ui.MutedStyle().Render("token expires "+res.ExpiresAt.Local().Format(time.RFC1123)))
		}
		fmt.Fprintf(w, "  %s\n", ui.MutedStyle().Render("saved to "+path))
		return nil
	})
}
