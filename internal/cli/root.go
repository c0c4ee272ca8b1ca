package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile     string
	serverFlag  string
	tokenFlag   string
	logFileFlag string
	debugFlag   bool
	noColor     bool
)

var rootCmd = &cobra.Command{
	Use:   "fleetwatch",
	Short: "Terminal dashboard for your agent fleet",
	Long: `fleetwatch is a terminal client for a fleet-monitoring backend.

It shows agents with live metric streams, uptime monitors with their check
history, and agent logs, either as a full-screen dashboard or as plain
commands you can script.

Get started:
  fleetwatch login --server https://fleet.example.com
  fleetwatch dashboard

Try it without a backend:
  fleetwatch demo`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupGlobals()
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .fleetwatch.yaml or ~/.config/fleetwatch/config.yaml)")
	pf.StringVar(&serverFlag, "server", "", "backend URL, overrides server.url")
	pf.StringVar(&tokenFlag, "token", "", "bearer token, overrides server.token")
	pf.StringVar(&logFileFlag, "log-file", "", "write logs here while the dashboard runs")
	pf.BoolVar(&debugFlag, "debug", false, "enable debug logging")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.BoolVar(&machineMode, "json", false, "machine-readable JSON output")
}

// setupGlobals applies flags that affect every command.
func setupGlobals() {
	if noColor || machineMode || os.Getenv("NO_COLOR") != "" {
		ui.DisableColors()
	}
	if debugFlag {
		os.Setenv(logger.DebugEnv, "1")
	}
	logger.SetDefault(logger.NewEnvLogger("[fleetwatch]"))
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	if code, ok := errors.GetExitCode(err); ok {
		os.Exit(code)
	}

	if machineMode {
		_ = WriteJSONFromError(os.Stdout, err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stderr, err)
	if isUnknownCommandError(err) {
		if name := extractUnknownCommand(err); name != "" {
			if suggestions := rootCmd.SuggestionsFor(name); len(suggestions) > 0 {
				fmt.Fprintf(os.Stderr, "\nDid you mean %s?\n", strings.Join(suggestions, " or "))
			}
		}
		fmt.Fprintln(os.Stderr, "\nRun 'fleetwatch --help' to see available commands.")
	}
	os.Exit(1)
}

// isUnknownCommandError reports whether cobra rejected the command line itself.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unknown command") || strings.Contains(msg, "unknown flag")
}

// extractUnknownCommand pulls the command name out of cobra's
// `unknown command "foo" for "fleetwatch"` message.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
