package cli

import (
	"fmt"
	"io"

	"github.com/rileyhilliard/fleetwatch/internal/prefs"
	"github.com/rileyhilliard/fleetwatch/internal/ui"
	"github.com/spf13/cobra"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change display preferences",
	Long: `Show or change the preferences the dashboard remembers between runs:

  timezone     display timezone (local, utc, or an IANA name like Europe/Berlin)
  default_tab  tab the dashboard opens on (agents, monitors, logs)
  live_mode    start agent detail in live mode (true) or history (false)

Preferences live in their own file next to the config and are rewritten
whole on every change.`,
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print current preferences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, path, err := loadPrefs()
		if err != nil {
			return err
		}
		return showPrefs(cmd.OutOrStdout(), p, path)
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Change a preference; omit the value to reset it",
	Long: `Change a preference. Omit the value to reset it to the default.

Examples:
  fleetwatch prefs set timezone America/New_York
  fleetwatch prefs set default_tab monitors
  fleetwatch prefs set live_mode`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: prefs.Keys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, path, err := loadPrefs()
		if err != nil {
			return err
		}
		value := ""
		if len(args) == 2 {
			value = args[1]
		}
		return setPref(cmd.OutOrStdout(), p, path, args[0], value)
	},
}

func init() {
	prefsCmd.AddCommand(prefsShowCmd, prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}

func showPrefs(w io.Writer, p prefs.Prefs, path string) error {
	return printResult(w, p, func() error {
		for _, key := range prefs.Keys() {
			v, err := p.Get(key)
			if err != nil {
				return err
			}
			if v == "" {
				v = ui.MutedStyle().Render("(default)")
			}
			fmt.Fprintf(w, "%-12s %s\n", key, v)
		}
		fmt.Fprintln(w, ui.MutedStyle().Render("\n"+path))
		return nil
	})
}

func setPref(w io.Writer, p prefs.Prefs, path, key, value string) error {
	if err := p.Set(key, value); err != nil {
		return err
	}
	if err := prefs.Save(path, p); err != nil {
		return err
	}
	return printResult(w, p, func() error {
		if value == "" {
			fmt.Fprintf(w, "%s Reset %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), key)
			return nil
		}
		stored, _ := p.Get(key)
		fmt.Fprintf(w, "%s Set %s to %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), key, stored)
		return nil
	})
}
