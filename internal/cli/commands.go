package cli

import (
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/spf13/cobra"
)

// completionCmd writes a shell completion script to stdout.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for fleetwatch.

Examples:
  # Bash
  fleetwatch completion bash > /etc/bash_completion.d/fleetwatch

  # Zsh
  fleetwatch completion zsh > "${fpath[1]}/_fleetwatch"

  # Fish
  fleetwatch completion fish > ~/.config/fish/completions/fleetwatch.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(out)
		default:
			return errors.New(errors.ErrValidation,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
