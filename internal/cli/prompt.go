package cli

import (
	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
)

// confirmAction asks before a destructive action. --yes skips the prompt;
// without a terminal the action is refused rather than assumed.
func confirmAction(yes bool, title, description string) (bool, error) {
	if yes {
		return true, nil
	}
	if !isInteractive() {
		return false, errors.New(errors.ErrValidation,
			"Refusing to continue without confirmation",
			"Pass --yes to confirm when not running in a terminal.")
	}

	var confirm bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Value(&confirm),
		),
	)
	if err := form.Run(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrValidation,
			"Couldn't get your input",
			"Try again, or pass --yes to skip the prompt.")
	}
	return confirm, nil
}
