package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic colors for status indication. Hex values degrade to the nearest
// ANSI color on terminals without truecolor support.
const (
	ColorSuccess lipgloss.Color = "#3DDC84" // online, up, healthy
	ColorError   lipgloss.Color = "#FF5C5C" // offline, down, critical
	ColorWarning lipgloss.Color = "#FFB347" // degraded, above warning threshold
	ColorInfo    lipgloss.Color = "#4FC3F7" // informational
)

// Text colors for content hierarchy.
const (
	ColorPrimary   lipgloss.Color = "#E6E6E6"
	ColorSecondary lipgloss.Color = "#7AA2F7"
	ColorMuted     lipgloss.Color = "#6B7280"
)

// SuccessStyle renders healthy states.
func SuccessStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorSuccess) }

// ErrorStyle renders failures.
func ErrorStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorError) }

// WarningStyle renders warnings.
func WarningStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorWarning) }

// InfoStyle renders informational text.
func InfoStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorInfo) }

// MutedStyle renders secondary text such as timestamps and ids.
func MutedStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorMuted) }

// ThresholdColor picks a color for a percentage given warning and critical
// cut-offs. A non-positive cut-off falls back to 70/90.
func ThresholdColor(percent float64, warning, critical int) lipgloss.Color {
	if warning <= 0 {
		warning = 70
	}
	if critical <= 0 {
		critical = 90
	}
	switch {
	case percent >= float64(critical):
		return ColorError
	case percent >= float64(warning):
		return ColorWarning
	default:
		return ColorSuccess
	}
}

// DisableColors switches lipgloss to plain ASCII output (--no-color, NO_COLOR).
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// PrintWarning writes a warning line to stderr.
func PrintWarning(msg string) {
	fmt.Fprintln(os.Stderr, WarningStyle().Render(SymbolWarning)+" "+msg)
}

// PrintSuccess writes a success line to stdout.
func PrintSuccess(msg string) {
	fmt.Fprintln(os.Stdout, SuccessStyle().Render(SymbolSuccess)+" "+msg)
}
