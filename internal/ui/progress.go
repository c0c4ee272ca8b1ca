package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Progress bar block characters.
const (
	progressFilled = '█'
	progressEmpty  = '░'
)

// RenderProgressBar draws a usage bar such as `[████████░░░░]  67%`.
// Percent is clamped to 0-100 and colored against the warning and critical
// thresholds (see ThresholdColor).
func RenderProgressBar(percent float64, width, warning, critical int) string {
	if width <= 0 {
		return ""
	}
	percent = clampPercent(percent)

	filled := int((percent / 100.0) * float64(width))
	bar := "[" + strings.Repeat(string(progressFilled), filled) +
		strings.Repeat(string(progressEmpty), width-filled) + "]"

	style := lipgloss.NewStyle().Foreground(ThresholdColor(percent, warning, critical))
	return style.Render(bar) + fmt.Sprintf(" %3.0f%%", percent)
}

func clampPercent(p float64) float64 {
	switch {
	case p != p, p < 0: // NaN reads as empty
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
