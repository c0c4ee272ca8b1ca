// Package ui provides the terminal building blocks shared by fleetwatch's
// CLI commands: colors, status symbols, usage bars, sparklines and tables.
//
// # Color Scheme
//
//	ColorSuccess   (green)  - online agents, passing checks
//	ColorError     (red)    - offline agents, failing checks, critical usage
//	ColorWarning   (amber)  - usage above the warning threshold
//	ColorInfo      (cyan)   - informational messages
//	ColorMuted     (gray)   - ids, timestamps, secondary text
//
// Use DisableColors() to switch to monochrome output (for --no-color flag).
//
// # Sparklines
//
// RenderSparkline draws a one-line block chart for terminal output.
// RenderSVGSparkline draws the same series as a standalone SVG document:
//
//	svg := ui.RenderSVGSparkline(cpu, ui.SVGOptions{Width: 200, Height: 40, Min: 0, Max: 100})
//
// Both treat NaN as a missing reading rather than zero.
//
// # Spinner Usage
//
//	s := ui.NewSpinner("Restarting web-01")
//	s.Start()
//	// ... do work ...
//	s.Success() // or s.Fail()
package ui
