package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HelpBinding represents a single keyboard shortcut entry.
type HelpBinding struct {
	Key  string
	Desc string
}

var globalBindings = []HelpBinding{
	{Key: "q / Ctrl+C", Desc: "Quit"},
	{Key: "Tab / S-Tab", Desc: "Next / previous tab"},
	{Key: "1 2 3", Desc: "Agents, Monitors, Logs"},
	{Key: "r", Desc: "Refresh"},
	{Key: "?", Desc: "Toggle this help"},
}

var agentsBindings = []HelpBinding{
	{Key: "up / k", Desc: "Select previous agent"},
	{Key: "down / j", Desc: "Select next agent"},
	{Key: "Home / End", Desc: "First / last agent"},
	{Key: "s", Desc: "Cycle sort order"},
	{Key: "Enter", Desc: "Open live view"},
	{Key: "x x", Desc: "Restart agent"},
}

var detailBindings = []HelpBinding{
	{Key: "Esc", Desc: "Close and disconnect"},
	{Key: "l", Desc: "Toggle live / history"},
	{Key: "r", Desc: "Reconnect, reload processes"},
	{Key: "up / down", Desc: "Scroll"},
	{Key: "x x", Desc: "Restart agent"},
}

var monitorsBindings = []HelpBinding{
	{Key: "up / k", Desc: "Select previous monitor"},
	{Key: "down / j", Desc: "Select next monitor"},
	{Key: "c", Desc: "Check now"},
	{Key: "d d", Desc: "Delete monitor"},
}

var logsBindings = []HelpBinding{
	{Key: "up / down", Desc: "Move cursor"},
	{Key: "PgUp / PgDn", Desc: "Move a page"},
	{Key: "f", Desc: "Cycle level filter"},
}

// helpBindings returns the shortcuts for the active view, global ones last.
func (m Model) helpBindings() []HelpBinding {
	var view []HelpBinding
	switch {
	case m.tab == TabMonitors:
		view = monitorsBindings
	case m.tab == TabLogs:
		view = logsBindings
	case m.viewMode == ViewDetail:
		view = detailBindings
	default:
		view = agentsBindings
	}
	return append(append([]HelpBinding(nil), view...), globalBindings...)
}

// Help overlay styles
var (
	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Background(ColorSurfaceBg).
			Padding(1, 2)

	helpTitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			MarginBottom(1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true).
			Width(14)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)
)

// renderHelpOverlay renders a centered help box for the active view.
func (m Model) renderHelpOverlay() string {
	title := m.tab.Title()
	if m.tab == TabAgents && m.viewMode == ViewDetail {
		title = "Agent"
	}

	lines := []string{helpTitleStyle.Render(title + " shortcuts"), ""}
	for _, binding := range m.helpBindings() {
		lines = append(lines, helpKeyStyle.Render(binding.Key)+helpDescStyle.Render(binding.Desc))
	}
	lines = append(lines, "", LabelStyle.Render("Press ? to close"))

	helpBox := helpBoxStyle.Render(strings.Join(lines, "\n"))
	if m.width == 0 || m.height == 0 {
		return helpBox
	}
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		helpBox,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(ColorDarkBg),
	)
}
