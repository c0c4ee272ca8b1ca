package monitor

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
)

// Rows taken by the header (title, tabs, blank) and footer.
const (
	headerRows = 3
	footerRows = 2
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch {
	case m.tab == TabMonitors:
		b.WriteString(m.renderMonitors())
	case m.tab == TabLogs:
		b.WriteString(m.renderLogs())
	case m.viewMode == ViewDetail:
		b.WriteString(m.renderDetailView())
	default:
		b.WriteString(m.renderAgentCards())
	}

	if m.ShowFooter() {
		b.WriteString("\n")
		b.WriteString(m.renderFooter())
	}
	return b.String()
}

// bodyHeight is the number of rows left between header and footer.
func (m Model) bodyHeight() int {
	if m.height == 0 {
		return 20
	}
	return max(m.height-headerRows-footerRows, 1)
}

// renderHeader renders the title bar with fleet stats.
func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("fleetwatch")

	parts := []string{}
	if m.agentsLoaded {
		parts = append(parts, fmt.Sprintf("%d agents", len(m.agents)), fmt.Sprintf("%d online", m.OnlineCount()))
	}
	if m.tab == TabAgents && m.viewMode == ViewList {
		parts = append(parts, "sort: "+m.sortOrder.String())
	}
	if m.tab == TabMonitors {
		if s := m.prefetchStatus(); s != "" {
			parts = append(parts, s)
		}
	}
	if !m.lastUpdate.IsZero() {
		parts = append(parts, "updated "+timefmt.Relative(m.lastUpdate, m.now()))
	}

	stats := ""
	if len(parts) > 0 {
		stats = lipgloss.NewStyle().
			Foreground(ColorTextSecondary).
			Render(" | " + strings.Join(parts, " | "))
	}
	return HeaderStyle.Render(title + stats)
}

// renderTabs renders the tab bar, active tab highlighted.
func (m Model) renderTabs() string {
	tabs := make([]string, 0, numTabs)
	for t := Tab(0); t < numTabs; t++ {
		label := fmt.Sprintf("%d %s", t+1, t.Title())
		if t == m.tab {
			tabs = append(tabs, TabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, TabStyle.Render(label))
		}
	}
	return strings.Join(tabs, " ")
}

// renderFooter renders the toast when one is showing, else key hints.
func (m Model) renderFooter() string {
	if m.toast != nil {
		if m.toast.isError {
			return ToastErrorStyle.Render(m.toast.text)
		}
		return ToastInfoStyle.Render(m.toast.text)
	}

	var hints []string
	switch {
	case m.tab == TabMonitors:
		hints = []string{"↑↓ select", "c check", "d delete", "r refresh"}
	case m.tab == TabLogs:
		hints = []string{"↑↓ scroll", "f level", "r reload"}
	case m.viewMode == ViewDetail:
		mode := "l history"
		if !m.live {
			mode = "l live"
		}
		hints = []string{"esc back", mode, "r reconnect", "x restart"}
	default:
		hints = []string{"↑↓ select", "enter open", "s sort", "r refresh"}
	}
	hints = append(hints, "tab switch", "? help", "q quit")
	return FooterStyle.Render(strings.Join(hints, " | "))
}

// errorLine flattens an error to one line for a toast or status row.
func errorLine(err error) string {
	if err == nil {
		return ""
	}
	var fwErr *errors.Error
	if stderrors.As(err, &fwErr) {
		if fwErr.Cause != nil {
			return fwErr.Message + ": " + firstLine(fwErr.Cause.Error())
		}
		return fwErr.Message
	}
	return firstLine(err.Error())
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "✗"))
		if line != "" {
			return line
		}
	}
	return ""
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}

// FormatRate formats a bytes-per-second rate as a human-readable string.
func FormatRate(bytesPerSecond float64) string {
	switch {
	case bytesPerSecond < 1024:
		return fmt.Sprintf("%.0f B/s", bytesPerSecond)
	case bytesPerSecond < 1024*1024:
		return fmt.Sprintf("%.1f KB/s", bytesPerSecond/1024)
	case bytesPerSecond < 1024*1024*1024:
		return fmt.Sprintf("%.1f MB/s", bytesPerSecond/(1024*1024))
	}
	return fmt.Sprintf("%.1f GB/s", bytesPerSecond/(1024*1024*1024))
}
