package monitor

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/pager"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
)

// logLevels is the filter cycle for f. The first entry shows everything.
var logLevels = []string{"all", "error", "warn", "info", "debug"}

// newLogPager builds a pager for the current level filter. Each filter gets
// its own pager so pages of the old listing can be recognized and dropped.
func (m Model) newLogPager() *pager.Pager[api.LogEntry] {
	var levels []string
	if lvl := logLevels[m.logLevel]; lvl != "all" {
		levels = []string{lvl}
	}
	backend := m.backend
	return pager.New(func(ctx context.Context, offset, limit int) (*api.Page[api.LogEntry], error) {
		return backend.QueryLogs(ctx, api.LogQuery{Levels: levels, Offset: offset, Limit: limit})
	}, m.pageSize, pager.DefaultThreshold)
}

func (m Model) loadLogsCmd() tea.Cmd {
	ctx, p := m.ctx, m.logs
	return func() tea.Msg {
		n, err := p.Next(ctx)
		return logsMsg{pager: p, added: n, err: err}
	}
}

// resetLogs starts the listing over with the current filter.
func (m *Model) resetLogs() tea.Cmd {
	m.logs = m.newLogPager()
	m.logSel = 0
	return m.loadLogsCmd()
}

// moveLogCursor moves the selection by delta and loads the next page when
// the cursor nears the end of what is loaded.
func (m *Model) moveLogCursor(delta int) tea.Cmd {
	n := m.logs.Len()
	if n == 0 {
		return nil
	}
	m.logSel = clampInt(m.logSel+delta, n-1)
	if m.logs.ShouldLoad(m.logSel) {
		return m.loadLogsCmd()
	}
	return nil
}

// logRows is how many log lines fit on screen.
func (m Model) logRows() int {
	return max(m.bodyHeight()-1, 1)
}

func logLevelStyle(level string) lipgloss.Style {
	switch strings.ToLower(level) {
	case "error", "fatal", "critical":
		return StatusOfflineStyle
	case "warn", "warning":
		return StatusWarnStyle
	case "debug", "trace":
		return MutedStyle
	default:
		return StatusOnlineStyle
	}
}

// renderLogs renders the log listing around the cursor.
func (m Model) renderLogs() string {
	items := m.logs.Items()
	filter := "level: " + logLevels[m.logLevel]

	status := fmt.Sprintf("%d of %d", len(items), m.logs.Total())
	switch {
	case m.logs.Loading():
		status += ", loading..."
	case m.logs.Err() != nil:
		status += ", " + errorLine(m.logs.Err())
	case !m.logs.HasMore() && len(items) > 0:
		status += ", end"
	}
	head := LabelStyle.Render(filter) + "  " + MutedStyle.Render(status)

	if len(items) == 0 {
		msg := "No log entries"
		if m.logs.Loading() || (m.logs.HasMore() && m.logs.Err() == nil) {
			msg = "Loading logs..."
		}
		return head + "\n" + LabelStyle.Render(msg)
	}

	rows := m.logRows()
	start := 0
	if m.logSel >= rows {
		start = m.logSel - rows + 1
	}
	end := min(start+rows, len(items))

	width := max(m.width, detailMinWidth)
	lines := []string{head}
	for i := start; i < end; i++ {
		e := items[i]
		when := timefmt.Format(e.Timestamp.Time, m.loc, timefmt.LayoutDay)
		level := logLevelStyle(e.Level).Render(fmt.Sprintf("%-5s", strings.ToUpper(e.Level)))
		prefix := MutedStyle.Render(when) + " " + level + " " + LabelStyle.Render(fmt.Sprintf("%-10s", truncateWithEllipsis(e.AgentID, 10))) + " "
		source := ""
		if e.Source != "" {
			source = e.Source + ": "
		}
		msg := truncateWithEllipsis(source+e.Message, max(width-lipgloss.Width(prefix)-1, 10))
		line := prefix + ValueStyle.Render(msg)
		if i == m.logSel {
			line = SelectedRowStyle.Width(width).Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
