package monitor

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
)

// Card layout constants
const (
	cardGraphHeight = 2  // braille graph rows
	cardMinBarWidth = 10 // minimum graph width
)

// cardDividerStyle creates a subtle divider line with matching background
var cardDividerStyle = lipgloss.NewStyle().
	Foreground(ColorBorder).
	Background(ColorSurfaceBg)

func renderCardDivider(width int) string {
	return cardDividerStyle.Render(strings.Repeat("─", width))
}

// truncateWithEllipsis shortens s to maxLen runes.
func truncateWithEllipsis(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 3 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// renderCardLine renders a text line with proper background fill.
func renderCardLine(content string, width int) string {
	padding := ""
	if w := lipgloss.Width(content); width > w {
		padding = strings.Repeat(" ", width-w)
	}
	return lipgloss.NewStyle().Background(ColorSurfaceBg).Render(content + padding)
}

// spread places left and right on one line of the given width.
func spread(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) percentStyle(v float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(MetricColorWithThresholds(v, m.warning, m.critical))
}

// agentIndicator returns the status glyph for an agent.
func agentIndicator(a api.Agent) string {
	switch strings.ToLower(a.Status) {
	case "online":
		return StatusOnlineStyle.Render(GlyphOnline)
	case "degraded", "warning":
		return StatusWarnStyle.Render(GlyphPartial)
	default:
		return StatusOfflineStyle.Render(GlyphOffline)
	}
}

// renderCard renders one agent card for the current layout.
func (m Model) renderCard(a api.Agent, width int, selected bool) string {
	style := CardStyle.Width(width)
	if selected {
		style = CardSelectedStyle.Width(width)
	}
	innerWidth := width - 4

	name := truncateWithEllipsis(a.DisplayName(), innerWidth-2)
	lines := []string{renderCardLine(agentIndicator(a)+" "+NameStyle.Render(name), innerWidth)}

	layout := m.LayoutMode()
	if layout != LayoutMinimal {
		meta := strings.TrimSpace(strings.Join([]string{a.Platform, a.IP}, "  "))
		if meta != "" {
			lines = append(lines, renderCardLine(MutedStyle.Render(truncateWithEllipsis(meta, innerWidth)), innerWidth))
		}
	}
	lines = append(lines, renderCardDivider(innerWidth))

	latest, ok := m.cards.Latest(a.ID)
	switch {
	case !a.Online():
		seen := "never"
		if !a.LastSeen.IsZero() {
			seen = timefmt.Relative(a.LastSeen.Time, m.now())
		}
		lines = append(lines,
			renderCardLine(StatusOfflineStyle.Render("  Offline"), innerWidth),
			renderCardLine(LabelStyle.Render("  last seen "+seen), innerWidth))

	case !ok:
		lines = append(lines, renderCardLine(LabelStyle.Render("  Waiting for metrics..."), innerWidth))

	case layout == LayoutMinimal:
		lines = append(lines, renderCardLine(m.renderMinimalMetricsLine(latest, innerWidth), innerWidth))
		if values := m.cards.Values(a.ID, stream.MetricCPU); len(values) > 1 {
			spark := lipgloss.NewStyle().Foreground(ColorGraph).Render(RenderMiniSparkline(values, innerWidth))
			lines = append(lines, renderCardLine(spark, innerWidth))
		}

	default:
		graphHeight := cardGraphHeight
		if layout == LayoutCompact {
			graphHeight = 1
		}
		lines = append(lines, m.renderCardMetric(a.ID, "CPU", stream.MetricCPU, latest, innerWidth, graphHeight)...)
		lines = append(lines, renderCardDivider(innerWidth))
		lines = append(lines, m.renderCardMetric(a.ID, "RAM", stream.MetricRAM, latest, innerWidth, graphHeight)...)
		if latest.GPUPercent != nil && layout != LayoutCompact {
			lines = append(lines, renderCardDivider(innerWidth))
			lines = append(lines, m.renderCardMetric(a.ID, "GPU", stream.MetricGPU, latest, innerWidth, 1)...)
		}
		if netLine := renderCardNetworkLine(latest, innerWidth); netLine != "" {
			lines = append(lines, renderCardDivider(innerWidth), renderCardLine(netLine, innerWidth))
		}
	}

	return style.Render(strings.Join(lines, "\n"))
}

// renderCardMetric renders a percent metric header and its braille graph.
func (m Model) renderCardMetric(agentID, label string, metric stream.Metric, latest api.MetricSample, lineWidth, graphHeight int) []string {
	v := metric.Value(latest)
	pct := LabelStyle.Render("  n/a")
	if !math.IsNaN(v) {
		pct = m.percentStyle(v).Render(fmt.Sprintf("%5.1f%%", v))
	}
	lines := []string{renderCardLine(spread(LabelStyle.Render(label), pct, lineWidth), lineWidth)}

	graphWidth := max(lineWidth, cardMinBarWidth)
	values := m.cards.Values(agentID, metric)
	if len(values) > 1 {
		graph := RenderBrailleGraph(values, graphWidth, graphHeight, PercentScale, ColorGraph, m.warning, m.critical)
		for _, gl := range strings.Split(graph, "\n") {
			lines = append(lines, renderCardLine(gl, lineWidth))
		}
	} else if !math.IsNaN(v) {
		lines = append(lines, renderCardLine(CompactProgressBar(graphWidth, v, m.warning, m.critical), lineWidth))
	}
	return lines
}

// renderCardNetworkLine renders network throughput rates in a single line.
func renderCardNetworkLine(s api.MetricSample, lineWidth int) string {
	if s.NetInBytesPerSec == 0 && s.NetOutBytesPerSec == 0 {
		return ""
	}
	arrow := lipgloss.NewStyle().Foreground(ColorAccent)
	right := arrow.Render("↓") + ValueStyle.Render(FormatRate(s.NetInBytesPerSec)) + " " +
		arrow.Render("↑") + ValueStyle.Render(FormatRate(s.NetOutBytesPerSec))
	return spread(LabelStyle.Render("NET"), right, lineWidth)
}

// renderMinimalMetricsLine renders a single line with CPU and RAM percentages.
func (m Model) renderMinimalMetricsLine(s api.MetricSample, width int) string {
	cpuText := m.percentStyle(s.CPUPercent).Render(fmt.Sprintf("%.0f%%", s.CPUPercent))
	ramText := m.percentStyle(s.RAMPercent).Render(fmt.Sprintf("%.0f%%", s.RAMPercent))

	if width >= 30 {
		return fmt.Sprintf("%s %s  %s %s",
			LabelStyle.Render("CPU:"), cpuText,
			LabelStyle.Render("RAM:"), ramText)
	}
	return fmt.Sprintf("C:%s R:%s", cpuText, ramText)
}

// renderAgentCards renders the grid of agent cards.
func (m Model) renderAgentCards() string {
	switch {
	case !m.agentsLoaded && m.agentsErr != nil:
		return StatusOfflineStyle.Render("Failed to load agents: ") + LabelStyle.Render(errorLine(m.agentsErr))
	case !m.agentsLoaded:
		frame := ConnectingSpinnerFrames[m.spinnerFrame%len(ConnectingSpinnerFrames)]
		return LabelStyle.Render(frame + " Loading agents...")
	case len(m.agents) == 0:
		return LabelStyle.Render("No agents registered")
	}

	cardWidth := m.calculateCardWidth()
	cards := make([]string, 0, len(m.agents))
	for i, a := range m.agents {
		cards = append(cards, m.renderCard(a, cardWidth, i == m.selected))
	}
	return m.layoutCards(cards, cardWidth)
}

// calculateCardWidth determines the card width based on terminal width.
func (m Model) calculateCardWidth() int {
	switch {
	case m.width == 0:
		return 40
	case m.width >= BreakpointCompact:
		return 38
	default:
		return max(m.width-4, 20)
	}
}

// layoutCards arranges cards in rows based on terminal width.
func (m Model) layoutCards(cards []string, cardWidth int) string {
	if len(cards) == 0 {
		return ""
	}

	cardsPerRow := 1
	if m.width > 0 {
		// Account for card margins and borders
		cardsPerRow = max(m.width/(cardWidth+3), 1)
	}

	var rows []string
	for i := 0; i < len(cards); i += cardsPerRow {
		end := min(i+cardsPerRow, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
