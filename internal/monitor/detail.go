package monitor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
)

// Detail graph sizing
const (
	detailGraphHeight = 4
	detailMinWidth    = 40
	maxProcessRows    = 10
)

// metricTitles labels the detail sections.
var metricTitles = map[stream.Metric]string{
	stream.MetricCPU:       "CPU",
	stream.MetricRAM:       "Memory",
	stream.MetricGPU:       "GPU",
	stream.MetricCPUTemp:   "CPU Temp",
	stream.MetricGPUTemp:   "GPU Temp",
	stream.MetricNetIn:     "Net In",
	stream.MetricNetOut:    "Net Out",
	stream.MetricDiskRead:  "Disk Read",
	stream.MetricDiskWrite: "Disk Write",
}

func isPercentMetric(m stream.Metric) bool {
	return m == stream.MetricCPU || m == stream.MetricRAM || m == stream.MetricGPU
}

func isRateMetric(m stream.Metric) bool {
	switch m {
	case stream.MetricNetIn, stream.MetricNetOut, stream.MetricDiskRead, stream.MetricDiskWrite:
		return true
	}
	return false
}

// FormatMetric renders a reading in the metric's unit.
func FormatMetric(m stream.Metric, v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case isPercentMetric(m):
		return fmt.Sprintf("%.1f%%", v)
	case isRateMetric(m):
		return FormatRate(v)
	default:
		return fmt.Sprintf("%.0f°C", v)
	}
}

// syncDetailViewport pushes the latest detail content into the viewport.
func (m *Model) syncDetailViewport() {
	if !m.viewportReady || m.tab != TabAgents || m.viewMode != ViewDetail {
		return
	}
	m.detailViewport.SetContent(m.renderDetailContent())
}

// renderDetailView renders the focused agent: header, scrolling body, footer.
func (m Model) renderDetailView() string {
	var b strings.Builder
	b.WriteString(m.renderDetailHeader())
	b.WriteString("\n\n")
	if m.viewportReady {
		b.WriteString(m.detailViewport.View())
	} else {
		b.WriteString(m.renderDetailContent())
	}
	return b.String()
}

// renderDetailHeader shows the agent name, the stream state and the mode.
func (m Model) renderDetailHeader() string {
	name := m.detailID
	if a, ok := m.agent(m.detailID); ok {
		name = a.DisplayName()
	}
	title := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render(name)

	snap := m.stream.Snapshot()
	mode := TabStyle.Render("HISTORY " + m.historyRange.String())
	if m.live {
		mode = TabActiveStyle.Render("LIVE")
	}
	return HeaderStyle.Render(title) + "  " + m.renderStreamState(snap) + "  " + mode
}

// renderStreamState renders the connection state with a glyph.
func (m Model) renderStreamState(snap stream.Snapshot) string {
	switch snap.State {
	case stream.StateOpen:
		return StatusOnlineStyle.Render(GlyphOnline + " live")
	case stream.StateConnecting, stream.StateRetrying:
		frame := ConnectingSpinnerFrames[m.spinnerFrame%len(ConnectingSpinnerFrames)]
		text := frame + " connecting"
		if snap.State == stream.StateRetrying {
			text = fmt.Sprintf("%s reconnecting (attempt %d)", frame, snap.Attempt)
		}
		return StatusWarnStyle.Render(text)
	case stream.StateDisconnected:
		return StatusOfflineStyle.Render(GlyphOffline + " disconnected, r to retry")
	default:
		return MutedStyle.Render(GlyphOffline + " " + snap.State.String())
	}
}

// renderDetailContent renders the scrollable body of the agent view.
func (m Model) renderDetailContent() string {
	width := max(m.width-2, detailMinWidth)
	snap := m.stream.Snapshot()

	var sections []string
	if agent, ok := m.agent(m.detailID); ok {
		sections = append(sections, m.renderAgentInfo(agent, snap, width))
	}

	series, note := m.detailSeries(snap)
	if note != "" {
		sections = append(sections, LabelStyle.Render(note))
	}
	for _, metric := range stream.Metrics {
		values, ok := series.Values[metric]
		if !ok {
			continue
		}
		sections = append(sections, m.renderMetricSection(metric, values, series.Stats[metric], width))
	}

	if snap.Latest != nil && len(snap.Latest.Disks) > 0 {
		sections = append(sections, m.renderDisksSection(snap.Latest.Disks, width))
	}
	sections = append(sections, m.renderProcessesSection(width))

	return strings.Join(sections, "\n")
}

// detailSeries picks the live series or the loaded history.
func (m Model) detailSeries(snap stream.Snapshot) (stream.SeriesSnapshot, string) {
	if m.live {
		if len(snap.Series.Labels) == 0 {
			return snap.Series, "Waiting for samples..."
		}
		return snap.Series, ""
	}
	switch {
	case m.historyBusy && m.history == nil:
		return stream.SeriesSnapshot{}, "Loading history..."
	case m.historyErr != nil && m.history == nil:
		return stream.SeriesSnapshot{}, "History unavailable: " + errorLine(m.historyErr)
	case m.history == nil || m.history.Len() == 0:
		return stream.SeriesSnapshot{}, "No history in the last " + m.historyRange.String()
	}
	return m.history.Snapshot(), ""
}

func (m Model) renderAgentInfo(a api.Agent, snap stream.Snapshot, width int) string {
	lines := []string{SectionHeader("Agent", a.Status, width)}
	add := func(label, value string) {
		if value == "" {
			return
		}
		lines = append(lines, SectionContentLine(LabelStyle.Render(fmt.Sprintf("%-10s", label))+ValueStyle.Render(value), width))
	}
	add("Hostname", a.Hostname)
	add("Platform", a.Platform)
	add("Version", a.Version)
	add("IP", a.IP)
	if !a.LastSeen.IsZero() {
		add("Last seen", timefmt.Format(a.LastSeen.Time, m.loc, timefmt.LayoutFull))
	}
	if len(a.Tags) > 0 {
		add("Tags", strings.Join(a.Tags, ", "))
	}
	add("Buffered", fmt.Sprintf("%d samples", snap.Count))
	if snap.LastErr != nil && snap.State != stream.StateOpen {
		add("Error", truncateWithEllipsis(errorLine(snap.LastErr), width-16))
	}
	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

func (m Model) renderMetricSection(metric stream.Metric, values []float64, st stream.Stats, width int) string {
	inner := width - 4
	lines := []string{SectionHeader(metricTitles[metric], FormatMetric(metric, st.Last), width)}

	scale := AutoScale(values)
	switch {
	case isPercentMetric(metric):
		scale = PercentScale
	case !isRateMetric(metric):
		// Temperatures read as degrees above zero; give the axis headroom.
		scale.Max = math.Max(scale.Max, 100)
	}
	graph := RenderBrailleGraph(values, inner, detailGraphHeight, scale, ColorGraph, m.warning, m.critical)
	for _, gl := range strings.Split(graph, "\n") {
		lines = append(lines, SectionContentLine(gl, width))
	}

	stats := fmt.Sprintf("min %s  avg %s  max %s  (%d pts)",
		FormatMetric(metric, st.Min), FormatMetric(metric, st.Avg), FormatMetric(metric, st.Max), st.Count)
	lines = append(lines, SectionContentLine(MutedStyle.Render(stats), width), SectionFooter(width))
	return strings.Join(lines, "\n")
}

func (m Model) renderDisksSection(disks []api.DiskUsage, width int) string {
	inner := width - 4
	lines := []string{SectionHeader("Disks", fmt.Sprintf("%d", len(disks)), width)}

	labelWidth := 12
	barWidth := max(inner-labelWidth-28, 10)
	for _, d := range disks {
		label := LabelStyle.Render(fmt.Sprintf("%-*s", labelWidth, truncateWithEllipsis(d.Mount, labelWidth)))
		bar := CompactProgressBar(barWidth, d.Percent, m.warning, m.critical)
		pct := m.percentStyle(d.Percent).Render(fmt.Sprintf("%5.1f%%", d.Percent))
		size := MutedStyle.Render(fmt.Sprintf(" %s/%s", formatBytes(int64(d.UsedBytes)), formatBytes(int64(d.TotalBytes))))
		lines = append(lines, SectionContentLine(label+bar+" "+pct+size, width))
	}
	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

func (m Model) renderProcessesSection(width int) string {
	inner := width - 4
	procs := append([]api.Process(nil), m.processes...)
	sort.SliceStable(procs, func(i, j int) bool { return procs[i].CPUPercent > procs[j].CPUPercent })

	lines := []string{SectionHeader("Processes", fmt.Sprintf("%d", len(procs)), width)}
	if len(procs) == 0 {
		lines = append(lines, SectionContentLine(MutedStyle.Render("No process data"), width))
	} else {
		header := fmt.Sprintf("%7s  %-12s %6s %6s  %s", "PID", "USER", "CPU%", "MEM%", "NAME")
		lines = append(lines, SectionContentLine(LabelStyle.Render(header), width))
		for _, p := range procs[:min(len(procs), maxProcessRows)] {
			cmd := p.Name
			if p.Command != "" {
				cmd = p.Command
			}
			row := fmt.Sprintf("%7d  %-12s ", p.PID, truncateWithEllipsis(p.User, 12)) +
				m.percentStyle(p.CPUPercent).Render(fmt.Sprintf("%6.1f", p.CPUPercent)) + " " +
				fmt.Sprintf("%6.1f  ", p.MemPercent)
			cmd = truncateWithEllipsis(cmd, max(inner-lipgloss.Width(row), 8))
			lines = append(lines, SectionContentLine(row+ValueStyle.Render(cmd), width))
		}
	}
	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}
