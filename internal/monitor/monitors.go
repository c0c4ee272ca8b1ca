package monitor

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
)

const maxCheckRows = 8

func (m Model) loadBookmarksCmd() tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		bookmarks, err := backend.ListBookmarks(ctx)
		return bookmarksMsg{bookmarks: bookmarks, err: err}
	}
}

// handleBookmarks stores a fresh listing, starts a prefetch of every monitor
// when none is running and shows the selected monitor.
func (m *Model) handleBookmarks(msg bookmarksMsg) tea.Cmd {
	if msg.err != nil {
		m.bookmarksErr = msg.err
		if m.bookmarks != nil {
			m.showError(msg.err)
		}
		return nil
	}

	selectedID := m.selectedBookmarkID()
	m.bookmarks = msg.bookmarks
	m.bookmarksErr = nil
	m.bookmarkSel = 0
	for i, b := range m.bookmarks {
		if b.ID == selectedID {
			m.bookmarkSel = i
			break
		}
	}

	var cmds []tea.Cmd
	if m.tab == TabMonitors && m.prefetchEnabled && !m.monitors.Running() {
		cmds = append(cmds, m.prefetchCmd())
	}
	if m.bookmarkView == nil || m.bookmarkView.Details.ID != m.selectedBookmarkID() {
		cmds = append(cmds, m.showBookmark())
	}
	return tea.Batch(cmds...)
}

// prefetchCmd loads every monitor's detail in the background. Leaving the
// tab cancels it.
func (m Model) prefetchCmd() tea.Cmd {
	ids := make([]string, len(m.bookmarks))
	for i, b := range m.bookmarks {
		ids[i] = b.ID
	}
	if len(ids) == 0 {
		return nil
	}
	ctx, p := m.ctx, m.monitors
	return func() tea.Msg {
		return prefetchDoneMsg(p.PrefetchAll(ctx, ids))
	}
}

func (m Model) selectedBookmarkID() string {
	if m.bookmarkSel >= 0 && m.bookmarkSel < len(m.bookmarks) {
		return m.bookmarks[m.bookmarkSel].ID
	}
	return ""
}

// showBookmark displays the selected monitor, straight from the cache when
// the prefetch already has it.
func (m *Model) showBookmark() tea.Cmd {
	id := m.selectedBookmarkID()
	m.bookmarkErr = nil
	if id == "" {
		m.bookmarkView = nil
		return nil
	}
	if view, ok := m.monitors.Cache().Get(id); ok {
		m.bookmarkView = view
		m.bookmarkBusy = false
		return nil
	}

	m.bookmarkBusy = true
	ctx, p := m.ctx, m.monitors
	return func() tea.Msg {
		view, err := p.Load(ctx, id)
		return bookmarkViewMsg{id: id, view: view, err: err}
	}
}

func (m *Model) handleBookmarkView(msg bookmarkViewMsg) {
	if msg.id != m.selectedBookmarkID() {
		return
	}
	m.bookmarkBusy = false
	if msg.err != nil {
		m.bookmarkErr = msg.err
		m.showError(msg.err)
		return
	}
	m.bookmarkView = msg.view
}

// checkSelected runs a check now and reloads the monitor afterwards.
func (m *Model) checkSelected() tea.Cmd {
	id := m.selectedBookmarkID()
	if id == "" {
		return nil
	}
	m.showInfo("Checking " + m.bookmarks[m.bookmarkSel].Name + "...")

	ctx, backend, p := m.ctx, m.backend, m.monitors
	return func() tea.Msg {
		result, err := backend.CheckBookmark(ctx, id)
		if err != nil {
			return checkMsg{id: id, err: err}
		}
		view, err := p.Reload(ctx, id)
		return checkMsg{id: id, result: result, view: view, err: err}
	}
}

func (m *Model) handleCheck(msg checkMsg) tea.Cmd {
	if msg.err != nil {
		m.showError(msg.err)
		return nil
	}
	if msg.result != nil {
		if msg.result.Up {
			m.showInfo(fmt.Sprintf("Up: %d in %.0fms", msg.result.StatusCode, msg.result.ResponseMS))
		} else {
			reason := msg.result.Error
			if reason == "" {
				reason = fmt.Sprintf("status %d", msg.result.StatusCode)
			}
			m.toast = &toast{text: "Down: " + reason, isError: true, expires: m.now().Add(toastDuration)}
		}
	}
	if msg.id == m.selectedBookmarkID() && msg.view != nil {
		m.bookmarkView = msg.view
	}
	// The list carries status and last check too.
	return m.loadBookmarksCmd()
}

// confirmDelete asks for a second press before deleting the selected monitor.
func (m *Model) confirmDelete(pending string) tea.Cmd {
	id := m.selectedBookmarkID()
	if id == "" {
		return nil
	}
	name := m.bookmarks[m.bookmarkSel].Name

	key := "delete:" + id
	if pending != key {
		m.confirm = key
		m.showInfo("Press d again to delete " + name)
		return nil
	}

	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		return deleteMsg{id: id, name: name, err: backend.DeleteBookmark(ctx, id)}
	}
}

func (m *Model) handleDelete(msg deleteMsg) tea.Cmd {
	if msg.err != nil {
		m.showError(msg.err)
		return nil
	}
	m.monitors.Invalidate(msg.id)
	if m.bookmarkView != nil && m.bookmarkView.Details.ID == msg.id {
		m.bookmarkView = nil
	}
	m.showInfo("Deleted " + msg.name)
	return m.loadBookmarksCmd()
}

// bookmarkIndicator returns the status glyph for a monitor.
func bookmarkIndicator(b api.Bookmark) string {
	switch {
	case !b.Enabled:
		return MutedStyle.Render(GlyphDisabled)
	case b.Up():
		return StatusOnlineStyle.Render(GlyphOnline)
	case strings.EqualFold(b.Status, "down"):
		return StatusOfflineStyle.Render(GlyphOffline)
	default:
		return MutedStyle.Render(GlyphPartial)
	}
}

// renderMonitors renders the monitor list beside the selected monitor.
func (m Model) renderMonitors() string {
	switch {
	case m.bookmarks == nil && m.bookmarksErr != nil:
		return StatusOfflineStyle.Render("Failed to load monitors: ") + LabelStyle.Render(errorLine(m.bookmarksErr))
	case m.bookmarks == nil:
		return LabelStyle.Render("Loading monitors...")
	case len(m.bookmarks) == 0:
		return LabelStyle.Render("No monitors yet. Add one with: fleetwatch bookmarks add")
	}

	width := max(m.width, detailMinWidth)
	listWidth := min(max(width/3, 28), 48)
	if m.LayoutMode() == LayoutMinimal {
		return m.renderBookmarkList(width)
	}
	list := m.renderBookmarkList(listWidth)
	pane := m.renderBookmarkPane(width - listWidth - 2)
	return lipgloss.JoinHorizontal(lipgloss.Top, list, "  ", pane)
}

func (m Model) renderBookmarkList(width int) string {
	rows := max(m.bodyHeight(), 3)
	start := 0
	if m.bookmarkSel >= rows {
		start = m.bookmarkSel - rows + 1
	}
	end := min(start+rows, len(m.bookmarks))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		b := m.bookmarks[i]
		latency := ""
		if b.ResponseMS > 0 {
			latency = fmt.Sprintf("%.0fms", b.ResponseMS)
		}
		name := truncateWithEllipsis(b.Name, width-4-len(latency)-1)
		line := spread(bookmarkIndicator(b)+" "+name, MutedStyle.Render(latency), width-1)
		if i == m.bookmarkSel {
			line = SelectedRowStyle.Width(width).Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderBookmarkPane(width int) string {
	switch {
	case m.bookmarkView == nil && m.bookmarkBusy:
		return LabelStyle.Render("Loading...")
	case m.bookmarkView == nil && m.bookmarkErr != nil:
		return StatusOfflineStyle.Render(errorLine(m.bookmarkErr))
	case m.bookmarkView == nil:
		return ""
	}

	d := m.bookmarkView.Details
	lines := []string{SectionHeader(d.Name, strings.ToUpper(d.Status), width)}
	add := func(label, value string) {
		lines = append(lines, SectionContentLine(LabelStyle.Render(fmt.Sprintf("%-10s", label))+ValueStyle.Render(value), width))
	}
	add("URL", truncateWithEllipsis(d.URL, width-16))
	add("Check", fmt.Sprintf("%s every %ds, timeout %ds, expect %d", d.Method, d.IntervalSeconds, d.TimeoutSeconds, d.ExpectedStatus))
	add("Uptime", fmt.Sprintf("%.2f%%", d.UptimePercent))
	if !d.LastCheck.IsZero() {
		add("Last", timefmt.Relative(d.LastCheck.Time, m.now()))
	}
	if !d.Enabled {
		add("State", "disabled")
	}

	history := m.bookmarkView.History
	if len(history) > 0 {
		// History arrives newest first; graphs read left to right.
		times := make([]float64, len(history))
		for i, c := range history {
			times[len(history)-1-i] = c.ResponseMS
		}
		lines = append(lines, SectionContentLine(MutedStyle.Render("Response time"), width))
		graph := RenderBrailleGraph(times, width-4, 2, AutoScale(times), ColorGraph, m.warning, m.critical)
		for _, gl := range strings.Split(graph, "\n") {
			lines = append(lines, SectionContentLine(gl, width))
		}
		for _, c := range history[:min(len(history), maxCheckRows)] {
			glyph := StatusOnlineStyle.Render(GlyphOnline)
			result := fmt.Sprintf("%d %6.0fms", c.StatusCode, c.ResponseMS)
			if !c.Up {
				glyph = StatusOfflineStyle.Render(GlyphOffline)
				if c.Error != "" {
					result = c.Error
				}
			}
			when := timefmt.Format(c.CheckedAt.Time, m.loc, timefmt.LayoutDay)
			lines = append(lines, SectionContentLine(glyph+" "+MutedStyle.Render(when)+"  "+truncateWithEllipsis(result, width-24), width))
		}
	}
	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// prefetchStatus summarizes background loading for the header.
func (m Model) prefetchStatus() string {
	if !m.prefetchEnabled || len(m.bookmarks) == 0 {
		return ""
	}
	cached := m.monitors.Cache().Len()
	if m.monitors.Running() {
		return fmt.Sprintf("prefetching %d/%d", cached, len(m.bookmarks))
	}
	if m.prefetchResult != nil && m.prefetchResult.Failed > 0 {
		return fmt.Sprintf("cached %d/%d, %d failed", cached, len(m.bookmarks), m.prefetchResult.Failed)
	}
	return fmt.Sprintf("cached %d/%d", cached, len(m.bookmarks))
}
