package monitor

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/fleetwatch/internal/prefs"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
)

// Tab is one of the dashboard's top-level views.
type Tab int

const (
	TabAgents Tab = iota
	TabMonitors
	TabLogs

	numTabs
)

// String returns the tab's name as stored in the prefs file.
func (t Tab) String() string {
	switch t {
	case TabAgents:
		return prefs.TabAgents
	case TabMonitors:
		return prefs.TabMonitors
	case TabLogs:
		return prefs.TabLogs
	default:
		return prefs.TabAgents
	}
}

// Title is the label shown in the tab bar.
func (t Tab) Title() string {
	switch t {
	case TabMonitors:
		return "Monitors"
	case TabLogs:
		return "Logs"
	default:
		return "Agents"
	}
}

// Next cycles forward through the tabs.
func (t Tab) Next() Tab { return (t + 1) % numTabs }

// Prev cycles backward through the tabs.
func (t Tab) Prev() Tab { return (t + numTabs - 1) % numTabs }

// ParseTab maps a prefs value onto a Tab. Unknown names give TabAgents.
func ParseTab(name string) Tab {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case prefs.TabMonitors:
		return TabMonitors
	case prefs.TabLogs:
		return TabLogs
	default:
		return TabAgents
	}
}

// SortOrder defines how agents are sorted in the dashboard.
type SortOrder int

const (
	SortByStatus SortOrder = iota // online first, then by name
	SortByName
	SortByCPU
	SortByRAM

	numSortOrders
)

// String returns a human-readable label for the sort order.
func (s SortOrder) String() string {
	switch s {
	case SortByName:
		return "name"
	case SortByCPU:
		return "CPU"
	case SortByRAM:
		return "RAM"
	default:
		return "status"
	}
}

// Next cycles to the next sort order.
func (s SortOrder) Next() SortOrder {
	return (s + 1) % numSortOrders
}

// ViewMode defines whether the agents tab shows the card grid or one agent.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyRefresh     = "r"
	KeyCycleSort   = "s"
	KeySelectPrev  = "up"
	KeySelectPrevK = "k"
	KeySelectNext  = "down"
	KeySelectNextJ = "j"
	KeySelectFirst = "home"
	KeySelectLast  = "end"
	KeyPageDown    = "pgdown"
	KeyPageUp      = "pgup"
	KeyExpand      = "enter"
	KeyCollapse    = "esc"
	KeyToggleHelp  = "?"
	KeyNextTab     = "tab"
	KeyPrevTab     = "shift+tab"
	KeyTabAgents   = "1"
	KeyTabMonitors = "2"
	KeyTabLogs     = "3"
	KeyToggleLive  = "l"
	KeyRestart     = "x"
	KeyCheckNow    = "c"
	KeyDelete      = "d"
	KeyLevelFilter = "f"
)

// HandleKeyMsg processes keyboard input. It reports whether the key was
// handled along with any command to run.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	// Help toggle takes priority
	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}
	if m.showHelp && key == KeyCollapse {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		m.Close()
		return true, tea.Quit
	case KeyNextTab:
		return true, m.switchTab(m.tab.Next())
	case KeyPrevTab:
		return true, m.switchTab(m.tab.Prev())
	case KeyTabAgents:
		return true, m.switchTab(TabAgents)
	case KeyTabMonitors:
		return true, m.switchTab(TabMonitors)
	case KeyTabLogs:
		return true, m.switchTab(TabLogs)
	}

	// A confirmation only survives the very next key press.
	pending := m.confirm
	m.confirm = ""

	switch m.tab {
	case TabMonitors:
		return m.handleMonitorsKey(key, pending)
	case TabLogs:
		return m.handleLogsKey(key)
	default:
		if m.viewMode == ViewDetail {
			return m.handleDetailKey(msg, pending)
		}
		return m.handleAgentsKey(key, pending)
	}
}

func (m *Model) handleAgentsKey(key, pending string) (bool, tea.Cmd) {
	switch key {
	case KeyRefresh:
		return true, m.refreshAgentsCmd()

	case KeyCycleSort:
		m.sortOrder = m.sortOrder.Next()
		m.sortAgents()
		return true, nil

	case KeySelectPrev, KeySelectPrevK:
		if m.selected > 0 {
			m.selected--
		}
		return true, nil

	case KeySelectNext, KeySelectNextJ:
		if m.selected < len(m.agents)-1 {
			m.selected++
		}
		return true, nil

	case KeySelectFirst:
		m.selected = 0
		return true, nil

	case KeySelectLast:
		if len(m.agents) > 0 {
			m.selected = len(m.agents) - 1
		}
		return true, nil

	case KeyExpand:
		return true, m.openAgent()

	case KeyRestart:
		return true, m.confirmRestart(pending)
	}
	return false, nil
}

func (m *Model) handleDetailKey(msg tea.KeyMsg, pending string) (bool, tea.Cmd) {
	switch msg.String() {
	case KeyCollapse:
		m.closeAgent()
		return true, nil

	case KeyToggleLive:
		return true, m.toggleLive()

	case KeyRefresh:
		// Redial a stream that gave up; otherwise refresh the side data.
		if st := m.stream.State(); st == stream.StateDisconnected || st == stream.StateClosed {
			m.stream.Connect(m.detailID)
		}
		cmds := []tea.Cmd{m.loadProcessesCmd(m.detailID)}
		if !m.live {
			cmds = append(cmds, m.loadHistoryCmd(m.detailID))
		}
		return true, tea.Batch(cmds...)

	case KeyRestart:
		return true, m.confirmRestart(pending)
	}

	// Everything else scrolls the detail viewport.
	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return true, cmd
}

func (m *Model) handleMonitorsKey(key, pending string) (bool, tea.Cmd) {
	switch key {
	case KeyRefresh:
		return true, m.loadBookmarksCmd()

	case KeySelectPrev, KeySelectPrevK:
		if m.bookmarkSel > 0 {
			m.bookmarkSel--
			return true, m.showBookmark()
		}
		return true, nil

	case KeySelectNext, KeySelectNextJ:
		if m.bookmarkSel < len(m.bookmarks)-1 {
			m.bookmarkSel++
			return true, m.showBookmark()
		}
		return true, nil

	case KeySelectFirst:
		m.bookmarkSel = 0
		return true, m.showBookmark()

	case KeySelectLast:
		if len(m.bookmarks) > 0 {
			m.bookmarkSel = len(m.bookmarks) - 1
		}
		return true, m.showBookmark()

	case KeyCheckNow:
		return true, m.checkSelected()

	case KeyDelete:
		return true, m.confirmDelete(pending)
	}
	return false, nil
}

func (m *Model) handleLogsKey(key string) (bool, tea.Cmd) {
	page := max(m.logRows()-1, 1)
	switch key {
	case KeyRefresh:
		return true, m.resetLogs()
	case KeyLevelFilter:
		m.logLevel = (m.logLevel + 1) % len(logLevels)
		return true, m.resetLogs()
	case KeySelectPrev, KeySelectPrevK:
		return true, m.moveLogCursor(-1)
	case KeySelectNext, KeySelectNextJ:
		return true, m.moveLogCursor(1)
	case KeyPageUp:
		return true, m.moveLogCursor(-page)
	case KeyPageDown:
		return true, m.moveLogCursor(page)
	case KeySelectFirst:
		return true, m.moveLogCursor(-m.logSel)
	case KeySelectLast:
		return true, m.moveLogCursor(m.logs.Len())
	}
	return false, nil
}
