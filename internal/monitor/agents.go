package monitor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/prefs"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
)

// cardWindow is how far back the card sparklines reach.
const cardWindow = 15 * time.Minute

// refreshAgentsCmd reloads the agent list and the card sparklines.
func (m Model) refreshAgentsCmd() tea.Cmd {
	return tea.Batch(m.loadAgentsCmd(), m.loadCardsCmd())
}

func (m Model) loadAgentsCmd() tea.Cmd {
	ctx, backend, now := m.ctx, m.backend, m.now
	return func() tea.Msg {
		agents, err := backend.ListAgents(ctx)
		return agentsMsg{agents: agents, err: err, time: now()}
	}
}

func (m Model) loadCardsCmd() tea.Cmd {
	if len(m.agents) == 0 {
		return nil
	}
	ids := make([]string, 0, len(m.agents))
	for _, a := range m.agents {
		if a.Online() {
			ids = append(ids, a.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	ctx, backend := m.ctx, m.backend
	now := m.now()
	q := api.MetricsQuery{
		AgentIDs: ids,
		Start:    now.Add(-cardWindow),
		End:      now,
		Limit:    len(ids) * cardHistorySize,
	}
	return func() tea.Msg {
		page, err := backend.QueryMetrics(ctx, q)
		if err != nil {
			return cardsMsg{err: err}
		}
		return cardsMsg{samples: page.Items}
	}
}

func (m *Model) handleAgents(msg agentsMsg) {
	if msg.err != nil {
		m.agentsErr = msg.err
		if !m.agentsLoaded {
			return
		}
		m.showError(msg.err)
		return
	}
	m.agentsErr = nil
	m.agentsLoaded = true
	m.lastUpdate = msg.time

	selectedID := m.SelectedAgentID()
	m.agents = msg.agents
	m.sortAgents()
	m.selectAgent(selectedID)
}

// SelectedAgentID returns the id of the highlighted agent card.
func (m Model) SelectedAgentID() string {
	if m.selected >= 0 && m.selected < len(m.agents) {
		return m.agents[m.selected].ID
	}
	return ""
}

// OnlineCount returns the number of agents the backend reports online.
func (m Model) OnlineCount() int {
	n := 0
	for _, a := range m.agents {
		if a.Online() {
			n++
		}
	}
	return n
}

func (m *Model) selectAgent(id string) {
	for i, a := range m.agents {
		if a.ID == id {
			m.selected = i
			return
		}
	}
	m.selected = clampInt(m.selected, max(len(m.agents)-1, 0))
}

func (m Model) agent(id string) (api.Agent, bool) {
	for _, a := range m.agents {
		if a.ID == id {
			return a, true
		}
	}
	return api.Agent{}, false
}

// sortAgents orders the cards, keeping the same agent selected.
func (m *Model) sortAgents() {
	if len(m.agents) == 0 {
		return
	}
	selectedID := m.SelectedAgentID()

	name := func(a api.Agent) string { return strings.ToLower(a.DisplayName()) }
	latest := func(a api.Agent, metric stream.Metric) (float64, bool) {
		s, ok := m.cards.Latest(a.ID)
		if !ok {
			return 0, false
		}
		return metric.Value(s), true
	}
	byMetric := func(metric stream.Metric) func(i, j int) bool {
		return func(i, j int) bool {
			vi, oki := latest(m.agents[i], metric)
			vj, okj := latest(m.agents[j], metric)
			// Agents without readings go to the end
			if oki != okj {
				return oki
			}
			if vi != vj {
				return vi > vj
			}
			return name(m.agents[i]) < name(m.agents[j])
		}
	}

	switch m.sortOrder {
	case SortByName:
		sort.SliceStable(m.agents, func(i, j int) bool { return name(m.agents[i]) < name(m.agents[j]) })
	case SortByCPU:
		sort.SliceStable(m.agents, byMetric(stream.MetricCPU))
	case SortByRAM:
		sort.SliceStable(m.agents, byMetric(stream.MetricRAM))
	default:
		sort.SliceStable(m.agents, func(i, j int) bool {
			ai, aj := m.agents[i], m.agents[j]
			if ai.Online() != aj.Online() {
				return ai.Online()
			}
			return name(ai) < name(aj)
		})
	}

	m.selectAgent(selectedID)
}

// openAgent focuses the selected agent: the stream connects, and history
// loads too unless the view is live.
func (m *Model) openAgent() tea.Cmd {
	id := m.SelectedAgentID()
	if id == "" {
		return nil
	}
	if m.detailID != id {
		m.processes = nil
		m.history = nil
		m.historyErr = nil
	}
	m.viewMode = ViewDetail
	m.detailID = id
	m.detailViewport.GotoTop()

	m.stream.Connect(id)
	m.stream.SetLive(m.live)

	cmds := []tea.Cmd{m.loadProcessesCmd(id)}
	if !m.live {
		cmds = append(cmds, m.loadHistoryCmd(id))
	}
	return tea.Batch(cmds...)
}

// closeAgent tears the stream down and returns to the card grid.
func (m *Model) closeAgent() {
	m.stream.Disconnect()
	m.viewMode = ViewList
}

// toggleLive flips between the live stream and the stored history, and
// remembers the choice.
func (m *Model) toggleLive() tea.Cmd {
	m.live = !m.live
	m.stream.SetLive(m.live)

	live := m.live
	m.prefs.LiveMode = &live

	cmds := []tea.Cmd{m.savePrefsCmd()}
	if live {
		m.showInfo("Live mode")
	} else {
		m.showInfo("History mode: last " + m.historyRange.String())
		cmds = append(cmds, m.loadHistoryCmd(m.detailID))
	}
	return tea.Batch(cmds...)
}

func (m Model) savePrefsCmd() tea.Cmd {
	if m.prefsPath == "" {
		return nil
	}
	path, p := m.prefsPath, m.prefs
	return func() tea.Msg {
		return prefsSavedMsg{err: prefs.Save(path, p)}
	}
}

func (m Model) loadProcessesCmd(id string) tea.Cmd {
	if id == "" {
		return nil
	}
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		procs, err := backend.ListProcesses(ctx, id)
		return processesMsg{agentID: id, processes: procs, err: err}
	}
}

func (m *Model) loadHistoryCmd(id string) tea.Cmd {
	if id == "" {
		return nil
	}
	m.historyBusy = true
	ctx, backend := m.ctx, m.backend
	now := m.now()
	q := api.MetricsQuery{
		AgentIDs: []string{id},
		Start:    now.Add(-m.historyRange),
		End:      now,
		Limit:    m.pageSize,
	}
	return func() tea.Msg {
		page, err := backend.QueryMetrics(ctx, q)
		if err != nil {
			return historyMsg{agentID: id, err: err}
		}
		return historyMsg{agentID: id, samples: page.Items}
	}
}

func (m *Model) handleHistory(msg historyMsg) {
	if msg.agentID != m.detailID {
		return
	}
	m.historyBusy = false
	if msg.err != nil {
		m.historyErr = msg.err
		m.showError(msg.err)
		return
	}
	samples := append([]api.MetricSample(nil), msg.samples...)
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp.Time)
	})
	series := stream.NewSeries(max(len(samples), 1))
	series.Rebuild(samples)
	m.history = series
	m.historyErr = nil
}

func (m *Model) handleStreamEvent(e stream.Event) {
	if e.AgentID != m.detailID {
		return
	}
	switch e.Kind {
	case stream.EventProcesses:
		m.processes = e.Processes
	case stream.EventState:
		switch e.State {
		case stream.StateDisconnected:
			m.showError(streamGaveUp(e))
		case stream.StateOpen:
			if e.Attempt > 0 {
				m.showInfo("Stream reconnected")
			}
		}
	}
}

// confirmRestart asks for a second press before restarting the selected
// or focused agent.
func (m *Model) confirmRestart(pending string) tea.Cmd {
	id := m.SelectedAgentID()
	if m.viewMode == ViewDetail {
		id = m.detailID
	}
	agent, ok := m.agent(id)
	if !ok {
		return nil
	}

	key := "restart:" + id
	if pending != key {
		m.confirm = key
		m.showInfo("Press x again to restart " + agent.DisplayName())
		return nil
	}

	ctx, backend, name := m.ctx, m.backend, agent.DisplayName()
	return func() tea.Msg {
		message, err := backend.RestartAgent(ctx, id)
		if message == "" {
			message = "Restart requested for " + name
		}
		return restartMsg{name: name, message: message, err: err}
	}
}

// streamGaveUp describes a stream that ran out of reconnect attempts.
func streamGaveUp(e stream.Event) error {
	if e.Err == nil {
		return fmt.Errorf("stream for %s disconnected after %d attempts, press r to retry", e.AgentID, e.Attempt)
	}
	return fmt.Errorf("stream for %s disconnected after %d attempts, press r to retry: %w", e.AgentID, e.Attempt, e.Err)
}
