package demo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
)

// maxHistory bounds the stored samples per agent.
const maxHistory = 1440

type agentState struct {
	agent   api.Agent
	source  Source
	history []api.MetricSample // oldest first
}

type bookmarkState struct {
	details api.BookmarkDetails
	checks  []api.CheckResult // newest first
}

// store is the demo backend's state. Everything lives in memory and is
// lost when the process exits.
type store struct {
	mu  sync.RWMutex
	rng *rand.Rand
	now func() time.Time

	agents        map[string]*agentState
	agentOrder    []string
	bookmarks     map[string]*bookmarkState
	bookmarkOrder []string
	alerts        map[string]*api.AlertRule
	alertOrder    []string
	logs          []api.LogEntry // newest first
	nextID        int
}

func newStore(seed uint64, now func() time.Time) *store {
	return &store{
		rng:       rand.New(rand.NewPCG(seed, seed+1)),
		now:       now,
		agents:    make(map[string]*agentState),
		bookmarks: make(map[string]*bookmarkState),
		alerts:    make(map[string]*api.AlertRule),
	}
}

func (s *store) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%04d", prefix, s.nextID)
}

func stamp(t time.Time) timefmt.Time {
	return timefmt.Time{Time: t.UTC()}
}

// addAgent registers an agent. A nil source makes it offline.
func (s *store) addAgent(a api.Agent, src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src == nil {
		a.Status = "offline"
	} else if a.Status == "" {
		a.Status = "online"
	}
	if a.LastSeen.IsZero() {
		a.LastSeen = stamp(s.now())
	}
	s.agents[a.ID] = &agentState{agent: a, source: src}
	s.agentOrder = append(s.agentOrder, a.ID)
}

// backfill generates past samples at step intervals so history views have
// something to show.
func (s *store) backfill(ctx context.Context, id string, n int, step time.Duration) {
	s.mu.RLock()
	st, ok := s.agents[id]
	s.mu.RUnlock()
	if !ok || st.source == nil {
		return
	}

	start := s.now().Add(-time.Duration(n) * step)
	for i := 0; i < n; i++ {
		sample, err := st.source.Sample(ctx, start.Add(time.Duration(i)*step))
		if err != nil {
			return
		}
		s.record(id, sample)
	}
}

func (s *store) listAgents() []api.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Agent, 0, len(s.agentOrder))
	for _, id := range s.agentOrder {
		out = append(out, s.agents[id].agent)
	}
	return out
}

func (s *store) agent(id string) (api.Agent, Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.agents[id]
	if !ok {
		return api.Agent{}, nil, false
	}
	return st.agent, st.source, true
}

// record appends a sample to an agent's history and bumps last_seen.
func (s *store) record(id string, sample api.MetricSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.agents[id]
	if !ok {
		return
	}
	sample.AgentID = id
	st.history = append(st.history, sample)
	if len(st.history) > maxHistory {
		st.history = st.history[len(st.history)-maxHistory:]
	}
	st.agent.LastSeen = sample.Timestamp
}

func (s *store) queryMetrics(ids []string, start, end time.Time) []api.MetricSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(ids) == 0 {
		ids = s.agentOrder
	}
	var out []api.MetricSample
	for _, id := range ids {
		st, ok := s.agents[id]
		if !ok {
			continue
		}
		for _, m := range st.history {
			if inRange(m.Timestamp.Time, start, end) {
				out = append(out, m)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp.Time)
	})
	return out
}

func inRange(t, start, end time.Time) bool {
	return (start.IsZero() || !t.Before(start)) && (end.IsZero() || !t.After(end))
}

func (s *store) log(agentID, level, source, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLog(api.LogEntry{
		AgentID:   agentID,
		Timestamp: stamp(s.now()),
		Level:     level,
		Source:    source,
		Message:   msg,
	})
}

func (s *store) appendLog(e api.LogEntry) {
	e.ID = s.id("log")
	s.logs = append([]api.LogEntry{e}, s.logs...)
}

type logFilter struct {
	agents []string
	levels []string
	search string
	start  time.Time
	end    time.Time
}

func (s *store) queryLogs(f logFilter) []api.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(f.search)
	var out []api.LogEntry
	for _, e := range s.logs {
		if len(f.agents) > 0 && !contains(f.agents, e.AgentID) {
			continue
		}
		if len(f.levels) > 0 && !contains(f.levels, strings.ToLower(e.Level)) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Message), search) {
			continue
		}
		if !inRange(e.Timestamp.Time, f.start, f.end) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Bookmarks

func (s *store) listBookmarks() []api.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Bookmark, 0, len(s.bookmarkOrder))
	for _, id := range s.bookmarkOrder {
		out = append(out, s.bookmarks[id].details.Bookmark)
	}
	return out
}

func (s *store) bookmark(id string) (api.BookmarkDetails, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.bookmarks[id]
	if !ok {
		return api.BookmarkDetails{}, false
	}
	d := st.details
	d.UptimePercent = uptime(st.checks)
	return d, true
}

func (s *store) bookmarkChecks(id string, limit int) ([]api.CheckResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.bookmarks[id]
	if !ok {
		return nil, false
	}
	checks := st.checks
	if limit > 0 && len(checks) > limit {
		checks = checks[:limit]
	}
	return append([]api.CheckResult{}, checks...), true
}

func (s *store) createBookmark(in api.BookmarkInput) api.BookmarkDetails {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := api.BookmarkDetails{
		Bookmark:  api.Bookmark{ID: s.id("bm"), Status: "pending"},
		CreatedAt: stamp(s.now()),
	}
	applyBookmark(&d, in)
	s.bookmarks[d.ID] = &bookmarkState{details: d}
	s.bookmarkOrder = append(s.bookmarkOrder, d.ID)
	return d
}

func (s *store) updateBookmark(id string, in api.BookmarkInput) (api.BookmarkDetails, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.bookmarks[id]
	if !ok {
		return api.BookmarkDetails{}, false
	}
	applyBookmark(&st.details, in)
	return st.details, true
}

func applyBookmark(d *api.BookmarkDetails, in api.BookmarkInput) {
	d.Name = in.Name
	d.URL = in.URL
	d.Method = in.Method
	d.IntervalSeconds = in.IntervalSeconds
	d.TimeoutSeconds = in.TimeoutSeconds
	d.ExpectedStatus = in.ExpectedStatus
	d.Enabled = in.Enabled
}

func (s *store) deleteBookmark(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookmarks[id]; !ok {
		return false
	}
	delete(s.bookmarks, id)
	s.bookmarkOrder = remove(s.bookmarkOrder, id)
	return true
}

// check simulates one check of a monitor. Hosts starting with "down." always
// fail so tests and demos have a predictable outage.
func (s *store) check(id string) (api.CheckResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.bookmarks[id]
	if !ok {
		return api.CheckResult{}, false
	}
	r := s.simulateCheck(st.details, s.now())
	s.pushCheck(st, r)
	return r, true
}

func (s *store) simulateCheck(d api.BookmarkDetails, at time.Time) api.CheckResult {
	r := api.CheckResult{
		ID:         s.id("chk"),
		BookmarkID: d.ID,
		CheckedAt:  stamp(at),
		Up:         true,
		StatusCode: d.ExpectedStatus,
		ResponseMS: float64(20 + s.rng.IntN(380)),
	}
	switch {
	case strings.Contains(d.URL, "://down."):
		r.Up, r.StatusCode, r.Error = false, 503, "service unavailable"
	case s.rng.Float64() < 0.05:
		r.Up, r.StatusCode, r.ResponseMS, r.Error = false, 0, float64(d.TimeoutSeconds*1000), "timeout"
	}
	return r
}

func (s *store) pushCheck(st *bookmarkState, r api.CheckResult) {
	st.checks = append([]api.CheckResult{r}, st.checks...)
	if len(st.checks) > maxHistory {
		st.checks = st.checks[:maxHistory]
	}
	st.details.LastCheck = r.CheckedAt
	st.details.ResponseMS = r.ResponseMS
	st.details.Status = "down"
	if r.Up {
		st.details.Status = "up"
	}
}

func uptime(checks []api.CheckResult) float64 {
	if len(checks) == 0 {
		return 0
	}
	up := 0
	for _, c := range checks {
		if c.Up {
			up++
		}
	}
	return round1(float64(up) / float64(len(checks)) * 100)
}

// Alerts

func (s *store) listAlerts() []api.AlertRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.AlertRule, 0, len(s.alertOrder))
	for _, id := range s.alertOrder {
		out = append(out, *s.alerts[id])
	}
	return out
}

func (s *store) saveAlert(id string, in api.AlertRuleInput) (api.AlertRule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.alerts[id]
	if id == "" {
		rule = &api.AlertRule{ID: s.id("alert")}
		s.alerts[rule.ID] = rule
		s.alertOrder = append(s.alertOrder, rule.ID)
	} else if !ok {
		return api.AlertRule{}, false
	}

	rule.Name = in.Name
	rule.AgentID = in.AgentID
	rule.Metric = in.Metric
	rule.Operator = in.Operator
	rule.Threshold = in.Threshold
	rule.DurationSeconds = in.DurationSeconds
	rule.Enabled = in.Enabled
	rule.WebhookURL = in.WebhookURL
	return *rule, true
}

func (s *store) deleteAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[id]; !ok {
		return false
	}
	delete(s.alerts, id)
	s.alertOrder = remove(s.alertOrder, id)
	return true
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
