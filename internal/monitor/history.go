package monitor

import (
	"sort"

	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
)

// cardHistorySize is how many recent samples each agent card plots.
const cardHistorySize = 30

// cardHistory holds the recent samples per agent behind the card grid,
// oldest first. It is rebuilt from one metrics query on every refresh, so
// unlike the focused agent's stream it needs no eviction bookkeeping.
type cardHistory map[string][]api.MetricSample

// groupSamples splits a mixed page of samples by agent, sorts each run by
// time and keeps the newest cardHistorySize.
func groupSamples(samples []api.MetricSample) cardHistory {
	h := cardHistory{}
	for _, s := range samples {
		if s.AgentID == "" {
			continue
		}
		h[s.AgentID] = append(h[s.AgentID], s)
	}
	for id, run := range h {
		sort.SliceStable(run, func(i, j int) bool {
			return run[i].Timestamp.Before(run[j].Timestamp.Time)
		})
		if len(run) > cardHistorySize {
			run = run[len(run)-cardHistorySize:]
		}
		h[id] = run
	}
	return h
}

// Latest returns the newest sample for an agent.
func (h cardHistory) Latest(agentID string) (api.MetricSample, bool) {
	run := h[agentID]
	if len(run) == 0 {
		return api.MetricSample{}, false
	}
	return run[len(run)-1], true
}

// Values returns one metric's readings for an agent, oldest first.
func (h cardHistory) Values(agentID string, m stream.Metric) []float64 {
	run := h[agentID]
	out := make([]float64, len(run))
	for i, s := range run {
		out[i] = m.Value(s)
	}
	return out
}
