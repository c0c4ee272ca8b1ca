package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/api"
)

// HostAgentID is the id of the agent backed by this machine.
const HostAgentID = "local"

var demoAgents = []struct {
	id, name, host, platform string
	gpu, offline             bool
	tags                     []string
}{
	{id: "web-01", name: "web-01", host: "web-01.prod.internal", platform: "ubuntu 24.04", tags: []string{"prod", "web"}},
	{id: "web-02", name: "web-02", host: "web-02.prod.internal", platform: "ubuntu 24.04", tags: []string{"prod", "web"}},
	{id: "db-01", name: "db-01", host: "db-01.prod.internal", platform: "debian 12", tags: []string{"prod", "db"}},
	{id: "gpu-01", name: "gpu-01", host: "gpu-01.lab.internal", platform: "ubuntu 22.04", gpu: true, tags: []string{"ml"}},
	{id: "build-02", name: "build-02", host: "build-02.ci.internal", platform: "fedora 40", offline: true, tags: []string{"ci"}},
}

var demoSites = []string{
	"api", "app", "status", "docs", "auth", "cdn", "grafana", "registry",
	"git", "ci", "search", "mail", "vpn", "wiki", "billing", "shop",
	"blog", "metrics", "queue", "storage", "admin", "support", "down",
}

var demoLogLines = []struct{ level, source, msg string }{
	{"info", "systemd", "Started Daily apt upgrade and clean activities."},
	{"info", "nginx", "GET /healthz 200 1.2ms"},
	{"info", "agent", "metrics flushed to backend"},
	{"debug", "agent", "collector tick took 14ms"},
	{"warn", "kernel", "TCP: request_sock_TCP: Possible SYN flooding on port 443."},
	{"warn", "postgres", "checkpoints are occurring too frequently (24 seconds apart)"},
	{"error", "nginx", "upstream timed out (110: Connection timed out) while reading response header"},
	{"info", "sshd", "Accepted publickey for deploy from 10.0.4.12 port 51514"},
	{"error", "agent", "disk /var usage above 90%"},
	{"info", "cron", "(root) CMD (run-parts /etc/cron.hourly)"},
}

// seed fills the store with a believable fleet.
func (s *Server) seed(ctx context.Context, opts Options) {
	now := s.store.now()

	if opts.Host {
		s.store.addAgent(HostAgent(ctx, HostAgentID), NewHostSource())
	}
	for i, a := range demoAgents {
		var src Source
		if !a.offline {
			src = NewSynthetic(opts.Seed+uint64(i)+1, a.gpu)
		}
		agent := api.Agent{
			ID:       a.id,
			Name:     a.name,
			Hostname: a.host,
			Platform: a.platform,
			Version:  "1.8.2",
			IP:       fmt.Sprintf("10.0.%d.%d", 1+i/4, 10+i),
			Tags:     a.tags,
		}
		if a.offline {
			agent.LastSeen = stamp(now.Add(-3 * time.Hour))
		}
		s.store.addAgent(agent, src)
		s.store.backfill(ctx, a.id, 120, 30*time.Second)
	}

	for i := 0; i < opts.Bookmarks; i++ {
		site := demoSites[i%len(demoSites)]
		name := site
		if i >= len(demoSites) {
			name = fmt.Sprintf("%s-%d", site, i/len(demoSites)+1)
		}
		in := api.BookmarkInput{
			Name:           name,
			URL:            fmt.Sprintf("https://%s.example.com/health", name),
			TimeoutSeconds: 10,
			Enabled:        true,
		}
		if site == "down" {
			in.URL = "https://down.example.com/"
		}
		in.Normalize()
		d := s.store.createBookmark(in)
		s.seedChecks(d.ID, 30, now)
	}

	s.store.saveAlert("", api.AlertRuleInput{Name: "High CPU", Metric: "cpu", Operator: ">", Threshold: 90, DurationSeconds: 300, Enabled: true})
	s.store.saveAlert("", api.AlertRuleInput{Name: "DB memory", AgentID: "db-01", Metric: "ram", Operator: ">=", Threshold: 85, DurationSeconds: 60, Enabled: true})
	s.store.saveAlert("", api.AlertRuleInput{Name: "Agent offline", Metric: "offline", Operator: ">", Threshold: 0, DurationSeconds: 120})

	s.seedLogs(opts.Logs, now)
}

func (s *Server) seedChecks(id string, n int, now time.Time) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	st := s.store.bookmarks[id]
	for i := n; i > 0; i-- {
		at := now.Add(-time.Duration(i*st.details.IntervalSeconds) * time.Second)
		s.store.pushCheck(st, s.store.simulateCheck(st.details, at))
	}
}

func (s *Server) seedLogs(n int, now time.Time) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	ids := s.store.agentOrder
	if len(ids) == 0 {
		return
	}
	// Oldest first, since appendLog prepends.
	for i := n; i > 0; i-- {
		line := demoLogLines[s.store.rng.IntN(len(demoLogLines))]
		s.store.appendLog(api.LogEntry{
			AgentID:   ids[s.store.rng.IntN(len(ids))],
			Timestamp: stamp(now.Add(-time.Duration(i) * 20 * time.Second)),
			Level:     line.level,
			Source:    line.source,
			Message:   line.msg,
		})
	}
}
