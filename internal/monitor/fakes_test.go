package monitor

import (
	"context"
	"fmt"
	"net"
	"reflect"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/prefetch"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func noWait(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// fakeBackend serves canned data and records what was asked of it.
type fakeBackend struct {
	mu sync.Mutex

	agents    []api.Agent
	samples   []api.MetricSample
	processes []api.Process
	bookmarks []api.Bookmark
	logs      []api.LogEntry

	// blockViews makes LoadBookmarkView wait for its context.
	blockViews bool

	viewLoads  map[string]int
	checks     []string
	deleted    []string
	restarts   []string
	logQueries []api.LogQuery
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{viewLoads: map[string]int{}}
	b.agents = []api.Agent{
		{ID: "web-01", Name: "web-01", Status: "online", Platform: "linux"},
		{ID: "build-02", Name: "build-02", Status: "offline", LastSeen: timefmt.Time{Time: testNow.Add(-time.Hour)}},
		{ID: "db-01", Name: "db-01", Status: "online"},
	}
	for i := 0; i < 3; i++ {
		b.bookmarks = append(b.bookmarks, api.Bookmark{
			ID:      fmt.Sprintf("bm-%04d", i+1),
			Name:    fmt.Sprintf("Service %d", i+1),
			URL:     fmt.Sprintf("https://svc%d.example.com/health", i+1),
			Status:  "up",
			Enabled: true,
		})
	}
	for i := 0; i < 25; i++ {
		b.logs = append(b.logs, api.LogEntry{
			ID:        fmt.Sprintf("log-%d", i),
			AgentID:   "web-01",
			Timestamp: timefmt.Time{Time: testNow.Add(-time.Duration(i) * time.Minute)},
			Level:     []string{"info", "warn", "error"}[i%3],
			Message:   fmt.Sprintf("line %d", i),
		})
	}
	return b
}

func (b *fakeBackend) ListAgents(ctx context.Context) ([]api.Agent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.Agent(nil), b.agents...), nil
}

func (b *fakeBackend) RestartAgent(ctx context.Context, id string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.restarts = append(b.restarts, id)
	return "restart scheduled", nil
}

func (b *fakeBackend) ListProcesses(ctx context.Context, id string) ([]api.Process, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.processes, nil
}

func (b *fakeBackend) QueryMetrics(ctx context.Context, q api.MetricsQuery) (*api.Page[api.MetricSample], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &api.Page[api.MetricSample]{Items: b.samples, Total: len(b.samples)}, nil
}

func (b *fakeBackend) ListBookmarks(ctx context.Context) ([]api.Bookmark, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.Bookmark(nil), b.bookmarks...), nil
}

func (b *fakeBackend) LoadBookmarkView(ctx context.Context, id string, historyLimit int) (*api.BookmarkView, error) {
	b.mu.Lock()
	b.viewLoads[id]++
	block := b.blockViews
	b.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &api.BookmarkView{Details: api.BookmarkDetails{
		Bookmark: api.Bookmark{ID: id, Name: "view " + id, Status: "up", Enabled: true},
		Method:   "GET",
	}}, nil
}

func (b *fakeBackend) CheckBookmark(ctx context.Context, id string) (*api.CheckResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checks = append(b.checks, id)
	return &api.CheckResult{BookmarkID: id, Up: true, StatusCode: 200, ResponseMS: 42}, nil
}

func (b *fakeBackend) DeleteBookmark(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, id)
	kept := b.bookmarks[:0]
	for _, bm := range b.bookmarks {
		if bm.ID != id {
			kept = append(kept, bm)
		}
	}
	b.bookmarks = kept
	return nil
}

func (b *fakeBackend) QueryLogs(ctx context.Context, q api.LogQuery) (*api.Page[api.LogEntry], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logQueries = append(b.logQueries, q)

	var matched []api.LogEntry
	for _, e := range b.logs {
		if len(q.Levels) == 0 || e.Level == q.Levels[0] {
			matched = append(matched, e)
		}
	}
	start := min(q.Offset, len(matched))
	end := min(start+q.Limit, len(matched))
	return &api.Page[api.LogEntry]{
		Items:   matched[start:end],
		Total:   len(matched),
		HasMore: end < len(matched),
		Offset:  q.Offset,
	}, nil
}

func (b *fakeBackend) ViewLoads(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewLoads[id]
}

func (b *fakeBackend) Deleted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}

func (b *fakeBackend) LastLogQuery() api.LogQuery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logQueries[len(b.logQueries)-1]
}

// idleConn stays open until closed.
type idleConn struct {
	closed chan struct{}
	once   sync.Once
}

func (c *idleConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, net.ErrClosed
}

func (c *idleConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// fakeDialer records dialed agents and hands out idle connections.
type fakeDialer struct {
	mu     sync.Mutex
	dialed []string
}

func (d *fakeDialer) Dial(ctx context.Context, agentID string) (stream.Conn, error) {
	d.mu.Lock()
	d.dialed = append(d.dialed, agentID)
	d.mu.Unlock()
	return &idleConn{closed: make(chan struct{})}, nil
}

func (d *fakeDialer) Dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.dialed...)
}

// newTestModel builds a sized model with instant waits. Extra options are
// applied before construction.
func newTestModel(t *testing.T, b *fakeBackend, d *fakeDialer, configure ...func(*Options)) Model {
	t.Helper()
	opts := Options{
		Backend:         b,
		Dialer:          d,
		Stream:          stream.Options{Wait: noWait},
		Prefetch:        prefetch.Options{Wait: noWait},
		PrefetchEnabled: true,
		PageSize:        10,
		Location:        time.UTC,
		Logger:          logger.Noop(),
		Now:             func() time.Time { return testNow },
	}
	for _, f := range configure {
		f(&opts)
	}
	m := NewModel(context.Background(), opts)
	t.Cleanup(m.Close)

	m = update(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})
	return m
}

// update feeds msg to the model and returns the new model.
func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// updateCmd feeds msg to the model and returns the new model and command.
func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// collect runs cmd, expanding batches, with every command on its own
// goroutine, and delivers each resulting message on the channel. Timer
// commands simply deliver late or never.
func collect(cmd tea.Cmd) <-chan tea.Msg {
	out := make(chan tea.Msg, 64)
	var run func(tea.Cmd)
	run = func(c tea.Cmd) {
		if c == nil {
			return
		}
		go func() {
			msg := c()
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, sub := range batch {
					run(sub)
				}
				return
			}
			if msg != nil {
				out <- msg
			}
		}()
	}
	run(cmd)
	return out
}

// await returns the first message of type T from ch.
func await[T tea.Msg](t *testing.T, ch <-chan tea.Msg) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-ch:
			if v, ok := msg.(T); ok {
				return v
			}
		case <-timeout:
			var zero T
			require.FailNow(t, "timed out waiting for message", "%v", reflect.TypeOf(zero))
			return zero
		}
	}
}
