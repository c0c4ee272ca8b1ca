// Package demo is an in-process fleet backend. It serves the same REST and
// WebSocket surface the real backend does, from an in-memory store seeded
// with a handful of agents, monitors, alert rules and logs. `fleetwatch demo`
// runs it, and backend-facing tests use it through httptest.
package demo

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
)

// Defaults for Options.
const (
	DefaultInterval  = time.Second
	DefaultBookmarks = 23
	DefaultLogs      = 500

	// processEvery is how many metric frames go by between process frames.
	processEvery = 5
)

// Options configure a demo server.
type Options struct {
	// Secret signs tokens. A random key is used when empty.
	Secret []byte

	// Interval between streamed samples.
	Interval time.Duration

	// Latency is added to monitor detail and history responses so
	// background prefetch is visible in the dashboard.
	Latency time.Duration

	// Host adds an agent reporting this machine's real metrics.
	Host bool

	Seed      uint64
	Bookmarks int
	Logs      int

	Logger logger.Logger
	Now    func() time.Time
}

// Server is the demo backend.
type Server struct {
	engine   *gin.Engine
	store    *store
	hub      *hub
	secret   []byte
	interval time.Duration
	latency  time.Duration
	log      logger.Logger

	upgrader websocket.Upgrader
	streams  atomic.Bool
}

// New builds a seeded demo server.
func New(ctx context.Context, opts Options) *Server {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Bookmarks < 0 {
		opts.Bookmarks = 0
	} else if opts.Bookmarks == 0 {
		opts.Bookmarks = DefaultBookmarks
	}
	if opts.Logs == 0 {
		opts.Logs = DefaultLogs
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.Secret) == 0 {
		opts.Secret = randomSecret()
	}

	s := &Server{
		store:    newStore(opts.Seed, opts.Now),
		hub:      newHub(),
		secret:   opts.Secret,
		interval: opts.Interval,
		latency:  opts.Latency,
		log:      logger.OrDefault(opts.Logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.streams.Store(true)
	s.seed(ctx, opts)
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler serving the API and streams.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// SetStreamsEnabled makes new stream connections fail with 503 while false.
// Existing connections are left alone; use DropStreams for those.
func (s *Server) SetStreamsEnabled(enabled bool) {
	s.streams.Store(enabled)
}

// DropStreams cuts every open stream without a close frame and returns how
// many there were.
func (s *Server) DropStreams() int {
	return s.hub.drop(false)
}

// StreamClients returns the open stream count for agentID ("" for all).
func (s *Server) StreamClients(agentID string) int {
	return s.hub.count(agentID)
}

// Close ends every stream with a going-away frame.
func (s *Server) Close() {
	s.hub.drop(true)
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	// Ids may contain escaped slashes.
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
	})

	a := r.Group("/api", s.requireAuth())
	a.GET("/agents", s.listAgents)
	a.GET("/agents/:id", s.getAgent)
	a.POST("/agents/:id/restart", s.restartAgent)
	a.GET("/agents/:id/processes", s.agentProcesses)
	a.GET("/metrics", s.queryMetrics)
	a.GET("/logs", s.queryLogs)

	a.GET("/bookmarks", s.listBookmarks)
	a.POST("/bookmarks", s.createBookmark)
	a.GET("/bookmarks/:id", s.getBookmark)
	a.PUT("/bookmarks/:id", s.updateBookmark)
	a.DELETE("/bookmarks/:id", s.deleteBookmark)
	a.GET("/bookmarks/:id/history", s.bookmarkHistory)
	a.POST("/bookmarks/:id/check", s.checkBookmark)

	a.GET("/alerts", s.listAlerts)
	a.POST("/alerts", s.createAlert)
	a.PUT("/alerts/:id", s.updateAlert)
	a.DELETE("/alerts/:id", s.deleteAlert)

	r.GET("/ws/agents/:id/metrics", s.requireAuth(), s.stream)
	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func respond(c *gin.Context, key string, v any) {
	c.JSON(http.StatusOK, gin.H{"success": true, key: v})
}

// wait sleeps for the configured latency unless the client goes away.
func (s *Server) wait(c *gin.Context) {
	if s.latency <= 0 {
		return
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-t.C:
	case <-c.Request.Context().Done():
	}
}

// Agents

func (s *Server) listAgents(c *gin.Context) {
	respond(c, "agents", s.store.listAgents())
}

func (s *Server) getAgent(c *gin.Context) {
	agent, _, found := s.store.agent(c.Param("id"))
	if !found {
		fail(c, http.StatusNotFound, "agent not found")
		return
	}
	respond(c, "agent", agent)
}

func (s *Server) restartAgent(c *gin.Context) {
	agent, src, found := s.store.agent(c.Param("id"))
	if !found {
		fail(c, http.StatusNotFound, "agent not found")
		return
	}
	if src == nil {
		fail(c, http.StatusConflict, "agent is offline")
		return
	}
	s.store.log(agent.ID, "warn", "agent", "restart requested by "+c.GetString("user"))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "restart scheduled for " + agent.DisplayName()})
}

func (s *Server) agentProcesses(c *gin.Context) {
	_, src, found := s.store.agent(c.Param("id"))
	if !found {
		fail(c, http.StatusNotFound, "agent not found")
		return
	}
	if src == nil {
		fail(c, http.StatusConflict, "agent is offline")
		return
	}
	procs, err := src.Processes(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	respond(c, "processes", procs)
}

// Paginated queries

type window struct {
	start, end    time.Time
	limit, offset int
}

func parseWindow(c *gin.Context) (window, bool) {
	var w window
	var err error
	if v := c.Query("start_time"); v != "" {
		if w.start, err = timefmt.Parse(v); err != nil {
			fail(c, http.StatusBadRequest, "bad start_time: "+err.Error())
			return w, false
		}
	}
	if v := c.Query("end_time"); v != "" {
		if w.end, err = timefmt.Parse(v); err != nil {
			fail(c, http.StatusBadRequest, "bad end_time: "+err.Error())
			return w, false
		}
	}
	w.limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(api.DefaultPageSize)))
	w.offset, _ = strconv.Atoi(c.Query("offset"))
	if w.limit <= 0 || w.limit > 1000 {
		w.limit = api.DefaultPageSize
	}
	if w.offset < 0 {
		w.offset = 0
	}
	return w, true
}

// page writes one slice of items in the `{key: [...], total_count, has_more}` shape.
func page[T any](c *gin.Context, key string, items []T, w window) {
	total := len(items)
	start := min(w.offset, total)
	end := min(start+w.limit, total)
	out := items[start:end]
	if out == nil {
		out = []T{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		key:           out,
		"total_count": total,
		"has_more":    end < total,
	})
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) queryMetrics(c *gin.Context) {
	w, valid := parseWindow(c)
	if !valid {
		return
	}
	page(c, "metrics", s.store.queryMetrics(splitList(c.Query("agent_ids")), w.start, w.end), w)
}

func (s *Server) queryLogs(c *gin.Context) {
	w, valid := parseWindow(c)
	if !valid {
		return
	}
	entries := s.store.queryLogs(logFilter{
		agents: splitList(c.Query("agent_ids")),
		levels: splitList(strings.ToLower(c.Query("levels"))),
		search: strings.TrimSpace(c.Query("search")),
		start:  w.start,
		end:    w.end,
	})
	page(c, "logs", entries, w)
}

// Bookmarks

func (s *Server) listBookmarks(c *gin.Context) {
	respond(c, "bookmarks", s.store.listBookmarks())
}

func (s *Server) getBookmark(c *gin.Context) {
	s.wait(c)
	d, found := s.store.bookmark(c.Param("id"))
	if !found {
		fail(c, http.StatusNotFound, "bookmark not found")
		return
	}
	respond(c, "bookmark", d)
}

func (s *Server) bookmarkHistory(c *gin.Context) {
	s.wait(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	checks, found := s.store.bookmarkChecks(c.Param("id"), limit)
	if !found {
		fail(c, http.StatusNotFound, "bookmark not found")
		return
	}
	respond(c, "history", checks)
}

func bindBookmark(c *gin.Context) (api.BookmarkInput, bool) {
	var in api.BookmarkInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid body: "+err.Error())
		return in, false
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return in, false
	}
	return in, true
}

func (s *Server) createBookmark(c *gin.Context) {
	in, valid := bindBookmark(c)
	if !valid {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "bookmark": s.store.createBookmark(in)})
}

func (s *Server) updateBookmark(c *gin.Context) {
	in, valid := bindBookmark(c)
	if !valid {
		return
	}
	d, found := s.store.updateBookmark(c.Param("id"), in)
	if !found {
		fail(c, http.StatusNotFound, "bookmark not found")
		return
	}
	respond(c, "bookmark", d)
}

func (s *Server) deleteBookmark(c *gin.Context) {
	if !s.store.deleteBookmark(c.Param("id")) {
		fail(c, http.StatusNotFound, "bookmark not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "deleted"})
}

func (s *Server) checkBookmark(c *gin.Context) {
	r, found := s.store.check(c.Param("id"))
	if !found {
		fail(c, http.StatusNotFound, "bookmark not found")
		return
	}
	respond(c, "result", r)
}

// Alerts

func (s *Server) listAlerts(c *gin.Context) {
	respond(c, "alerts", s.store.listAlerts())
}

func bindAlert(c *gin.Context) (api.AlertRuleInput, bool) {
	var in api.AlertRuleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid body: "+err.Error())
		return in, false
	}
	if err := in.Validate(); err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return in, false
	}
	return in, true
}

func (s *Server) createAlert(c *gin.Context) {
	in, valid := bindAlert(c)
	if !valid {
		return
	}
	rule, _ := s.store.saveAlert("", in)
	c.JSON(http.StatusCreated, gin.H{"success": true, "alert": rule})
}

func (s *Server) updateAlert(c *gin.Context) {
	in, valid := bindAlert(c)
	if !valid {
		return
	}
	rule, found := s.store.saveAlert(c.Param("id"), in)
	if !found {
		fail(c, http.StatusNotFound, "alert not found")
		return
	}
	respond(c, "alert", rule)
}

func (s *Server) deleteAlert(c *gin.Context) {
	if !s.store.deleteAlert(c.Param("id")) {
		fail(c, http.StatusNotFound, "alert not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "deleted"})
}

// Streaming

type processFrame struct {
	Type      string        `json:"type"`
	Processes []api.Process `json:"processes"`
}

func (s *Server) stream(c *gin.Context) {
	id := c.Param("id")
	if !s.streams.Load() {
		fail(c, http.StatusServiceUnavailable, "streaming unavailable")
		return
	}
	_, src, found := s.store.agent(id)
	if !found {
		fail(c, http.StatusNotFound, "agent not found")
		return
	}
	if src == nil {
		fail(c, http.StatusConflict, "agent is offline")
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("stream upgrade for %s failed: %v", id, err)
		return
	}
	s.hub.add(id, conn)
	defer s.hub.remove(conn)
	s.log.Debug("stream opened for %s", id)

	// The client never sends data; reading is how a close is noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Debug("stream for %s ended: %v", id, err)
				}
				return
			}
		}
	}()

	ctx := c.Request.Context()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		if err := s.sendSample(ctx, conn, id, src); err != nil {
			return
		}
		if tick%processEvery == 0 {
			if err := s.sendProcesses(ctx, conn, src); err != nil {
				return
			}
		}

		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) sendSample(ctx context.Context, conn *websocket.Conn, id string, src Source) error {
	sample, err := src.Sample(ctx, s.store.now())
	if err != nil {
		s.log.Warn("sampling %s: %v", id, err)
		return nil
	}
	s.store.record(id, sample)
	sample.AgentID = id
	return writeJSON(conn, sample)
}

func (s *Server) sendProcesses(ctx context.Context, conn *websocket.Conn, src Source) error {
	procs, err := src.Processes(ctx)
	if err != nil {
		return nil
	}
	return writeJSON(conn, processFrame{Type: "processes", Processes: procs})
}

func writeJSON(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}
