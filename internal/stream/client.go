// Package stream keeps a live, bounded window of metric samples for the one
// agent a view is focused on.
//
// A Client owns at most one connection at a time. Connections that drop are
// redialed with exponential backoff until the retry budget runs out; a
// connection the caller closes through Disconnect is never redialed.
package stream

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
)

var errNoConn = stderrors.New("dialer returned no connection")

// State is where a Client's connection is in its lifecycle.
type State int

const (
	StateIdle         State = iota // never connected
	StateConnecting                // dialing
	StateOpen                      // receiving
	StateRetrying                  // dropped, waiting to redial
	StateClosed                    // closed by the caller
	StateDisconnected              // gave up after the retry budget
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "live"
	case StateRetrying:
		return "reconnecting"
	case StateClosed:
		return "closed"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Active reports whether the client is connected or working on it.
func (s State) Active() bool {
	return s == StateConnecting || s == StateOpen || s == StateRetrying
}

// EventKind says what an Event carries.
type EventKind int

const (
	EventSample EventKind = iota
	EventProcesses
	EventState
)

// Event is delivered to Options.OnEvent from the reader goroutine.
type Event struct {
	Kind      EventKind
	AgentID   string
	Sample    *api.MetricSample
	Processes []api.Process
	State     State
	Attempt   int
	Delay     time.Duration // wait before the next dial, set while retrying
	Err       error
}

// Options configures a Client.
type Options struct {
	BufferSize int
	Backoff    Backoff
	Logger     logger.Logger

	// OnEvent is called for every sample, processes payload and state
	// change. It runs on the reader goroutine and must not call Connect or
	// Disconnect.
	OnEvent func(Event)

	// Wait blocks for d or until ctx is done. Tests replace it.
	Wait func(ctx context.Context, d time.Duration) error

	// Now stamps samples that arrive without a timestamp.
	Now func() time.Time
}

// Client streams samples for one agent at a time.
type Client struct {
	dialer  Dialer
	backoff Backoff
	log     logger.Logger
	onEvent func(Event)
	wait    func(ctx context.Context, d time.Duration) error
	now     func() time.Time

	// opMu serializes Connect and Disconnect so a teardown finishes before
	// the next connection starts.
	opMu sync.Mutex

	mu      sync.Mutex
	agentID string
	state   State
	attempt int
	lastErr error
	live    bool
	samples *Ring[api.MetricSample]
	series  *Series
	cancel  context.CancelFunc
	conn    Conn
	done    chan struct{}
}

// NewClient creates an idle client. Clients start in live mode.
func NewClient(d Dialer, opts Options) *Client {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Backoff.Base <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Wait == nil {
		opts.Wait = sleepCtx
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Client{
		dialer:  d,
		backoff: opts.Backoff,
		log:     logger.OrDefault(opts.Logger),
		onEvent: opts.OnEvent,
		wait:    opts.Wait,
		now:     opts.Now,
		live:    true,
		samples: NewRing[api.MetricSample](opts.BufferSize),
		series:  NewSeries(opts.BufferSize),
	}
}

// Connect starts streaming agentID. It is a no-op when that agent is already
// connected, connecting or waiting to retry. Any connection to a different
// agent is fully torn down first.
func (c *Client) Connect(agentID string) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.agentID == agentID && c.state.Active() {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.teardown()

	c.mu.Lock()
	if c.agentID != agentID {
		c.samples.Reset()
		c.series.Rebuild(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.agentID = agentID
	c.state = StateConnecting
	c.attempt = 0
	c.lastErr = nil
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	c.log.Debug("connecting stream for %s", agentID)
	c.emit(Event{Kind: EventState, AgentID: agentID, State: StateConnecting})

	go c.run(ctx, agentID, done)
}

// Disconnect closes the stream. A pending reconnect is cancelled, the
// attempt counter resets, and no redial follows.
func (c *Client) Disconnect() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	agentID, wasActive := c.teardown()
	if !wasActive {
		return
	}

	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()

	c.log.Debug("stream for %s closed", agentID)
	c.emit(Event{Kind: EventState, AgentID: agentID, State: StateClosed})
}

// teardown stops the current run, if any, and waits for its goroutine to
// exit. Must be called with opMu held.
func (c *Client) teardown() (agentID string, wasActive bool) {
	c.mu.Lock()
	cancel, conn, done := c.cancel, c.conn, c.done
	agentID = c.agentID
	c.cancel, c.conn, c.done = nil, nil, nil
	c.attempt = 0
	if cancel != nil {
		// Cancel under mu: run checks ctx under mu before publishing a new
		// conn, so it either sees the cancel or we see its conn.
		cancel()
	}
	c.mu.Unlock()

	if cancel == nil {
		return agentID, false
	}
	if conn != nil {
		_ = conn.Close()
	}
	<-done
	return agentID, true
}

// run dials, reads until the connection drops, and redials with backoff.
// It returns when ctx is cancelled or the retry budget is spent.
func (c *Client) run(ctx context.Context, agentID string, done chan struct{}) {
	defer close(done)

	for {
		conn, err := c.dialer.Dial(ctx, agentID)
		if err == nil && conn == nil {
			err = errNoConn
		}
		if ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			return
		}

		if err == nil {
			if !c.opened(ctx, agentID, conn) {
				_ = conn.Close()
				return
			}
			err = c.read(ctx, agentID, conn)
			_ = conn.Close()
			if ctx.Err() != nil {
				return
			}
			c.logDrop(agentID, err)
		}

		delay, ok := c.failed(ctx, agentID, err)
		if !ok {
			return
		}

		if err := c.wait(ctx, delay); err != nil {
			return
		}

		if !c.set(ctx, func() { c.state = StateConnecting }) {
			return
		}
		c.emit(Event{Kind: EventState, AgentID: agentID, State: StateConnecting, Attempt: c.Attempt()})
	}
}

// opened publishes conn as the live connection and resets the attempt counter.
func (c *Client) opened(ctx context.Context, agentID string, conn Conn) bool {
	var prev int
	ok := c.set(ctx, func() {
		prev = c.attempt
		c.conn = conn
		c.state = StateOpen
		c.attempt = 0
		c.lastErr = nil
	})
	if !ok {
		return false
	}

	if prev > 0 {
		c.log.Info("stream for %s reconnected after %d attempt(s)", agentID, prev)
	} else {
		c.log.Debug("stream for %s open", agentID)
	}
	c.emit(Event{Kind: EventState, AgentID: agentID, State: StateOpen})
	return true
}

// failed records an unclean close or failed dial and returns the delay before
// the next dial, or ok=false once the retry budget is spent.
func (c *Client) failed(ctx context.Context, agentID string, err error) (delay time.Duration, ok bool) {
	var attempt int
	var state State
	published := c.set(ctx, func() {
		c.conn = nil
		c.attempt++
		c.lastErr = err
		attempt = c.attempt
		if c.backoff.Exhausted(attempt) {
			state = StateDisconnected
		} else {
			state = StateRetrying
			delay = c.backoff.Delay(attempt)
		}
		c.state = state
	})
	if !published {
		return 0, false
	}

	if state == StateDisconnected {
		c.log.Error("stream for %s: giving up after %d reconnect attempts: %v", agentID, c.backoff.MaxAttempts, err)
		c.emit(Event{Kind: EventState, AgentID: agentID, State: StateDisconnected, Attempt: attempt, Err: err})
		return 0, false
	}

	c.log.Warn("stream for %s: retry %d in %s: %v", agentID, attempt, delay, err)
	c.emit(Event{Kind: EventState, AgentID: agentID, State: StateRetrying, Attempt: attempt, Delay: delay, Err: err})
	return delay, true
}

func (c *Client) logDrop(agentID string, err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.log.Info("stream for %s closed by server: %v", agentID, err)
		return
	}
	c.log.Warn("stream for %s dropped: %v", agentID, err)
}

// read consumes messages until the connection fails. Malformed messages are
// logged and dropped without closing the connection.
func (c *Client) read(ctx context.Context, agentID string, conn Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		msg, err := api.DecodeStreamMessage(data)
		if err != nil {
			c.log.Warn("stream for %s: dropping message: %v", agentID, err)
			continue
		}

		switch {
		case msg.Sample != nil:
			c.push(ctx, agentID, *msg.Sample)
		case msg.Processes != nil:
			if ctx.Err() == nil {
				c.emit(Event{Kind: EventProcesses, AgentID: agentID, Processes: msg.Processes})
			}
		}
	}
}

// push appends a sample to the buffer, evicting the oldest past capacity,
// and extends the chart series when in live mode.
func (c *Client) push(ctx context.Context, agentID string, sample api.MetricSample) {
	if sample.Timestamp.IsZero() {
		sample.Timestamp.Time = c.now()
	}
	if sample.AgentID == "" {
		sample.AgentID = agentID
	}

	ok := c.set(ctx, func() {
		c.samples.Push(sample)
		if c.live {
			c.series.Append(sample)
		}
	})
	if ok {
		c.emit(Event{Kind: EventSample, AgentID: agentID, Sample: &sample})
	}
}

// set runs f under mu unless ctx was cancelled, reporting whether it ran.
func (c *Client) set(ctx context.Context, f func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	f()
	return true
}

func (c *Client) emit(e Event) {
	if c.onEvent != nil {
		c.onEvent(e)
	}
}

// SetLive switches between live mode, where every sample extends the chart
// series, and history mode, where the series is left alone. Entering live
// mode rebuilds the series from the buffer.
func (c *Client) SetLive(live bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if live && !c.live {
		c.series.Rebuild(c.samples.Items())
	}
	c.live = live
}

// Live reports whether the client is in live mode.
func (c *Client) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// State returns the connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempt returns the number of consecutive failures since the last open.
func (c *Client) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// AgentID returns the agent the client is (or was last) streaming.
func (c *Client) AgentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agentID
}

// Samples returns the buffered samples, oldest first.
func (c *Client) Samples() []api.MetricSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples.Items()
}

// Snapshot is a consistent copy of a Client's view state.
type Snapshot struct {
	AgentID string
	State   State
	Attempt int
	LastErr error
	Live    bool
	Latest  *api.MetricSample
	Count   int
	Series  SeriesSnapshot
}

// Snapshot copies out everything a view needs to render.
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		AgentID: c.agentID,
		State:   c.state,
		Attempt: c.attempt,
		LastErr: c.lastErr,
		Live:    c.live,
		Count:   c.samples.Len(),
		Series:  c.series.Snapshot(),
	}
	if latest, ok := c.samples.Newest(); ok {
		snap.Latest = &latest
	}
	return snap
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
