package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/session"
)

// Conn is the receive side of an open stream.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens a stream for one agent.
type Dialer interface {
	Dial(ctx context.Context, agentID string) (Conn, error)
}

// WebsocketDialer dials the backend's per-agent metric WebSocket.
type WebsocketDialer struct {
	Session          *session.Session
	HandshakeTimeout time.Duration
}

// NewWebsocketDialer returns a dialer authenticating with s.
func NewWebsocketDialer(s *session.Session, handshakeTimeout time.Duration) *WebsocketDialer {
	return &WebsocketDialer{Session: s, HandshakeTimeout: handshakeTimeout}
}

// Dial opens the stream. A handshake the backend refuses with 401/403 is
// reported as an AUTH error; everything else is a STREAM error.
func (d *WebsocketDialer) Dial(ctx context.Context, agentID string) (Conn, error) {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}

	endpoint := d.Session.StreamEndpoint(api.StreamPath(agentID))
	conn, resp, err := dialer.DialContext(ctx, endpoint, d.Session.Header())
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, errors.WrapWithCode(err, errors.ErrAuth,
				"Stream for "+agentID+" was rejected ("+resp.Status+")",
				"Check your token, or run 'fleetwatch login' again.")
		}
		return nil, errors.WrapWithCode(err, errors.ErrStream,
			"Couldn't open stream for "+agentID,
			"Check server.url (or server.stream_url) and that the backend is reachable.")
	}
	return conn, nil
}
