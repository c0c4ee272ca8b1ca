package demo

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// hub tracks open stream connections per agent so the server can report and
// drop them.
type hub struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]string
}

func newHub() *hub {
	return &hub{conns: make(map[*websocket.Conn]string)}
}

func (h *hub) add(agentID string, conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = agentID
	h.mu.Unlock()
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

// count returns the open connections for agentID, or all of them when empty.
func (h *hub) count(agentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if agentID == "" {
		return len(h.conns)
	}
	n := 0
	for _, id := range h.conns {
		if id == agentID {
			n++
		}
	}
	return n
}

// drop ends every connection. graceful sends a going-away close frame
// first; otherwise the socket is just cut, which clients see as an abnormal
// closure.
func (h *hub) drop(graceful bool) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.conns)
	for conn := range h.conns {
		if graceful {
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		}
		conn.Close()
		delete(h.conns, conn)
	}
	return n
}
