// Package realtime serves a tab's assistant session over a WebSocket.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Connections tracks the live WebSocket per user and tab. A tab that
// reconnects replaces its previous connection.
type Connections struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnections creates an empty registry.
func NewConnections() *Connections {
	return &Connections{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Get returns the active connection for a user and tab.
func (c *Connections) Get(userID, sessionID string) *websocket.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if sessions, ok := c.active[userID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Register adds a connection, closing any earlier one for the same tab.
func (c *Connections) Register(userID, sessionID string, conn *websocket.Conn) {
	c.mu.Lock()
	if _, exists := c.active[userID]; !exists {
		c.active[userID] = make(map[string]*websocket.Conn)
	}
	existing := c.active[userID][sessionID]
	c.active[userID][sessionID] = conn
	c.mu.Unlock()

	if existing != nil && existing != conn {
		go closeConn(existing, websocket.StatusNormalClosure, "session replaced")
	}
	slog.Info("Assistant connection registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes conn if it is still the tab's active connection.
func (c *Connections) Unregister(userID, sessionID string, conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sessions, ok := c.active[userID]; ok {
		if current, exists := sessions[sessionID]; exists && current == conn {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(c.active, userID)
			}
			slog.Info("Assistant connection unregistered", "user_id", userID, "session_id", sessionID)
		}
	}
}

// CloseTab closes the connection of one tab, used when its hub is reaped.
func (c *Connections) CloseTab(userID, sessionID string) {
	c.mu.Lock()
	conn := c.active[userID][sessionID]
	if conn != nil {
		delete(c.active[userID], sessionID)
		if len(c.active[userID]) == 0 {
			delete(c.active, userID)
		}
	}
	c.mu.Unlock()

	if conn != nil {
		go closeConn(conn, websocket.StatusGoingAway, "session expired")
	}
}

// CloseAll closes every connection and waits for the close handshakes.
// Use it on shutdown.
func (c *Connections) CloseAll() {
	c.mu.Lock()
	var conns []*websocket.Conn
	for userID, sessions := range c.active {
		for _, conn := range sessions {
			conns = append(conns, conn)
		}
		delete(c.active, userID)
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			closeConn(conn, websocket.StatusGoingAway, "server shutting down")
		}()
	}
	wg.Wait()
}

// closeConn runs the close handshake, which can take seconds when the peer
// has gone quiet. Never call it with the registry lock held.
func closeConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	if err := conn.Close(code, reason); err != nil {
		slog.Debug("Failed to close websocket", "error", err, "reason", reason)
	}
}
