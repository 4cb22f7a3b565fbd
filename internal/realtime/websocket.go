package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/glossy/internal/games"
	"github.com/ashureev/glossy/internal/identity"
	"github.com/ashureev/glossy/internal/session"
)

const writeTimeout = 5 * time.Second

// Limiter decides whether a visitor may send more input.
type Limiter interface {
	Allow(key string) bool
}

// clientMessage is what the page sends.
type clientMessage struct {
	Type string `json:"type"`
	// chat
	Text string `json:"text,omitempty"`
	// select_game
	Game games.ID `json:"game,omitempty"`
	// game
	SessionID uint64 `json:"session_id,omitempty"`
	games.Action
}

// WebSocketHandler connects a tab's WebSocket to its session hub.
type WebSocketHandler struct {
	sessions      *session.Manager
	conns         *Connections
	limiter       Limiter
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler. limiter may be nil.
func NewWebSocketHandler(sessions *session.Manager, conns *Connections, limiter Limiter, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		sessions:      sessions,
		conns:         conns,
		limiter:       limiter,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.conns.Register(userID, sessionID, ws)
	defer h.conns.Unregister(userID, sessionID, ws)

	hub := h.sessions.GetOrCreate(userID, sessionID)
	events, unsubscribe := hub.Subscribe(64)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.sendInitialState(ctx, ws, hub)

	var wg sync.WaitGroup
	wg.Add(2)

	// Input loop: WebSocket -> hub.
	go func() {
		defer wg.Done()
		defer cancel()
		h.inputLoop(ctx, ws, hub, userID)
	}()

	// Output loop: hub -> WebSocket.
	go func() {
		defer wg.Done()
		defer cancel()
		outputLoop(ctx, ws, events, userID)
	}()

	wg.Wait()
	slog.Info("Assistant connection ended", "user_id", userID, "session_id", sessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) sendInitialState(ctx context.Context, ws *websocket.Conn, hub *session.Hub) {
	snap, ok, err := hub.GameState()
	if err != nil {
		return
	}
	ev := session.Event{Type: session.EventMenu, Menu: games.Menu()}
	if ok {
		ev = session.Event{Type: session.EventGameState, Game: &snap}
	}
	if err := writeEvent(ctx, ws, ev); err != nil {
		slog.Debug("Failed to send initial state", "error", err)
	}
}

func (h *WebSocketHandler) inputLoop(ctx context.Context, ws *websocket.Conn, hub *session.Hub, userID string) {
	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}
		hub.Touch()

		if err := h.dispatch(ctx, ws, hub, userID, msg); err != nil {
			if errors.Is(err, session.ErrClosed) {
				return
			}
			if werr := writeEvent(ctx, ws, session.Event{Type: session.EventError, Error: err.Error()}); werr != nil {
				slog.Debug("Failed to send error event", "error", werr)
			}
		}
	}
}

var errRateLimited = errors.New("rate limit exceeded")

func (h *WebSocketHandler) dispatch(ctx context.Context, ws *websocket.Conn, hub *session.Hub, userID string, msg clientMessage) error {
	switch msg.Type {
	case "ping":
		return writeEvent(ctx, ws, session.Event{Type: session.EventPong})
	case "menu":
		return hub.ReturnToMenu()
	}

	if h.limiter != nil && !h.limiter.Allow(userID) {
		return errRateLimited
	}

	switch msg.Type {
	case "chat":
		_, _, err := hub.SubmitChat(msg.Text)
		return err
	case "select_game":
		_, err := hub.SelectGame(msg.Game)
		return err
	case "game":
		snap, err := hub.GameAction(msg.SessionID, msg.Action)
		if err != nil {
			return err
		}
		hub.Publish(session.Event{Type: session.EventGameState, Game: &snap})
		return nil
	default:
		return errors.New("unknown message type: " + msg.Type)
	}
}

func outputLoop(ctx context.Context, ws *websocket.Conn, events <-chan session.Event, userID string) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Hub closed, typically by the idle reaper.
				_ = ws.Close(websocket.StatusGoingAway, "session expired")
				return
			}
			if err := writeEvent(ctx, ws, ev); err != nil {
				if ctx.Err() == nil {
					slog.Debug("WebSocket write error", "error", err, "user_id", userID)
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeEvent(ctx context.Context, ws *websocket.Conn, ev session.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, ev)
}
