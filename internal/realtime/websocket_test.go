package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/glossy/internal/eventloop"
	"github.com/ashureev/glossy/internal/games"
	"github.com/ashureev/glossy/internal/identity"
	"github.com/ashureev/glossy/internal/intent"
	"github.com/ashureev/glossy/internal/session"
)

type fixedRand int

func (f fixedRand) IntN(int) int { return int(f) }

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

type harness struct {
	clock *eventloop.ManualClock
	mgr   *session.Manager
	conns *Connections
	srv   *httptest.Server
}

func newHarness(t *testing.T, limiter Limiter) *harness {
	t.Helper()
	clock := eventloop.NewManualClock(time.Unix(1_700_000_000, 0))
	mgr := session.NewManager(session.Deps{
		Resolver:      intent.NewResolver(nil, nil),
		DefaultEngine: "google",
		Clock:         clock,
		Rand:          fixedRand(0),
	})
	conns := NewConnections()
	ws := NewWebSocketHandler(mgr, conns, limiter, "http://localhost:5173", false)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := identity.WithIdentity(r.Context(), "anon_ws", r.URL.Query().Get("tab"))
		ws.ServeHTTP(w, r.WithContext(ctx))
	}))
	t.Cleanup(func() {
		conns.CloseAll()
		srv.Close()
		mgr.CloseAll()
	})
	return &harness{clock: clock, mgr: mgr, conns: conns, srv: srv}
}

func (h *harness) dial(t *testing.T, tab string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/?tab=" + tab
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.CloseNow() })
	return c
}

func send(t *testing.T, c *websocket.Conn, msg map[string]any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, c, msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, c *websocket.Conn) session.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var ev session.Event
	if err := wsjson.Read(ctx, c, &ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	return ev
}

func TestInitialStateIsMenu(t *testing.T) {
	h := newHarness(t, nil)
	c := h.dial(t, "tab-1")

	ev := read(t, c)
	if ev.Type != session.EventMenu || len(ev.Menu) != 4 {
		t.Fatalf("unexpected initial event %+v", ev)
	}
}

func TestPingPong(t *testing.T) {
	h := newHarness(t, nil)
	c := h.dial(t, "tab-1")
	read(t, c)

	send(t, c, map[string]any{"type": "ping"})
	if ev := read(t, c); ev.Type != session.EventPong {
		t.Fatalf("expected pong, got %+v", ev)
	}
}

func TestChatOverWebSocket(t *testing.T) {
	h := newHarness(t, nil)
	c := h.dial(t, "tab-1")
	read(t, c)

	send(t, c, map[string]any{"type": "chat", "text": "2+3*4"})

	ev := read(t, c)
	if ev.Type != session.EventMessage || ev.Message.Text != "2+3*4" {
		t.Fatalf("expected echoed user message, got %+v", ev)
	}
	ev = read(t, c)
	if ev.Type != session.EventComposing || !*ev.Composing {
		t.Fatalf("expected composing=true, got %+v", ev)
	}

	h.clock.Advance(500 * time.Millisecond)

	ev = read(t, c)
	if ev.Type != session.EventMessage || ev.Message.Text != "Result: 14" {
		t.Fatalf("expected arithmetic reply, got %+v", ev)
	}
	ev = read(t, c)
	if ev.Type != session.EventComposing || *ev.Composing {
		t.Fatalf("expected composing=false, got %+v", ev)
	}
}

func TestGameOverWebSocket(t *testing.T) {
	h := newHarness(t, nil)
	c := h.dial(t, "tab-1")
	read(t, c)

	send(t, c, map[string]any{"type": "select_game", "game": "ttt"})
	ev := read(t, c)
	if ev.Type != session.EventGameState || ev.Game.Game != games.TicTacToe {
		t.Fatalf("expected ttt state, got %+v", ev)
	}

	send(t, c, map[string]any{"type": "game", "session_id": ev.Game.SessionID, "action": "place", "cell": 0})
	if ev := read(t, c); ev.Type != session.EventGameState {
		t.Fatalf("expected game_state after move, got %+v", ev)
	}

	send(t, c, map[string]any{"type": "game", "session_id": 999, "action": "reset"})
	if ev := read(t, c); ev.Type != session.EventError || ev.Error == "" {
		t.Fatalf("expected error for stale session, got %+v", ev)
	}

	send(t, c, map[string]any{"type": "menu"})
	if ev := read(t, c); ev.Type != session.EventMenu {
		t.Fatalf("expected menu, got %+v", ev)
	}
}

func TestUnknownMessageType(t *testing.T) {
	h := newHarness(t, nil)
	c := h.dial(t, "tab-1")
	read(t, c)

	send(t, c, map[string]any{"type": "dance"})
	if ev := read(t, c); ev.Type != session.EventError {
		t.Fatalf("expected error, got %+v", ev)
	}
}

func TestRateLimitedInput(t *testing.T) {
	h := newHarness(t, denyAll{})
	c := h.dial(t, "tab-1")
	read(t, c)

	send(t, c, map[string]any{"type": "chat", "text": "hi"})
	if ev := read(t, c); ev.Type != session.EventError || ev.Error != errRateLimited.Error() {
		t.Fatalf("expected rate limit error, got %+v", ev)
	}

	// Ping is never throttled.
	send(t, c, map[string]any{"type": "ping"})
	if ev := read(t, c); ev.Type != session.EventPong {
		t.Fatalf("expected pong, got %+v", ev)
	}
}

func TestReaperClosesSocket(t *testing.T) {
	h := newHarness(t, nil)
	c := h.dial(t, "tab-1")
	read(t, c)

	h.mgr.Close("anon_ws", "tab-1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := c.Read(ctx)
	if status := websocket.CloseStatus(err); status != websocket.StatusGoingAway {
		t.Fatalf("expected going away close, got %v (%v)", status, err)
	}
}

func TestCheckOrigin(t *testing.T) {
	h := &WebSocketHandler{allowedOrigin: "https://glossy.example"}
	cases := map[string]bool{
		"":                       true,
		"https://glossy.example": true,
		"https://evil.example":   false,
	}
	for origin, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		if got := h.checkOrigin(r); got != want {
			t.Errorf("origin %q: got %v want %v", origin, got, want)
		}
	}
}

func TestConnectionsReplace(t *testing.T) {
	h := newHarness(t, nil)
	first := h.dial(t, "tab-1")
	read(t, first)
	if h.conns.Get("anon_ws", "tab-1") == nil {
		t.Fatal("first connection not registered")
	}

	second := h.dial(t, "tab-1")
	read(t, second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := first.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Fatalf("expected first connection replaced, got %v", err)
	}
}

func TestReplacingQuietTabKeepsRegistryResponsive(t *testing.T) {
	h := newHarness(t, nil)
	quiet := h.dial(t, "tab-1")
	read(t, quiet)
	// quiet never reads again, so it never answers the close handshake.

	replacement := h.dial(t, "tab-1")
	if ev := read(t, replacement); ev.Type != session.EventMenu {
		t.Fatalf("replacement got %+v", ev)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.conns.Get("anon_ws", "tab-2")
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("registry lock held while closing the replaced socket")
	}

	other := h.dial(t, "tab-2")
	if ev := read(t, other); ev.Type != session.EventMenu {
		t.Fatalf("other tab got %+v", ev)
	}
	if h.conns.Get("anon_ws", "tab-1") == nil || h.conns.Get("anon_ws", "tab-2") == nil {
		t.Fatal("expected both tabs registered")
	}
}

func TestCloseTabDoesNotBlockOnQuietPeer(t *testing.T) {
	h := newHarness(t, nil)
	quiet := h.dial(t, "tab-1")
	read(t, quiet)

	start := time.Now()
	h.conns.CloseTab("anon_ws", "tab-1")
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("CloseTab blocked for %s", elapsed)
	}
	if h.conns.Get("anon_ws", "tab-1") != nil {
		t.Fatal("tab still registered after CloseTab")
	}
}
