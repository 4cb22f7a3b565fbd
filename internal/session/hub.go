// Package session hosts one assistant instance per browser tab: its event
// loop, chat session, game registry and search-engine selection.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/glossy/internal/chat"
	"github.com/ashureev/glossy/internal/domain"
	"github.com/ashureev/glossy/internal/eventloop"
	"github.com/ashureev/glossy/internal/games"
	"github.com/ashureev/glossy/internal/intent"
	"github.com/ashureev/glossy/internal/search"
)

var (
	// ErrClosed is returned by every Hub method after Close.
	ErrClosed = errors.New("session: closed")
	// ErrChatUnavailable is returned when the hub was built without a resolver.
	ErrChatUnavailable = errors.New("session: chat unavailable")
	// ErrSearchUnavailable is returned when the hub was built without a catalog.
	ErrSearchUnavailable = errors.New("session: search unavailable")
)

// EventType categorizes pushed events.
type EventType string

const (
	EventMessage   EventType = "message"
	EventComposing EventType = "composing"
	EventGameState EventType = "game_state"
	EventMenu      EventType = "menu"
	EventError     EventType = "error"
	EventPong      EventType = "pong"
)

// Event is pushed to subscribers, typically a WebSocket connection.
type Event struct {
	Type      EventType           `json:"type"`
	Message   *domain.ChatMessage `json:"message,omitempty"`
	Composing *bool               `json:"composing,omitempty"`
	Game      *games.Snapshot     `json:"game,omitempty"`
	Menu      []games.MenuEntry   `json:"menu,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Deps configures the hubs created by a Manager. A nil Resolver disables
// chat and a nil Catalog disables the search selector; games are always on.
type Deps struct {
	Resolver      *intent.Resolver
	Catalog       *search.Catalog
	DefaultEngine string
	Chat          chat.Config
	Recorder      chat.Recorder
	Clock         eventloop.Clock
	Rand          games.Rand
	Logger        *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = eventloop.SystemClock()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// Hub is one tab's assistant. Its methods are safe for concurrent use; each
// runs on the hub's event loop.
type Hub struct {
	userID    string
	sessionID string
	loop      *eventloop.Loop
	chat      *chat.Session
	games     *games.Registry
	engines   *search.Selection
	logger    *slog.Logger

	subMu   sync.Mutex
	subs    map[uint64]chan Event
	nextSub uint64

	lastActive atomic.Int64
	closeOnce  sync.Once
}

// NewHub starts a hub for the given visitor and tab.
func NewHub(userID, sessionID string, deps Deps) *Hub {
	deps = deps.withDefaults()
	logger := deps.Logger.With("user_id", userID, "session_id", sessionID)
	h := &Hub{
		userID:    userID,
		sessionID: sessionID,
		loop:      eventloop.New(deps.Clock, logger),
		logger:    logger,
		subs:      make(map[uint64]chan Event),
	}
	h.Touch()

	if deps.Resolver != nil {
		h.chat = chat.NewSession(chat.Deps{
			UserID:    userID,
			SessionID: sessionID,
			Loop:      h.loop,
			Resolver:  deps.Resolver,
			Emit:      h.emitChat,
			Recorder:  deps.Recorder,
			Config:    deps.Chat,
			Logger:    deps.Logger,
		})
	}
	h.games = games.NewRegistry(games.Env{
		Loop: h.loop,
		Rand: deps.Rand,
		Notify: func(s games.Snapshot) {
			h.publish(Event{Type: EventGameState, Game: &s})
		},
	}, logger)
	if deps.Catalog != nil {
		h.engines = search.NewSelection(deps.Catalog, deps.DefaultEngine)
	}
	return h
}

// UserID returns the visitor owning the hub.
func (h *Hub) UserID() string { return h.userID }

// SessionID returns the tab the hub serves.
func (h *Hub) SessionID() string { return h.sessionID }

// Touch records activity for idle reaping.
func (h *Hub) Touch() {
	h.lastActive.Store(h.loop.Now().UnixNano())
}

// LastActive returns the time of the last Touch.
func (h *Hub) LastActive() time.Time {
	return time.Unix(0, h.lastActive.Load())
}

// ChatEnabled reports whether the hub has a chat session.
func (h *Hub) ChatEnabled() bool { return h.chat != nil }

// SearchEnabled reports whether the hub has a search selector.
func (h *Hub) SearchEnabled() bool { return h.engines != nil }

// SubmitChat sends text to the assistant. It reports false when the input
// was blank and therefore ignored.
func (h *Hub) SubmitChat(text string) (domain.ChatMessage, bool, error) {
	if h.chat == nil {
		return domain.ChatMessage{}, false, ErrChatUnavailable
	}
	var (
		msg domain.ChatMessage
		ok  bool
	)
	err := h.do(func() { msg, ok = h.chat.Submit(text) })
	return msg, ok, err
}

// Transcript returns the conversation so far.
func (h *Hub) Transcript() ([]domain.ChatMessage, error) {
	if h.chat == nil {
		return nil, ErrChatUnavailable
	}
	var out []domain.ChatMessage
	err := h.do(func() { out = h.chat.Transcript() })
	return out, err
}

// ResetChat clears the conversation and any pending reply.
func (h *Hub) ResetChat() error {
	if h.chat == nil {
		return ErrChatUnavailable
	}
	return h.do(h.chat.Reset)
}

// SelectGame replaces the active game with a fresh session of id.
func (h *Hub) SelectGame(id games.ID) (games.Snapshot, error) {
	var (
		snap   games.Snapshot
		selErr error
	)
	if err := h.do(func() { snap, selErr = h.games.Select(id) }); err != nil {
		return games.Snapshot{}, err
	}
	if selErr == nil {
		h.publish(Event{Type: EventGameState, Game: &snap})
	}
	return snap, selErr
}

// ReturnToMenu ends the active game.
func (h *Hub) ReturnToMenu() error {
	if err := h.do(h.games.ReturnToMenu); err != nil {
		return err
	}
	h.publish(Event{Type: EventMenu, Menu: games.Menu()})
	return nil
}

// GameAction applies a to the active game session.
func (h *Hub) GameAction(sessionID uint64, a games.Action) (games.Snapshot, error) {
	var (
		snap   games.Snapshot
		actErr error
	)
	if err := h.do(func() { snap, actErr = h.games.Dispatch(sessionID, a) }); err != nil {
		return games.Snapshot{}, err
	}
	return snap, actErr
}

// GameState returns the active game, or false when the menu is showing.
func (h *Hub) GameState() (games.Snapshot, bool, error) {
	var (
		snap games.Snapshot
		ok   bool
	)
	err := h.do(func() { snap, ok = h.games.Active() })
	return snap, ok, err
}

// CurrentEngine returns the selected search engine.
func (h *Hub) CurrentEngine() (search.Engine, error) {
	if h.engines == nil {
		return search.Engine{}, ErrSearchUnavailable
	}
	var e search.Engine
	err := h.do(func() { e = h.engines.Current() })
	return e, err
}

// SelectEngine changes the selected search engine.
func (h *Hub) SelectEngine(id string) (search.Engine, error) {
	if h.engines == nil {
		return search.Engine{}, ErrSearchUnavailable
	}
	var (
		e      search.Engine
		selErr error
	)
	if err := h.do(func() { e, selErr = h.engines.Select(id) }); err != nil {
		return search.Engine{}, err
	}
	return e, selErr
}

// SearchURL returns the selected engine's results URL for query.
func (h *Hub) SearchURL(query string) (string, error) {
	if h.engines == nil {
		return "", ErrSearchUnavailable
	}
	var (
		u      string
		urlErr error
	)
	if err := h.do(func() { u, urlErr = h.engines.SubmitURL(query) }); err != nil {
		return "", err
	}
	return u, urlErr
}

// Subscribe registers for pushed events. Events are dropped for a subscriber
// whose buffer is full. The returned function unsubscribes and is safe to
// call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan Event, buffer)

	h.subMu.Lock()
	if h.subs == nil {
		h.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.nextSub++
	id := h.nextSub
	h.subs[id] = ch
	h.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.subMu.Lock()
			defer h.subMu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Publish pushes an event to every subscriber.
func (h *Hub) Publish(e Event) {
	h.publish(e)
}

// Close tears down the chat and game sessions, stops the loop and closes
// all subscriber channels. It is idempotent.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		_ = h.loop.Do(func() {
			if h.chat != nil {
				h.chat.Teardown()
			}
			h.games.Teardown()
		})
		h.loop.Close()
		if h.chat != nil {
			h.chat.Wait()
		}

		h.subMu.Lock()
		for id, ch := range h.subs {
			delete(h.subs, id)
			close(ch)
		}
		h.subs = nil
		h.subMu.Unlock()
		h.logger.Info("Assistant session closed")
	})
}

func (h *Hub) do(fn func()) error {
	if err := h.loop.Do(fn); err != nil {
		if errors.Is(err, eventloop.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

func (h *Hub) emitChat(e chat.Event) {
	switch e.Type {
	case chat.EventMessage:
		h.publish(Event{Type: EventMessage, Message: e.Message})
	case chat.EventComposing:
		v := e.Composing
		h.publish(Event{Type: EventComposing, Composing: &v})
	}
}

func (h *Hub) publish(e Event) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.logger.Warn("Dropping event for slow subscriber", "subscriber", id, "type", e.Type)
		}
	}
}
