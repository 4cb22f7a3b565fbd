// Package chat implements the assistant's conversation session.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/glossy/internal/domain"
	"github.com/ashureev/glossy/internal/eventloop"
	"github.com/ashureev/glossy/internal/intent"
	"github.com/ashureev/glossy/internal/search"
)

// EventType categorizes session events.
type EventType string

const (
	// EventMessage carries a new transcript message.
	EventMessage EventType = "message"
	// EventComposing toggles the "assistant is typing" indicator.
	EventComposing EventType = "composing"
)

// Event is emitted to the presentation layer.
type Event struct {
	Type      EventType
	Message   *domain.ChatMessage
	Composing bool
}

// Emitter receives session events on the session loop.
type Emitter func(Event)

// Recorder receives every transcript message for diagnostics.
type Recorder interface {
	Record(entry domain.ChatLogEntry)
}

type noopRecorder struct{}

func (noopRecorder) Record(domain.ChatLogEntry) {}

// Config holds reply timing and the fallback search engine.
type Config struct {
	ReplyDelay     time.Duration
	FallbackDelay  time.Duration
	FallbackEngine search.Engine
}

// DefaultConfig returns the standard response timing.
func DefaultConfig() Config {
	google, _ := search.DefaultCatalog().Lookup("google")
	return Config{
		ReplyDelay:     500 * time.Millisecond,
		FallbackDelay:  600 * time.Millisecond,
		FallbackEngine: google,
	}
}

// Deps are the collaborators of a Session.
type Deps struct {
	UserID    string
	SessionID string
	Loop      *eventloop.Loop
	Resolver  *intent.Resolver
	Emit      Emitter
	Recorder  Recorder
	Config    Config
	Logger    *slog.Logger
}

// Session is one visitor's conversation. Every method except Wait must be
// called on the session loop.
type Session struct {
	userID    string
	sessionID string
	loop      *eventloop.Loop
	resolver  *intent.Resolver
	emit      Emitter
	recorder  Recorder
	replies   replyBuilder
	cfg       Config
	logger    *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	lookups sync.WaitGroup

	transcript   []domain.ChatMessage
	composing    bool
	generation   uint64
	pending      *eventloop.Task
	cancelLookup context.CancelFunc
	closed       bool
}

// NewSession creates a session. Zero timing values fall back to DefaultConfig.
func NewSession(deps Deps) *Session {
	def := DefaultConfig()
	cfg := deps.Config
	if cfg.ReplyDelay <= 0 {
		cfg.ReplyDelay = def.ReplyDelay
	}
	if cfg.FallbackDelay <= 0 {
		cfg.FallbackDelay = def.FallbackDelay
	}
	if cfg.FallbackEngine.ID == "" {
		cfg.FallbackEngine = def.FallbackEngine
	}
	if deps.Emit == nil {
		deps.Emit = func(Event) {}
	}
	if deps.Recorder == nil {
		deps.Recorder = noopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		userID:    deps.UserID,
		sessionID: deps.SessionID,
		loop:      deps.Loop,
		resolver:  deps.Resolver,
		emit:      deps.Emit,
		recorder:  deps.Recorder,
		replies:   replyBuilder{fallback: cfg.FallbackEngine},
		cfg:       cfg,
		logger:    deps.Logger.With("user_id", deps.UserID, "session_id", deps.SessionID),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit appends the visitor's message and schedules exactly one reply.
// Whitespace-only input is ignored and reported as not accepted. A new
// submission supersedes a reply still pending for an earlier one.
func (s *Session) Submit(text string) (domain.ChatMessage, bool) {
	text = strings.TrimSpace(text)
	if text == "" || s.closed {
		return domain.ChatMessage{}, false
	}

	if s.supersede() {
		s.logger.Debug("pending reply superseded")
	}
	gen := s.generation

	msg := domain.NewUserMessage(text, s.loop.Now())
	s.append(msg)
	s.setComposing(true)

	if out := s.resolver.ResolveLocal(text); out.Kind != intent.KindNoMatch {
		s.pending = s.loop.AfterFunc(s.cfg.ReplyDelay, func() { s.deliver(gen, out) })
		return msg, true
	}
	if !s.resolver.KnowledgeEnabled() {
		s.scheduleFallback(gen, text)
		return msg, true
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelLookup = cancel
	s.lookups.Add(1)
	go func() {
		defer s.lookups.Done()
		defer cancel()
		out, ok := s.resolver.Lookup(ctx, text)
		s.loop.Post(func() {
			if gen != s.generation || s.closed {
				return
			}
			s.cancelLookup = nil
			if ok {
				s.deliver(gen, out)
				return
			}
			s.scheduleFallback(gen, text)
		})
	}()
	return msg, true
}

// Reset drops any pending reply and clears the transcript.
func (s *Session) Reset() {
	s.supersede()
	s.setComposing(false)
	s.transcript = nil
}

// Teardown cancels pending work. The session ignores all input afterwards.
func (s *Session) Teardown() {
	if s.closed {
		return
	}
	s.supersede()
	s.closed = true
	s.cancel()
}

// Wait blocks until in-flight knowledge lookups have returned. Call it after
// Teardown, off the session loop.
func (s *Session) Wait() {
	s.lookups.Wait()
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Composing reports whether a reply is being prepared.
func (s *Session) Composing() bool {
	return s.composing
}

func (s *Session) scheduleFallback(gen uint64, text string) {
	s.pending = s.loop.AfterFunc(s.cfg.FallbackDelay, func() {
		s.deliver(gen, intent.Fallback(text))
	})
}

func (s *Session) deliver(gen uint64, out intent.Outcome) {
	if gen != s.generation || s.closed {
		return
	}
	s.pending = nil
	s.append(s.replies.message(out, s.loop.Now()))
	s.setComposing(false)
}

// supersede invalidates every outstanding reply and reports whether one
// was outstanding.
func (s *Session) supersede() bool {
	s.generation++
	had := s.pending.Pending() || s.cancelLookup != nil
	s.pending.Cancel()
	s.pending = nil
	if s.cancelLookup != nil {
		s.cancelLookup()
		s.cancelLookup = nil
	}
	return had
}

func (s *Session) append(msg domain.ChatMessage) {
	s.transcript = append(s.transcript, msg)
	s.emit(Event{Type: EventMessage, Message: &msg})
	s.recorder.Record(domain.ChatLogEntry{
		UserID:    s.userID,
		SessionID: s.sessionID,
		Message:   msg,
	})
}

func (s *Session) setComposing(v bool) {
	if s.composing == v {
		return
	}
	s.composing = v
	s.emit(Event{Type: EventComposing, Composing: v})
}
