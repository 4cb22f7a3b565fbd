// Package games hosts the arcade: a registry owning the single active game
// session and adapters exposing each engine through one action interface.
package games

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/glossy/internal/eventloop"
)

// ID identifies a game.
type ID string

const (
	TicTacToe ID = "ttt"
	RPS       ID = "rps"
	Reaction  ID = "reaction"
	Guess     ID = "guess"
)

var (
	// ErrUnknownGame is returned when selecting an ID that is not in the menu.
	ErrUnknownGame = errors.New("games: unknown game")
	// ErrNoActiveGame is returned for actions while the menu is showing.
	ErrNoActiveGame = errors.New("games: no active game")
	// ErrStaleSession is returned for actions addressed to a replaced session.
	ErrStaleSession = errors.New("games: stale session")
	// ErrUnknownAction is returned when the active game has no such action.
	ErrUnknownAction = errors.New("games: unknown action")
	// ErrInvalidAction is returned when an action's arguments are missing or malformed.
	ErrInvalidAction = errors.New("games: invalid action")
)

// MenuEntry describes a game on the menu.
type MenuEntry struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

var menu = []MenuEntry{
	{ID: TicTacToe, Title: "Tic-Tac-Toe"},
	{ID: RPS, Title: "Rock Paper Scissors"},
	{ID: Reaction, Title: "Reaction Test"},
	{ID: Guess, Title: "Guess the Number"},
}

// Menu lists the available games in display order.
func Menu() []MenuEntry {
	out := make([]MenuEntry, len(menu))
	copy(out, menu)
	return out
}

// Action is one player input addressed to the active game.
type Action struct {
	Name   string `json:"action"`
	Cell   *int   `json:"cell,omitempty"`
	Choice string `json:"choice,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Snapshot is the state of a game session as shown to the player.
type Snapshot struct {
	SessionID uint64 `json:"session_id"`
	Game      ID     `json:"game"`
	State     any    `json:"state"`
}

// Session is one running game.
type Session interface {
	Game() ID
	Apply(a Action) error
	State() any
	Teardown()
}

// Rand is the randomness shared by the games.
type Rand interface {
	IntN(n int) int
}

// Env is what sessions need from their host.
type Env struct {
	Loop *eventloop.Loop
	Rand Rand
	// Notify receives state changes that happen without player input.
	Notify func(Snapshot)
}

// Registry owns at most one active session. It must only be used on the
// host's loop.
type Registry struct {
	env    Env
	logger *slog.Logger

	seq      uint64
	activeID uint64
	active   Session
}

// NewRegistry returns a registry showing the menu.
func NewRegistry(env Env, logger *slog.Logger) *Registry {
	if env.Notify == nil {
		env.Notify = func(Snapshot) {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{env: env, logger: logger}
}

// Select tears down the active session and starts a fresh one of game id.
// An unknown id leaves the active session untouched.
func (r *Registry) Select(id ID) (Snapshot, error) {
	ctor, ok := r.constructor(id)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownGame, id)
	}
	r.teardownActive()

	r.seq++
	sid := r.seq
	r.activeID = sid
	r.active = ctor(sid)
	r.logger.Debug("game selected", "game", id, "game_session", sid)
	return r.snapshot(), nil
}

// ReturnToMenu tears down the active session, cancelling its timers.
func (r *Registry) ReturnToMenu() {
	r.teardownActive()
}

// Active returns the active session's snapshot, or false on the menu.
func (r *Registry) Active() (Snapshot, bool) {
	if r.active == nil {
		return Snapshot{}, false
	}
	return r.snapshot(), true
}

// Dispatch applies a to the active session. A non-zero sessionID must name
// the active session; zero addresses whichever session is active.
func (r *Registry) Dispatch(sessionID uint64, a Action) (Snapshot, error) {
	if r.active == nil {
		return Snapshot{}, ErrNoActiveGame
	}
	if sessionID != 0 && sessionID != r.activeID {
		return Snapshot{}, fmt.Errorf("%w: %d (active %d)", ErrStaleSession, sessionID, r.activeID)
	}
	if err := r.active.Apply(a); err != nil {
		return r.snapshot(), err
	}
	return r.snapshot(), nil
}

// Teardown ends the active session. Call it when the host closes.
func (r *Registry) Teardown() {
	r.teardownActive()
}

func (r *Registry) teardownActive() {
	if r.active == nil {
		return
	}
	r.logger.Debug("game session ended", "game", r.active.Game(), "game_session", r.activeID)
	r.active.Teardown()
	r.active = nil
	r.activeID = 0
}

func (r *Registry) snapshot() Snapshot {
	return Snapshot{SessionID: r.activeID, Game: r.active.Game(), State: r.active.State()}
}

func (r *Registry) constructor(id ID) (func(sid uint64) Session, bool) {
	switch id {
	case TicTacToe:
		return func(uint64) Session { return newTicTacToe() }, true
	case RPS:
		return func(uint64) Session { return newRPS(r.env.Rand) }, true
	case Reaction:
		return func(sid uint64) Session {
			return newReaction(r.env.Loop, r.env.Rand, func(state any) {
				if r.activeID != sid {
					return
				}
				r.env.Notify(Snapshot{SessionID: sid, Game: Reaction, State: state})
			})
		}, true
	case Guess:
		return func(uint64) Session { return newGuess(r.env.Rand) }, true
	default:
		return nil, false
	}
}
