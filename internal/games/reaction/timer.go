// Package reaction implements the reaction-time test: wait for a randomly
// delayed signal, then press as fast as possible.
package reaction

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ashureev/glossy/internal/eventloop"
)

const (
	// MinDelay is the shortest wait before the signal.
	MinDelay = 1000 * time.Millisecond
	// MaxDelay is the longest wait before the signal.
	MaxDelay = 4000 * time.Millisecond
)

// Phase is the timer's position in a round.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseArmed    Phase = "armed"
	PhaseReady    Phase = "ready"
	PhaseResult   Phase = "result"
	PhaseTooEarly Phase = "too_early"
)

// State is what the reaction box shows.
type State struct {
	Phase     Phase  `json:"phase"`
	Label     string `json:"label"`
	Status    string `json:"status"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`
}

// Rand is the randomness the delay is drawn from.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Timer runs rounds on a session loop. All methods must be called on that
// loop; OnSignal is invoked there too.
type Timer struct {
	loop     *eventloop.Loop
	rng      Rand
	onSignal func(State)

	phase    Phase
	signalAt time.Time
	elapsed  time.Duration
	pending  *eventloop.Task
	closed   bool
}

// New returns an idle timer. onSignal, when set, is called when the signal
// is given so the caller can push the new state.
func New(loop *eventloop.Loop, rng Rand, onSignal func(State)) *Timer {
	if rng == nil {
		rng = globalRand{}
	}
	if onSignal == nil {
		onSignal = func(State) {}
	}
	return &Timer{loop: loop, rng: rng, onSignal: onSignal, phase: PhaseIdle}
}

// Press is the player's single input. It starts a round from idle, result
// or too-early; records the reaction when the signal is showing; and ends
// the round as too early when pressed before the signal.
func (t *Timer) Press() State {
	if t.closed {
		return t.State()
	}
	switch t.phase {
	case PhaseArmed:
		t.pending.Cancel()
		t.pending = nil
		t.phase = PhaseTooEarly
	case PhaseReady:
		t.elapsed = t.loop.Now().Sub(t.signalAt)
		t.phase = PhaseResult
	default:
		t.arm()
	}
	return t.State()
}

// Start begins a new round regardless of the current phase.
func (t *Timer) Start() State {
	if t.closed {
		return t.State()
	}
	t.arm()
	return t.State()
}

// Reset cancels any pending signal and returns to idle.
func (t *Timer) Reset() State {
	t.pending.Cancel()
	t.pending = nil
	t.phase = PhaseIdle
	t.elapsed = 0
	return t.State()
}

// Teardown cancels any pending signal. The timer ignores input afterwards.
func (t *Timer) Teardown() {
	t.Reset()
	t.closed = true
}

// Delay returns the wait before the signal for a draw n in [0, 3000].
func Delay(n int) time.Duration {
	return MinDelay + time.Duration(n)*time.Millisecond
}

func (t *Timer) arm() {
	t.pending.Cancel()
	t.elapsed = 0
	t.phase = PhaseArmed
	d := Delay(t.rng.IntN(int((MaxDelay-MinDelay)/time.Millisecond) + 1))
	t.pending = t.loop.AfterFunc(d, t.signal)
}

func (t *Timer) signal() {
	if t.closed || t.phase != PhaseArmed {
		return
	}
	t.pending = nil
	t.signalAt = t.loop.Now()
	t.phase = PhaseReady
	t.onSignal(t.State())
}

// State returns the current display.
func (t *Timer) State() State {
	switch t.phase {
	case PhaseArmed:
		return State{Phase: t.phase, Label: "Wait for Green...", Status: "..."}
	case PhaseReady:
		return State{Phase: t.phase, Label: "CLICK!", Status: "..."}
	case PhaseResult:
		ms := t.elapsed.Milliseconds()
		return State{Phase: t.phase, Label: fmt.Sprintf("%d ms", ms), Status: "Nice!", ElapsedMS: ms}
	case PhaseTooEarly:
		return State{Phase: t.phase, Label: "Too Early!", Status: "Fail"}
	default:
		return State{Phase: PhaseIdle, Label: "Click to Start", Status: "Test your speed"}
	}
}
