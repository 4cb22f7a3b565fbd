package reaction

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/ashureev/glossy/internal/eventloop"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixedRand int

func (f fixedRand) IntN(int) int { return int(f) }

type harness struct {
	t       *testing.T
	clock   *eventloop.ManualClock
	loop    *eventloop.Loop
	timer   *Timer
	signals []State
}

func newHarness(t *testing.T, draw int) *harness {
	t.Helper()
	h := &harness{t: t, clock: eventloop.NewManualClock(time.Unix(1_700_000_000, 0))}
	h.loop = eventloop.New(h.clock, nil)
	h.timer = New(h.loop, fixedRand(draw), func(s State) { h.signals = append(h.signals, s) })
	t.Cleanup(h.loop.Close)
	return h
}

func (h *harness) on(fn func() State) State {
	h.t.Helper()
	var s State
	if err := h.loop.Do(func() { s = fn() }); err != nil {
		h.t.Fatalf("loop: %v", err)
	}
	return s
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	_ = h.loop.Do(func() {})
}

func TestDelayBounds(t *testing.T) {
	if Delay(0) != MinDelay {
		t.Fatalf("Delay(0) = %v", Delay(0))
	}
	if Delay(3000) != MaxDelay {
		t.Fatalf("Delay(3000) = %v", Delay(3000))
	}
}

func TestInitialState(t *testing.T) {
	h := newHarness(t, 0)
	s := h.on(h.timer.State)
	if s.Phase != PhaseIdle || s.Label != "Click to Start" || s.Status != "Test your speed" {
		t.Fatalf("unexpected initial state %+v", s)
	}
}

func TestFullRound(t *testing.T) {
	h := newHarness(t, 500) // signal after 1.5s
	s := h.on(h.timer.Press)
	if s.Phase != PhaseArmed || s.Label != "Wait for Green..." {
		t.Fatalf("expected armed, got %+v", s)
	}

	h.advance(1499 * time.Millisecond)
	if got := h.on(h.timer.State); got.Phase != PhaseArmed {
		t.Fatalf("signal fired early: %+v", got)
	}
	h.advance(time.Millisecond)
	if got := h.on(h.timer.State); got.Phase != PhaseReady || got.Label != "CLICK!" {
		t.Fatalf("expected ready, got %+v", got)
	}
	if len(h.signals) != 1 || h.signals[0].Phase != PhaseReady {
		t.Fatalf("signal callback not invoked: %+v", h.signals)
	}

	h.advance(237 * time.Millisecond)
	s = h.on(h.timer.Press)
	if s.Phase != PhaseResult || s.ElapsedMS != 237 || s.Label != "237 ms" || s.Status != "Nice!" {
		t.Fatalf("unexpected result %+v", s)
	}

	// Pressing again starts a new round.
	if s = h.on(h.timer.Press); s.Phase != PhaseArmed {
		t.Fatalf("expected re-arm after result, got %+v", s)
	}
}

func TestTooEarlyCancelsSignal(t *testing.T) {
	h := newHarness(t, 0)
	h.on(h.timer.Press)
	h.advance(500 * time.Millisecond)

	s := h.on(h.timer.Press)
	if s.Phase != PhaseTooEarly || s.Label != "Too Early!" || s.Status != "Fail" {
		t.Fatalf("expected too early, got %+v", s)
	}
	if h.clock.Pending() != 0 {
		t.Fatal("pending signal not cancelled")
	}

	h.advance(10 * time.Second)
	if got := h.on(h.timer.State); got.Phase != PhaseTooEarly {
		t.Fatalf("cancelled signal changed state: %+v", got)
	}
	if len(h.signals) != 0 {
		t.Fatal("signal callback ran after cancellation")
	}
}

func TestStaleSignalDoesNotLeakIntoNextRound(t *testing.T) {
	h := newHarness(t, 0)
	h.on(h.timer.Press)
	h.on(h.timer.Press) // too early
	h.on(h.timer.Press) // new round, signal 1s from now

	h.advance(999 * time.Millisecond)
	if got := h.on(h.timer.State); got.Phase != PhaseArmed {
		t.Fatalf("stale signal fired into the new round: %+v", got)
	}
	h.advance(time.Millisecond)
	if got := h.on(h.timer.State); got.Phase != PhaseReady {
		t.Fatalf("expected ready, got %+v", got)
	}
}

func TestTeardownCancelsSignal(t *testing.T) {
	h := newHarness(t, 0)
	h.on(h.timer.Press)
	_ = h.loop.Do(h.timer.Teardown)

	h.advance(5 * time.Second)
	if len(h.signals) != 0 {
		t.Fatal("signal fired after teardown")
	}
	if s := h.on(h.timer.Press); s.Phase != PhaseIdle {
		t.Fatalf("torn-down timer accepted input: %+v", s)
	}
}

func TestStartRearms(t *testing.T) {
	h := newHarness(t, 0)
	h.on(h.timer.Press)
	h.advance(800 * time.Millisecond)
	h.on(h.timer.Start)
	if h.clock.Pending() != 1 {
		t.Fatalf("expected exactly one pending signal, got %d", h.clock.Pending())
	}
	h.advance(800 * time.Millisecond)
	if got := h.on(h.timer.State); got.Phase != PhaseArmed {
		t.Fatalf("restart kept the old deadline: %+v", got)
	}
}
