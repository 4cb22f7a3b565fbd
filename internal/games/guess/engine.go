// Package guess implements the 1-100 number guessing game.
package guess

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

const (
	// Min is the smallest possible secret.
	Min = 1
	// Max is the largest possible secret.
	Max = 100
)

// Hint is the feedback for a guess.
type Hint string

const (
	HintNone         Hint = "none"
	HintTooLow       Hint = "too_low"
	HintTooHigh      Hint = "too_high"
	HintCorrect      Hint = "correct"
	HintInvalidInput Hint = "invalid_input"
)

var hintText = map[Hint]string{
	HintNone:         "Thinking of 1-100...",
	HintTooLow:       "Too Low",
	HintTooHigh:      "Too High",
	HintCorrect:      "Correct!",
	HintInvalidInput: "Enter a whole number",
}

// Text returns the message shown for h.
func (h Hint) Text() string {
	return hintText[h]
}

// Rand is the randomness the secret is drawn from.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// State is the visible game state. The secret is never exposed.
type State struct {
	Hint     Hint   `json:"hint"`
	Message  string `json:"message"`
	Attempts int    `json:"attempts"`
	Solved   bool   `json:"solved"`
}

// Engine holds one round. Call Start before guessing.
type Engine struct {
	rng      Rand
	secret   int
	last     Hint
	attempts int
	solved   bool
}

// New returns a started engine.
func New(rng Rand) *Engine {
	if rng == nil {
		rng = globalRand{}
	}
	e := &Engine{rng: rng}
	e.Start()
	return e
}

// Start draws a new secret and clears the round.
func (e *Engine) Start() State {
	e.secret = Min + e.rng.IntN(Max-Min+1)
	e.last = HintNone
	e.attempts = 0
	e.solved = false
	return e.State()
}

// Guess compares v against the secret and shows the hint. Once solved,
// guesses are still answered but no longer counted, and Solved stays set.
func (e *Engine) Guess(v int) Hint {
	h := e.compare(v)
	e.last = h
	if e.solved {
		return h
	}
	e.attempts++
	if h == HintCorrect {
		e.solved = true
	}
	return h
}

func (e *Engine) compare(v int) Hint {
	switch {
	case v < e.secret:
		return HintTooLow
	case v > e.secret:
		return HintTooHigh
	default:
		return HintCorrect
	}
}

// GuessText parses raw input as a base-10 integer and guesses it.
// Anything else yields HintInvalidInput and is not counted.
func (e *Engine) GuessText(raw string) Hint {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		e.last = HintInvalidInput
		return HintInvalidInput
	}
	return e.Guess(v)
}

// State returns the visible state.
func (e *Engine) State() State {
	return State{
		Hint:     e.last,
		Message:  e.last.Text(),
		Attempts: e.attempts,
		Solved:   e.solved,
	}
}
