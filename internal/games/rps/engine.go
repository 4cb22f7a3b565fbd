// Package rps plays single rounds of rock-paper-scissors against a random bot.
package rps

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// ErrInvalidChoice is returned for input that names no weapon.
var ErrInvalidChoice = errors.New("rps: invalid choice")

// Choice is a weapon.
type Choice string

const (
	Rock     Choice = "rock"
	Paper    Choice = "paper"
	Scissors Choice = "scissors"
)

// Choices lists the weapons in the order the bot draws from.
var Choices = [3]Choice{Rock, Paper, Scissors}

var emoji = map[Choice]string{
	Rock:     "🪨",
	Paper:    "📄",
	Scissors: "\u2702\ufe0f",
}

// Emoji returns the glyph shown for c.
func (c Choice) Emoji() string {
	return emoji[c]
}

// beats maps each choice to the one it defeats.
var beats = map[Choice]Choice{
	Rock:     Scissors,
	Paper:    Rock,
	Scissors: Paper,
}

// ParseChoice accepts a weapon name in any case or its emoji.
func ParseChoice(s string) (Choice, error) {
	s = strings.TrimSpace(s)
	for _, c := range Choices {
		if strings.EqualFold(s, string(c)) || s == emoji[c] || s == strings.TrimSuffix(emoji[c], "\ufe0f") {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidChoice, s)
}

// Outcome is the result from the player's point of view.
type Outcome string

const (
	Win  Outcome = "win"
	Lose Outcome = "lose"
	Tie  Outcome = "tie"
)

// Resolve applies the fixed rule table.
func Resolve(player, bot Choice) Outcome {
	switch {
	case player == bot:
		return Tie
	case beats[player] == bot:
		return Win
	default:
		return Lose
	}
}

// Round is the record of one play.
type Round struct {
	Player  Choice  `json:"player"`
	Bot     Choice  `json:"bot"`
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message"`
}

func (r Round) headline() string {
	switch r.Outcome {
	case Win:
		return "Win!"
	case Lose:
		return "Lose!"
	default:
		return "Tie!"
	}
}

// Rand is the randomness the bot draws from.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// State is what the game shows between rounds.
type State struct {
	Message string `json:"message"`
	Last    *Round `json:"last,omitempty"`
}

// Engine resolves rounds. It keeps only the last round for display.
type Engine struct {
	rng  Rand
	last *Round
}

// New returns an engine drawing from rng, or from math/rand/v2 when rng is nil.
func New(rng Rand) *Engine {
	if rng == nil {
		rng = globalRand{}
	}
	return &Engine{rng: rng}
}

// Play resolves one round against a uniformly drawn bot choice.
func (e *Engine) Play(player Choice) (Round, error) {
	if _, ok := beats[player]; !ok {
		return Round{}, fmt.Errorf("%w: %q", ErrInvalidChoice, player)
	}
	bot := Choices[e.rng.IntN(len(Choices))]
	r := Round{Player: player, Bot: bot, Outcome: Resolve(player, bot)}
	r.Message = fmt.Sprintf("You: %s | Bot: %s %s", player.Emoji(), bot.Emoji(), r.headline())
	e.last = &r
	return r, nil
}

// State returns the prompt, or the last round once one was played.
func (e *Engine) State() State {
	if e.last == nil {
		return State{Message: "Choose your weapon"}
	}
	r := *e.last
	return State{Message: r.Message, Last: &r}
}
