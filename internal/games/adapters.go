package games

import (
	"fmt"

	"github.com/ashureev/glossy/internal/eventloop"
	"github.com/ashureev/glossy/internal/games/guess"
	"github.com/ashureev/glossy/internal/games/reaction"
	"github.com/ashureev/glossy/internal/games/rps"
	"github.com/ashureev/glossy/internal/games/tictactoe"
)

func unknownAction(game ID, name string) error {
	return fmt.Errorf("%w: %q for %s", ErrUnknownAction, name, game)
}

type tttSession struct{ e *tictactoe.Engine }

func newTicTacToe() *tttSession { return &tttSession{e: tictactoe.New()} }

func (s *tttSession) Game() ID   { return TicTacToe }
func (s *tttSession) State() any { return s.e.State() }
func (s *tttSession) Teardown()  {}

func (s *tttSession) Apply(a Action) error {
	switch a.Name {
	case "place":
		if a.Cell == nil {
			return fmt.Errorf("%w: place needs a cell", ErrInvalidAction)
		}
		s.e.Place(*a.Cell)
	case "reset":
		s.e.Reset()
	default:
		return unknownAction(TicTacToe, a.Name)
	}
	return nil
}

type rpsSession struct{ e *rps.Engine }

func newRPS(rng Rand) *rpsSession {
	var r rps.Rand
	if rng != nil {
		r = rng
	}
	return &rpsSession{e: rps.New(r)}
}

func (s *rpsSession) Game() ID   { return RPS }
func (s *rpsSession) State() any { return s.e.State() }
func (s *rpsSession) Teardown()  {}

func (s *rpsSession) Apply(a Action) error {
	if a.Name != "play" {
		return unknownAction(RPS, a.Name)
	}
	c, err := rps.ParseChoice(a.Choice)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}
	_, err = s.e.Play(c)
	return err
}

type reactionSession struct{ t *reaction.Timer }

func newReaction(loop *eventloop.Loop, rng Rand, notify func(any)) *reactionSession {
	var r reaction.Rand
	if rng != nil {
		r = rng
	}
	return &reactionSession{t: reaction.New(loop, r, func(st reaction.State) { notify(st) })}
}

func (s *reactionSession) Game() ID   { return Reaction }
func (s *reactionSession) State() any { return s.t.State() }
func (s *reactionSession) Teardown()  { s.t.Teardown() }

func (s *reactionSession) Apply(a Action) error {
	switch a.Name {
	case "press":
		s.t.Press()
	case "start":
		s.t.Start()
	case "reset":
		s.t.Reset()
	default:
		return unknownAction(Reaction, a.Name)
	}
	return nil
}

type guessSession struct{ e *guess.Engine }

func newGuess(rng Rand) *guessSession {
	var r guess.Rand
	if rng != nil {
		r = rng
	}
	return &guessSession{e: guess.New(r)}
}

func (s *guessSession) Game() ID   { return Guess }
func (s *guessSession) State() any { return s.e.State() }
func (s *guessSession) Teardown()  {}

func (s *guessSession) Apply(a Action) error {
	switch a.Name {
	case "guess":
		s.e.GuessText(a.Value)
	case "restart":
		s.e.Start()
	default:
		return unknownAction(Guess, a.Name)
	}
	return nil
}
