// Package tictactoe implements a two-player 3x3 tic-tac-toe board.
package tictactoe

import "fmt"

// Mark is the content of a board cell.
type Mark string

const (
	Empty Mark = ""
	X     Mark = "X"
	O     Mark = "O"
)

// Status is the game's progress.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusDraw       Status = "draw"
)

// Cells is the number of cells on the board.
const Cells = 9

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// State is a snapshot of the board.
type State struct {
	Board   [Cells]Mark `json:"board"`
	Current Mark        `json:"current"`
	Status  Status      `json:"status"`
	Winner  Mark        `json:"winner,omitempty"`
	Line    []int       `json:"line,omitempty"`
	Message string      `json:"message"`
}

// Engine holds one game. The zero value is not ready; use New.
type Engine struct {
	board   [Cells]Mark
	current Mark
	status  Status
	winner  Mark
	line    []int
	message string
}

// New returns an engine with an empty board and X to move.
func New() *Engine {
	e := &Engine{}
	e.Reset()
	return e
}

// Reset clears the board and gives the first move to X.
func (e *Engine) Reset() State {
	e.board = [Cells]Mark{}
	e.current = X
	e.status = StatusInProgress
	e.winner = Empty
	e.line = nil
	e.message = "Player X's Turn"
	return e.State()
}

// Place marks cell i for the player to move. Placing on an occupied or
// out-of-range cell, or after the game ended, leaves the state unchanged.
func (e *Engine) Place(i int) State {
	if i < 0 || i >= Cells || e.board[i] != Empty || e.status != StatusInProgress {
		return e.State()
	}
	e.board[i] = e.current

	for _, l := range lines {
		if e.board[l[0]] != Empty && e.board[l[0]] == e.board[l[1]] && e.board[l[1]] == e.board[l[2]] {
			e.status = StatusWon
			e.winner = e.current
			e.line = []int{l[0], l[1], l[2]}
			e.message = fmt.Sprintf("%s Wins!", e.current)
			return e.State()
		}
	}
	if e.full() {
		e.status = StatusDraw
		e.message = "Draw!"
		return e.State()
	}

	if e.current == X {
		e.current = O
	} else {
		e.current = X
	}
	e.message = fmt.Sprintf("%s's Turn", e.current)
	return e.State()
}

// State returns a snapshot of the current game.
func (e *Engine) State() State {
	s := State{
		Board:   e.board,
		Current: e.current,
		Status:  e.status,
		Winner:  e.winner,
		Message: e.message,
	}
	if e.line != nil {
		s.Line = append([]int(nil), e.line...)
	}
	return s
}

func (e *Engine) full() bool {
	for _, m := range e.board {
		if m == Empty {
			return false
		}
	}
	return true
}
