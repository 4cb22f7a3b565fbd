package api

import (
	"net/http"

	"github.com/ashureev/glossy/internal/games"
)

type selectGameRequest struct {
	Game games.ID `json:"game"`
}

type gameActionRequest struct {
	SessionID uint64 `json:"session_id"`
	games.Action
}

// SelectGame starts a fresh session of the requested game.
func (h *Handler) SelectGame(w http.ResponseWriter, r *http.Request) {
	var req selectGameRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.hub(r).SelectGame(req.Game)
	if err != nil {
		sessionError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// ReturnToMenu ends the active game.
func (h *Handler) ReturnToMenu(w http.ResponseWriter, r *http.Request) {
	if err := h.hub(r).ReturnToMenu(); err != nil {
		sessionError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"menu": games.Menu()})
}

// GameAction applies one input to the active game.
func (h *Handler) GameAction(w http.ResponseWriter, r *http.Request) {
	var req gameActionRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.hub(r).GameAction(req.SessionID, req.Action)
	if err != nil {
		sessionError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// GetGameState returns the active game, or the menu.
func (h *Handler) GetGameState(w http.ResponseWriter, r *http.Request) {
	snap, ok, err := h.hub(r).GameState()
	if err != nil {
		sessionError(w, r, err)
		return
	}
	if !ok {
		JSON(w, http.StatusOK, map[string]interface{}{"menu": games.Menu()})
		return
	}
	JSON(w, http.StatusOK, snap)
}
