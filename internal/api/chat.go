package api

import (
	"net/http"

	"github.com/ashureev/glossy/internal/domain"
)

type chatRequest struct {
	Message string `json:"message"`
}

// PostChat submits a message to the tab's chat session. The reply arrives
// later over the WebSocket.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	msg, ok, err := h.hub(r).SubmitChat(req.Message)
	if err != nil {
		sessionError(w, r, err)
		return
	}
	if !ok {
		Error(w, http.StatusBadRequest, "message is empty")
		return
	}
	JSON(w, http.StatusAccepted, map[string]interface{}{"message": msg})
}

// GetTranscript returns the tab's conversation.
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.hub(r).Transcript()
	if err != nil {
		sessionError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

// ResetChat clears the tab's conversation.
func (h *Handler) ResetChat(w http.ResponseWriter, r *http.Request) {
	if err := h.hub(r).ResetChat(); err != nil {
		sessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
