package api

import (
	"net/http"

	"github.com/ashureev/glossy/internal/games"
	"github.com/ashureev/glossy/internal/identity"
)

// GetMe returns the current visitor's information.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp := map[string]interface{}{
		"user_id":    userID,
		"username":   identity.UsernameFromContext(r.Context()),
		"session_id": identity.SessionIDFromContext(r.Context()),
	}
	if h.repo != nil {
		user, err := h.repo.GetUser(r.Context(), userID)
		if err != nil {
			Error(w, http.StatusInternalServerError, "failed to load user")
			return
		}
		if user != nil {
			resp["created_at"] = user.CreatedAt
			resp["last_seen_at"] = user.LastSeenAt
		}
	}
	JSON(w, http.StatusOK, resp)
}

// GetConfig returns the enabled features for the page.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"features": h.features,
		"games":    games.Menu(),
	})
}
