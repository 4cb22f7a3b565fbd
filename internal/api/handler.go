// Package api provides HTTP handlers for the Glossy API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/glossy/internal/games"
	"github.com/ashureev/glossy/internal/identity"
	"github.com/ashureev/glossy/internal/search"
	"github.com/ashureev/glossy/internal/session"
	"github.com/ashureev/glossy/internal/store"
)

const maxBodyBytes = 64 << 10

// Features reports which optional subsystems initialized.
type Features struct {
	Chat          bool   `json:"chat"`
	Knowledge     bool   `json:"knowledge"`
	Search        bool   `json:"search"`
	Games         bool   `json:"games"`
	ChatLog       bool   `json:"chat_log"`
	DefaultEngine string `json:"default_engine,omitempty"`
}

// Handler provides common handler utilities.
type Handler struct {
	repo     store.Repository
	sessions *session.Manager
	catalog  *search.Catalog
	features Features
}

// NewHandler creates a new Handler with common dependencies. repo and
// catalog may be nil when their subsystems are disabled.
func NewHandler(repo store.Repository, sessions *session.Manager, catalog *search.Catalog, features Features) *Handler {
	return &Handler{
		repo:     repo,
		sessions: sessions,
		catalog:  catalog,
		features: features,
	}
}

// RegisterRoutes registers the API routes. throttle wraps the routes that
// feed input into a session; pass nil to leave them unthrottled.
func (h *Handler) RegisterRoutes(r chi.Router, throttle func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/config", h.GetConfig)

		r.Get("/engines", h.GetEngines)
		r.Post("/engines/select", h.SelectEngine)
		r.Post("/search", h.Search)

		r.Get("/chat/transcript", h.GetTranscript)
		r.Post("/chat/reset", h.ResetChat)

		r.Post("/games/menu", h.ReturnToMenu)
		r.Get("/games/state", h.GetGameState)

		r.Group(func(r chi.Router) {
			if throttle != nil {
				r.Use(throttle)
			}
			r.Post("/chat", h.PostChat)
			r.Post("/games/select", h.SelectGame)
			r.Post("/games/action", h.GameAction)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		Error(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// hub returns the calling tab's session hub.
func (h *Handler) hub(r *http.Request) *session.Hub {
	ctx := r.Context()
	return h.sessions.GetOrCreate(identity.UserIDFromContext(ctx), identity.SessionIDFromContext(ctx))
}

// sessionError maps domain errors onto HTTP statuses.
func sessionError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrChatUnavailable), errors.Is(err, session.ErrSearchUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, session.ErrClosed):
		status = http.StatusGone
	case errors.Is(err, games.ErrUnknownGame), errors.Is(err, search.ErrUnknownEngine):
		status = http.StatusNotFound
	case errors.Is(err, games.ErrStaleSession), errors.Is(err, games.ErrNoActiveGame):
		status = http.StatusConflict
	case errors.Is(err, games.ErrUnknownAction), errors.Is(err, games.ErrInvalidAction), errors.Is(err, search.ErrEmptyQuery):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err, "path", r.URL.Path,
			"user_id", identity.UserIDFromContext(r.Context()))
	}
	Error(w, status, err.Error())
}
