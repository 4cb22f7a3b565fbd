package api

import (
	"net/http"

	"github.com/ashureev/glossy/internal/search"
)

type engineView struct {
	search.Engine
	Placeholder string `json:"placeholder"`
}

func viewOf(e search.Engine) engineView {
	return engineView{Engine: e, Placeholder: e.Placeholder()}
}

// GetEngines lists the catalog and the tab's current selection.
func (h *Handler) GetEngines(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		Error(w, http.StatusServiceUnavailable, "search unavailable")
		return
	}
	current, err := h.hub(r).CurrentEngine()
	if err != nil {
		sessionError(w, r, err)
		return
	}
	engines := h.catalog.Engines()
	views := make([]engineView, 0, len(engines))
	for _, e := range engines {
		views = append(views, viewOf(e))
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"engines": views,
		"current": viewOf(current),
	})
}

type selectEngineRequest struct {
	ID string `json:"id"`
}

// SelectEngine changes the tab's search engine.
func (h *Handler) SelectEngine(w http.ResponseWriter, r *http.Request) {
	var req selectEngineRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := h.hub(r).SelectEngine(req.ID)
	if err != nil {
		sessionError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"current": viewOf(e)})
}

type searchRequest struct {
	Query string `json:"query"`
}

// Search returns the results URL on the tab's selected engine.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.hub(r).SearchURL(req.Query)
	if err != nil {
		sessionError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"url": u})
}
