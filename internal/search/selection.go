package search

import (
	"fmt"
	"strings"
)

// Selection tracks which engine a page session submits searches to.
// It is not safe for concurrent use; the owning session serializes access.
type Selection struct {
	catalog *Catalog
	current Engine
}

// NewSelection starts a selection on defaultID, or on the first catalog
// engine when defaultID is unknown.
func NewSelection(catalog *Catalog, defaultID string) *Selection {
	e, ok := catalog.Lookup(defaultID)
	if !ok {
		e = catalog.engines[0]
	}
	return &Selection{catalog: catalog, current: e}
}

// Current returns the selected engine.
func (s *Selection) Current() Engine {
	return s.current
}

// Select switches to the engine with the given id or alias.
func (s *Selection) Select(id string) (Engine, error) {
	e, ok := s.catalog.Lookup(id)
	if !ok {
		return Engine{}, fmt.Errorf("%w: %q", ErrUnknownEngine, id)
	}
	s.current = e
	return e, nil
}

// SubmitURL builds the URL a search for query is routed to.
func (s *Selection) SubmitURL(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	return s.current.URL(query), nil
}
