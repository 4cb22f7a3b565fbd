// Package search holds the search-engine catalog and builds outbound search
// URLs for the engine selector and the chat assistant's links.
package search

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed engines.yaml
var defaultCatalogYAML []byte

const mediaSearchURL = "https://www.youtube.com/results"

var (
	// ErrUnknownEngine is returned for an id that is not in the catalog.
	ErrUnknownEngine = errors.New("unknown search engine")
	// ErrEmptyQuery is returned when a search is submitted without a query.
	ErrEmptyQuery = errors.New("search query is empty")
)

// Engine describes where a search is submitted and under which parameter.
type Engine struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	SubmitURL string   `yaml:"submit_url" json:"submit_url"`
	Param     string   `yaml:"param" json:"param"`
	Aliases   []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// URL returns the submission URL for query.
func (e Engine) URL(query string) string {
	u, err := url.Parse(e.SubmitURL)
	if err != nil {
		return e.SubmitURL
	}
	q := u.Query()
	q.Set(e.Param, query)
	u.RawQuery = q.Encode()
	return u.String()
}

// Placeholder is the hint shown in the search box for this engine.
func (e Engine) Placeholder() string {
	return "Search " + e.Name + "..."
}

// Catalog is an ordered, validated set of engines.
type Catalog struct {
	engines []Engine
	byID    map[string]int
}

type catalogFile struct {
	Engines []Engine `yaml:"engines"`
}

// LoadCatalog reads a catalog from path, or the built-in catalog when path
// is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalogYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read search catalog: %w", err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic("search: built-in catalog is invalid: " + err.Error())
	}
	return c
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode search catalog: %w", err)
	}
	if len(f.Engines) == 0 {
		return nil, errors.New("search catalog has no engines")
	}

	c := &Catalog{byID: make(map[string]int)}
	for i, e := range f.Engines {
		e.ID = strings.ToLower(strings.TrimSpace(e.ID))
		if e.ID == "" || e.Name == "" || e.Param == "" {
			return nil, fmt.Errorf("search engine %d: id, name and param are required", i)
		}
		u, err := url.Parse(e.SubmitURL)
		if err != nil || !u.IsAbs() {
			return nil, fmt.Errorf("search engine %q: submit_url must be absolute", e.ID)
		}
		for _, key := range append([]string{e.ID}, e.Aliases...) {
			key = strings.ToLower(key)
			if _, dup := c.byID[key]; dup {
				return nil, fmt.Errorf("search engine %q: duplicate id or alias %q", e.ID, key)
			}
			c.byID[key] = len(c.engines)
		}
		c.engines = append(c.engines, e)
	}
	return c, nil
}

// Engines returns the engines in catalog order.
func (c *Catalog) Engines() []Engine {
	out := make([]Engine, len(c.engines))
	copy(out, c.engines)
	return out
}

// Lookup finds an engine by id or alias, case-insensitively.
func (c *Catalog) Lookup(id string) (Engine, bool) {
	i, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Engine{}, false
	}
	return c.engines[i], true
}

// MediaURL returns the video search URL for query.
func MediaURL(query string) string {
	return mediaSearchURL + "?search_query=" + url.QueryEscape(query)
}
