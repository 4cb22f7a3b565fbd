// Package intent classifies chat input into a single response strategy.
package intent

import "context"

// Kind tags an Outcome.
type Kind string

const (
	// KindGreeting answers "hi"/"hello".
	KindGreeting Kind = "greeting"
	// KindMediaSearch links to a video search for the query.
	KindMediaSearch Kind = "media_search"
	// KindArithmetic carries an evaluated expression.
	KindArithmetic Kind = "arithmetic"
	// KindKnowledge carries a knowledge-base summary.
	KindKnowledge Kind = "knowledge_summary"
	// KindWebSearch is the terminal fallback to a web search.
	KindWebSearch Kind = "web_search"
	// KindNoMatch means no synchronous strategy applied.
	KindNoMatch Kind = "no_match"
)

// Outcome is the result of resolving one input. Only the fields relevant to
// Kind are set.
type Outcome struct {
	Kind      Kind    `json:"kind"`
	Query     string  `json:"query,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Summary   string  `json:"summary,omitempty"`
	SourceURL string  `json:"source_url,omitempty"`
}

// Greeting returns a greeting outcome.
func Greeting() Outcome { return Outcome{Kind: KindGreeting} }

// MediaSearch returns a media search outcome for query.
func MediaSearch(query string) Outcome { return Outcome{Kind: KindMediaSearch, Query: query} }

// Arithmetic returns an arithmetic outcome.
func Arithmetic(v float64) Outcome { return Outcome{Kind: KindArithmetic, Value: v} }

// Knowledge returns a knowledge summary outcome.
func Knowledge(summary, sourceURL string) Outcome {
	return Outcome{Kind: KindKnowledge, Summary: summary, SourceURL: sourceURL}
}

// WebSearch returns the fallback outcome for query.
func WebSearch(query string) Outcome { return Outcome{Kind: KindWebSearch, Query: query} }

// NoMatch returns the declining outcome.
func NoMatch() Outcome { return Outcome{Kind: KindNoMatch} }

// Summary is a knowledge-base response.
type Summary struct {
	OK      bool
	Type    string
	Extract string
	PageURL string
}

// StandardType is the only summary type the assistant will show.
const StandardType = "standard"

// KnowledgeLookup fetches a summary for a topic.
type KnowledgeLookup interface {
	FetchSummary(ctx context.Context, query string) (Summary, error)
}
