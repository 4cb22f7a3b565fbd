package intent

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ashureev/glossy/internal/arith"
)

// MaxSummaryRunes is the longest extract shown before truncation.
const MaxSummaryRunes = 300

const mediaPrefix = "watch "

var questionPhrases = regexp.MustCompile(`(?i)what is|who is|define`)

// Resolver runs the strategy pipeline: greeting, media search, arithmetic,
// knowledge lookup, web search. The first strategy that applies wins.
type Resolver struct {
	lookup KnowledgeLookup
	logger *slog.Logger
}

// NewResolver creates a resolver. A nil lookup disables the knowledge step.
func NewResolver(lookup KnowledgeLookup, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{lookup: lookup, logger: logger}
}

// KnowledgeEnabled reports whether the knowledge step can run.
func (r *Resolver) KnowledgeEnabled() bool {
	return r.lookup != nil
}

// Resolve runs the whole pipeline. It always returns a non-NoMatch outcome.
func (r *Resolver) Resolve(ctx context.Context, text string) Outcome {
	text = strings.TrimSpace(text)
	if out := r.ResolveLocal(text); out.Kind != KindNoMatch {
		return out
	}
	if out, ok := r.Lookup(ctx, text); ok {
		return out
	}
	return Fallback(text)
}

// ResolveLocal runs the synchronous strategies and returns NoMatch when none
// of them apply.
func (r *Resolver) ResolveLocal(text string) Outcome {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	if strings.HasPrefix(lower, "hi") || strings.HasPrefix(lower, "hello") {
		return Greeting()
	}
	if len(text) >= len(mediaPrefix) && strings.EqualFold(text[:len(mediaPrefix)], mediaPrefix) {
		return MediaSearch(text[len(mediaPrefix):])
	}
	if arith.Accepts(lower) {
		v, err := arith.Eval(lower)
		if err == nil {
			return Arithmetic(v)
		}
		r.logger.Debug("arithmetic declined", "input", lower, "error", err)
	}
	return NoMatch()
}

// Lookup runs the knowledge step for text. It reports false when the step
// declines: lookup disabled, empty topic, failed or non-standard response,
// or a transport error.
func (r *Resolver) Lookup(ctx context.Context, text string) (Outcome, bool) {
	if r.lookup == nil {
		return Outcome{}, false
	}
	topic := TopicOf(text)
	if topic == "" {
		return Outcome{}, false
	}

	s, err := r.lookup.FetchSummary(ctx, topic)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			r.logger.Debug("knowledge lookup cancelled", "topic", topic)
		} else {
			r.logger.Warn("knowledge lookup failed", "topic", topic, "error", err)
		}
		return Outcome{}, false
	}
	if !s.OK || s.Type != StandardType {
		r.logger.Debug("knowledge lookup declined", "topic", topic, "ok", s.OK, "type", s.Type)
		return Outcome{}, false
	}
	return Knowledge(Truncate(s.Extract, MaxSummaryRunes), s.PageURL), true
}

// Fallback returns the terminal web search outcome for the untouched text.
func Fallback(text string) Outcome {
	return WebSearch(strings.TrimSpace(text))
}

// TopicOf strips question phrases from text and returns the remaining topic.
func TopicOf(text string) string {
	return strings.TrimSpace(questionPhrases.ReplaceAllString(text, ""))
}

// Truncate shortens s to max runes, appending "..." when it cut anything.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
