package intent

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeLookup struct {
	summary Summary
	err     error
	calls   []string
}

func (f *fakeLookup) FetchSummary(_ context.Context, query string) (Summary, error) {
	f.calls = append(f.calls, query)
	return f.summary, f.err
}

func TestResolveLocal(t *testing.T) {
	r := NewResolver(nil, nil)

	tests := []struct {
		in    string
		kind  Kind
		query string
		value float64
	}{
		{in: "hi", kind: KindGreeting},
		{in: "Hello there", kind: KindGreeting},
		{in: "HI 5", kind: KindGreeting},
		{in: "hi 2+2", kind: KindGreeting},
		{in: "history of rome", kind: KindGreeting},
		{in: "watch cat videos", kind: KindMediaSearch, query: "cat videos"},
		{in: "Watch Cat Videos", kind: KindMediaSearch, query: "Cat Videos"},
		{in: "  watch 1+1  ", kind: KindMediaSearch, query: "1+1"},
		{in: "2+2", kind: KindArithmetic, value: 4},
		{in: "2^3", kind: KindArithmetic, value: 8},
		{in: "sqrt(9)", kind: KindArithmetic, value: 3},
		{in: "SQRT(16)", kind: KindArithmetic, value: 4},
		{in: "what is 5", kind: KindNoMatch},
		{in: "water", kind: KindNoMatch},
		{in: "1/0", kind: KindNoMatch},
		{in: "watchmen", kind: KindNoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := r.ResolveLocal(tt.in)
			if got.Kind != tt.kind {
				t.Fatalf("ResolveLocal(%q).Kind = %s, want %s", tt.in, got.Kind, tt.kind)
			}
			if got.Query != tt.query {
				t.Fatalf("ResolveLocal(%q).Query = %q, want %q", tt.in, got.Query, tt.query)
			}
			if got.Value != tt.value {
				t.Fatalf("ResolveLocal(%q).Value = %v, want %v", tt.in, got.Value, tt.value)
			}
		})
	}
}

func TestResolveKnowledge(t *testing.T) {
	extract := strings.Repeat("a", 301)
	lookup := &fakeLookup{summary: Summary{OK: true, Type: "standard", Extract: extract, PageURL: "https://x"}}
	r := NewResolver(lookup, nil)

	got := r.Resolve(context.Background(), "what is water")
	if got.Kind != KindKnowledge {
		t.Fatalf("expected knowledge outcome, got %s", got.Kind)
	}
	if got.Summary != strings.Repeat("a", 300)+"..." {
		t.Fatalf("unexpected summary length %d", len(got.Summary))
	}
	if got.SourceURL != "https://x" {
		t.Fatalf("unexpected source url %q", got.SourceURL)
	}
	if len(lookup.calls) != 1 || lookup.calls[0] != "water" {
		t.Fatalf("expected lookup for %q, got %v", "water", lookup.calls)
	}
}

func TestResolveFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		lookup KnowledgeLookup
	}{
		{name: "disabled", lookup: nil},
		{name: "not ok", lookup: &fakeLookup{summary: Summary{OK: false}}},
		{name: "disambiguation", lookup: &fakeLookup{summary: Summary{OK: true, Type: "disambiguation", Extract: "x"}}},
		{name: "network error", lookup: &fakeLookup{err: errors.New("dial tcp: timeout")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.lookup, nil)
			got := r.Resolve(context.Background(), "  Who is Ada Lovelace ")
			if got.Kind != KindWebSearch {
				t.Fatalf("expected web search, got %s", got.Kind)
			}
			if got.Query != "Who is Ada Lovelace" {
				t.Fatalf("fallback must use the untouched text, got %q", got.Query)
			}
		})
	}
}

func TestResolveSkipsLookupForEmptyTopic(t *testing.T) {
	lookup := &fakeLookup{summary: Summary{OK: true, Type: "standard", Extract: "x"}}
	r := NewResolver(lookup, nil)

	got := r.Resolve(context.Background(), "what is")
	if got.Kind != KindWebSearch {
		t.Fatalf("expected web search, got %s", got.Kind)
	}
	if len(lookup.calls) != 0 {
		t.Fatalf("lookup should not run for an empty topic, got %v", lookup.calls)
	}
}

func TestGreetingBeatsArithmetic(t *testing.T) {
	lookup := &fakeLookup{}
	r := NewResolver(lookup, nil)
	if got := r.Resolve(context.Background(), "hi 5"); got.Kind != KindGreeting {
		t.Fatalf("expected greeting, got %s", got.Kind)
	}
	if len(lookup.calls) != 0 {
		t.Fatal("lookup ran for a greeting")
	}
}

func TestTopicOf(t *testing.T) {
	tests := map[string]string{
		"what is water":        "water",
		"Who Is Alan Turing":   "Alan Turing",
		"define entropy":       "entropy",
		"DEFINE what is love":  "love",
		"tell me about comets": "tell me about comets",
	}
	for in, want := range tests {
		if got := TopicOf(in); got != want {
			t.Errorf("TopicOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 300); got != "short" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	exact := strings.Repeat("b", 300)
	if got := Truncate(exact, 300); got != exact {
		t.Fatal("string of exactly max runes must not be truncated")
	}
	multi := strings.Repeat("é", 301)
	got := Truncate(multi, 300)
	if got != strings.Repeat("é", 300)+"..." {
		t.Fatalf("truncation must count runes, got %d bytes", len(got))
	}
}
