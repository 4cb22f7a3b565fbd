package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ashureev/glossy/internal/intent"
)

type fakeLookup struct {
	summary intent.Summary
	err     error
	calls   int
}

func (f *fakeLookup) FetchSummary(_ context.Context, _ string) (intent.Summary, error) {
	f.calls++
	return f.summary, f.err
}

func run(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	cmd := app.CreateRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAskGreeting(t *testing.T) {
	app := NewApp()
	app.Offline = true
	out, err := run(t, app, "ask", "hello", "there")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if strings.TrimSpace(out) != "Hello! I'm Glossy." {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestAskArithmetic(t *testing.T) {
	app := NewApp()
	app.Offline = true
	out, err := run(t, app, "ask", "(1+2)*4")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if strings.TrimSpace(out) != "Result: 12" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestAskKnowledgeSummary(t *testing.T) {
	lookup := &fakeLookup{summary: intent.Summary{
		OK:      true,
		Type:    intent.StandardType,
		Extract: "Go is a programming language.",
		PageURL: "https://en.wikipedia.org/wiki/Go_(programming_language)",
	}}
	app := NewApp()
	app.lookup = lookup
	out, err := run(t, app, "ask", "what", "is", "golang")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if lookup.calls != 1 {
		t.Fatalf("lookup calls = %d", lookup.calls)
	}
	if !strings.Contains(out, "Go is a programming language.") || !strings.Contains(out, "Read more: https://en.wikipedia.org/wiki/") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestAskFallsBackToWebSearch(t *testing.T) {
	app := NewApp()
	app.lookup = &fakeLookup{err: errors.New("network down")}
	out, err := run(t, app, "ask", "tide tables")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	want := "I couldn't find that internally.\nSearch Google: https://www.google.com/search?q=tide+tables\n"
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestCalc(t *testing.T) {
	app := NewApp()
	out, err := run(t, app, "calc", "2^10")
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	if strings.TrimSpace(out) != "1024" {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := run(t, NewApp(), "calc", "tide tables"); err == nil {
		t.Fatal("expected error for non-arithmetic input")
	}
}

func TestEnginesList(t *testing.T) {
	out, err := run(t, NewApp(), "engines")
	if err != nil {
		t.Fatalf("engines: %v", err)
	}
	for _, id := range []string{"google", "bing", "duckduckgo", "yahoo"} {
		if !strings.Contains(out, id) {
			t.Errorf("engine %s missing from %q", id, out)
		}
	}
}

func TestEnginesURL(t *testing.T) {
	out, err := run(t, NewApp(), "engines", "url", "--engine", "ddg", "golang", "channels")
	if err != nil {
		t.Fatalf("engines url: %v", err)
	}
	if strings.TrimSpace(out) != "https://duckduckgo.com/?q=golang+channels" {
		t.Fatalf("unexpected url %q", out)
	}

	if _, err := run(t, NewApp(), "engines", "url", "--engine", "lycos", "x"); err == nil {
		t.Fatal("expected unknown engine error")
	}
}
