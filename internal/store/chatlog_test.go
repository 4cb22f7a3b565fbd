package store

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/glossy/internal/domain"
)

type memWriter struct {
	mu      sync.Mutex
	batches [][]domain.ChatLogEntry
	block   chan struct{}
}

func (w *memWriter) AppendChatLog(_ context.Context, entries []domain.ChatLogEntry) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, append([]domain.ChatLogEntry(nil), entries...))
	return nil
}

func (w *memWriter) total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, b := range w.batches {
		n += len(b)
	}
	return n
}

func entry(text string) domain.ChatLogEntry {
	return domain.ChatLogEntry{UserID: "u1", SessionID: "tab-1", Message: domain.NewUserMessage(text, time.Now())}
}

func TestChatLoggerFlushesOnClose(t *testing.T) {
	t.Parallel()

	w := &memWriter{}
	l := NewChatLogger(w, ChatLogConfig{Enabled: true, BatchSize: 100, FlushInterval: time.Hour}, slog.Default())
	for i := 0; i < 5; i++ {
		l.Record(entry("hi"))
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if w.total() != 5 {
		t.Fatalf("wrote %d entries, want 5", w.total())
	}
	l.Record(entry("late")) // after close: ignored
	if w.total() != 5 {
		t.Fatal("entry written after close")
	}
}

func TestChatLoggerBatches(t *testing.T) {
	t.Parallel()

	w := &memWriter{}
	l := NewChatLogger(w, ChatLogConfig{Enabled: true, BatchSize: 2, FlushInterval: time.Hour}, nil)
	for i := 0; i < 4; i++ {
		l.Record(entry("hi"))
	}
	_ = l.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(w.batches))
	}
}

func TestChatLoggerFlushesOnInterval(t *testing.T) {
	t.Parallel()

	w := &memWriter{}
	l := NewChatLogger(w, ChatLogConfig{Enabled: true, BatchSize: 100, FlushInterval: 10 * time.Millisecond}, nil)
	defer func() { _ = l.Close() }()
	l.Record(entry("hi"))

	deadline := time.Now().Add(2 * time.Second)
	for w.total() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if w.total() != 1 {
		t.Fatal("entry not flushed on interval")
	}
}

func TestChatLoggerDropsWhenFull(t *testing.T) {
	t.Parallel()

	w := &memWriter{block: make(chan struct{})}
	l := NewChatLogger(w, ChatLogConfig{Enabled: true, QueueSize: 1, BatchSize: 1, FlushInterval: time.Hour}, nil)

	// The first entry is taken by the writer, which then blocks; the
	// second fills the queue; the rest are dropped.
	l.Record(entry("1"))
	deadline := time.Now().Add(2 * time.Second)
	for len(l.queue) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		l.Record(entry("more"))
	}
	if l.Dropped() != 4 {
		t.Fatalf("dropped %d entries, want 4", l.Dropped())
	}
	close(w.block)
	_ = l.Close()
}

func TestChatLoggerDisabled(t *testing.T) {
	t.Parallel()

	w := &memWriter{}
	l := NewChatLogger(w, ChatLogConfig{Enabled: false}, nil)
	l.Record(entry("hi"))
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if w.total() != 0 {
		t.Fatal("disabled logger wrote entries")
	}
}

func TestChatLoggerWritesToSQLite(t *testing.T) {
	s := newTestStore(t)
	l := NewChatLogger(s, ChatLogConfig{Enabled: true}, nil)
	l.Record(entry("hello"))
	l.Record(entry("2+2"))
	_ = l.Close()

	if n := countChatLog(t, s); n != 2 {
		t.Fatalf("chat_log has %d rows, want 2", n)
	}
}
