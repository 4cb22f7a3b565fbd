package session

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/glossy/internal/eventloop"
)

func newTestManager(t *testing.T) (*Manager, *eventloop.ManualClock) {
	t.Helper()
	clock := eventloop.NewManualClock(time.Unix(1_700_000_000, 0))
	m := NewManager(testDeps(clock))
	t.Cleanup(m.CloseAll)
	return m, clock
}

func TestManager_GetOrCreate(t *testing.T) {
	m, _ := newTestManager(t)

	h1 := m.GetOrCreate("user123", "tab-1")
	if h2 := m.GetOrCreate("user123", "tab-1"); h2 != h1 {
		t.Fatal("expected the same hub for the same tab")
	}
	if h3 := m.GetOrCreate("user123", "tab-2"); h3 == h1 {
		t.Fatal("expected a separate hub per tab")
	}
	if m.Get("user123", "tab-1") != h1 {
		t.Fatal("Get did not return the registered hub")
	}
	if m.Count() != 2 {
		t.Fatalf("Count = %d, want 2", m.Count())
	}
}

func TestManager_Close(t *testing.T) {
	m, _ := newTestManager(t)
	h := m.GetOrCreate("user123", "tab-1")
	other := m.GetOrCreate("user123", "tab-2")

	m.Close("user123", "tab-1")
	if m.Get("user123", "tab-1") != nil {
		t.Fatal("closed hub still registered")
	}
	if _, err := h.Transcript(); err != ErrClosed {
		t.Fatalf("expected closed hub, got %v", err)
	}
	if m.Get("user123", "tab-2") != other {
		t.Fatal("closing one tab affected another")
	}
}

func TestManager_CloseUser(t *testing.T) {
	m, _ := newTestManager(t)
	m.GetOrCreate("a", "tab-1")
	m.GetOrCreate("a", "tab-2")
	keep := m.GetOrCreate("b", "tab-1")

	m.CloseUser("a")
	if m.Count() != 1 || m.Get("b", "tab-1") != keep {
		t.Fatalf("CloseUser removed the wrong hubs, %d left", m.Count())
	}
}

func TestManager_CloseIdle(t *testing.T) {
	m, clock := newTestManager(t)
	stale := m.GetOrCreate("a", "tab-1")
	clock.Advance(20 * time.Minute)
	fresh := m.GetOrCreate("b", "tab-1")
	clock.Advance(15 * time.Minute)

	idle := m.CloseIdle(30 * time.Minute)
	if len(idle) != 1 || idle[0] != stale {
		t.Fatalf("expected only the stale hub to be reaped, got %d", len(idle))
	}
	if m.Get("b", "tab-1") != fresh {
		t.Fatal("fresh hub was reaped")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m, _ := newTestManager(t)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				m.GetOrCreate("concurrentUser", "tab-"+strconv.Itoa(i))
			}
		}()
	}
	wg.Wait()
	if m.Count() != 50 {
		t.Fatalf("Count = %d, want 50", m.Count())
	}
}

type fakePruner struct {
	cutoffs []time.Time
}

func (p *fakePruner) PruneChatLog(_ context.Context, olderThan time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, olderThan)
	return 3, nil
}

func TestReapOnce(t *testing.T) {
	m, clock := newTestManager(t)
	m.GetOrCreate("a", "tab-1")
	clock.Advance(time.Hour)

	pruner := &fakePruner{}
	var reaped []string
	reapOnce(context.Background(), m, pruner, ReaperConfig{
		IdleTTL:      30 * time.Minute,
		LogRetention: 24 * time.Hour,
	}, func(userID, sessionID string) {
		reaped = append(reaped, userID+"/"+sessionID)
	})

	if len(reaped) != 1 || reaped[0] != "a/tab-1" {
		t.Fatalf("unexpected reaped hubs %v", reaped)
	}
	if len(pruner.cutoffs) != 1 || !pruner.cutoffs[0].Equal(clock.Now().Add(-24*time.Hour)) {
		t.Fatalf("unexpected prune cutoffs %v", pruner.cutoffs)
	}
}

func TestStartReaperStopsOnCancel(t *testing.T) {
	m, _ := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := StartReaper(ctx, m, nil, ReaperConfig{Interval: time.Hour, IdleTTL: time.Minute}, nil)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
