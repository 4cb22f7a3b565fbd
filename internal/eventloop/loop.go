// Package eventloop runs session work on a single goroutine.
//
// Every session hub owns one Loop. Chat replies, game transitions and timer
// callbacks are all posted onto it, so the state they touch is only ever
// mutated from one goroutine and needs no locking of its own.
package eventloop

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned when work is submitted to a closed loop.
var ErrClosed = errors.New("event loop closed")

// Loop executes posted functions in FIFO order on one goroutine.
type Loop struct {
	clock  Clock
	logger *slog.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool

	wake    chan struct{}
	stopped chan struct{}
}

// New starts a loop driven by the given clock.
func New(clock Clock, logger *slog.Logger) *Loop {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		clock:   clock,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

// Now returns the loop clock's current time.
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Post queues fn for execution. It reports false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and blocks until it has returned.
// It must not be called from the loop goroutine itself.
func (l *Loop) Do(fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-l.stopped:
		// Close drops queued work; fn may never run.
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	}
}

// AfterFunc schedules fn to run on the loop after d. The returned task can be
// cancelled at any point before fn starts, including after the timer fired
// and fn is already queued.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Task {
	t := &Task{}
	t.timer = l.clock.AfterFunc(d, func() {
		l.Post(func() {
			if !t.state.CompareAndSwap(taskPending, taskRan) {
				return
			}
			fn()
		})
	})
	return t
}

// Close stops the loop. Queued work that has not started is dropped.
// Close waits for the function currently running, if any.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.stopped
		return
	}
	l.closed = true
	l.queue = nil
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.stopped
}

func (l *Loop) run() {
	defer close(l.stopped)
	for range l.wake {
		for {
			l.mu.Lock()
			if l.closed {
				l.mu.Unlock()
				return
			}
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop task panicked", "panic", r)
		}
	}()
	fn()
}

const (
	taskPending int32 = iota
	taskRan
	taskCancelled
)

// Task is a handle to a function scheduled with Loop.AfterFunc.
type Task struct {
	timer Timer
	state atomic.Int32
}

// Cancel prevents the task from running. It is safe to call more than once,
// on a nil task, and after the task ran.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.state.CompareAndSwap(taskPending, taskCancelled)
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Pending reports whether the task has neither run nor been cancelled.
func (t *Task) Pending() bool {
	return t != nil && t.state.Load() == taskPending
}
