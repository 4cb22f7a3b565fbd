package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/glossy/internal/domain"
)

// ChatLogWriter persists batches of chat log entries.
type ChatLogWriter interface {
	AppendChatLog(ctx context.Context, entries []domain.ChatLogEntry) error
}

// ChatLogConfig controls the background chat log writer.
type ChatLogConfig struct {
	Enabled       bool
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
}

// ChatLogger queues chat messages and writes them in batches off the
// request path. Record never blocks; entries are dropped when the queue is
// full.
type ChatLogger struct {
	enabled bool
	writer  ChatLogWriter
	cfg     ChatLogConfig
	logger  *slog.Logger

	queue     chan domain.ChatLogEntry
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	dropped   atomic.Int64
}

// NewChatLogger starts the writer goroutine when cfg.Enabled is set.
func NewChatLogger(writer ChatLogWriter, cfg ChatLogConfig, logger *slog.Logger) *ChatLogger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &ChatLogger{enabled: cfg.Enabled && writer != nil, writer: writer, logger: logger}
	if !l.enabled {
		return l
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	l.cfg = cfg
	l.queue = make(chan domain.ChatLogEntry, cfg.QueueSize)
	l.done = make(chan struct{})
	go l.run()
	return l
}

// Record queues one entry.
func (l *ChatLogger) Record(entry domain.ChatLogEntry) {
	if !l.enabled || l.closed.Load() {
		return
	}
	defer func() {
		// Close may race a late Record; a send on the closed queue is dropped.
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()
	select {
	case l.queue <- entry:
	default:
		if n := l.dropped.Add(1); n == 1 || n%100 == 0 {
			l.logger.Warn("Chat log queue full, dropping entries", "dropped_total", n)
		}
	}
}

// Dropped returns how many entries were discarded.
func (l *ChatLogger) Dropped() int64 {
	return l.dropped.Load()
}

// Close flushes queued entries and stops the writer.
func (l *ChatLogger) Close() error {
	if !l.enabled {
		return nil
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.queue)
		<-l.done
	})
	return nil
}

func (l *ChatLogger) run() {
	defer close(l.done)
	ticker := time.NewTicker(l.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]domain.ChatLogEntry, 0, l.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.writer.AppendChatLog(ctx, batch); err != nil {
			l.logger.Error("Failed to write chat log", "error", err, "entries", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case e, ok := <-l.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, e)
			if len(batch) >= l.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
