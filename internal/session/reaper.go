package session

import (
	"context"
	"log/slog"
	"time"
)

// ChatLogPruner deletes diagnostic chat log rows older than a cutoff.
type ChatLogPruner interface {
	PruneChatLog(ctx context.Context, olderThan time.Time) (int64, error)
}

// ReaperConfig controls the idle sweep.
type ReaperConfig struct {
	Interval time.Duration
	IdleTTL  time.Duration
	// LogRetention is how long chat log rows are kept. Zero disables pruning.
	LogRetention time.Duration
}

// ReapCallback is called for every hub closed by the reaper.
type ReapCallback func(userID, sessionID string)

// StartReaper runs a background goroutine that periodically closes idle
// hubs and prunes the chat log. It stops when ctx is cancelled; the
// returned channel is closed once it has.
func StartReaper(ctx context.Context, mgr *Manager, pruner ChatLogPruner, cfg ReaperConfig, onReap ReapCallback) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(cfg.Interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		slog.Info("Session reaper started", "interval", cfg.Interval, "idle_ttl", cfg.IdleTTL)

		for {
			select {
			case <-ticker.C:
				reapOnce(ctx, mgr, pruner, cfg, onReap)
			case <-ctx.Done():
				slog.Info("Session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

func reapOnce(ctx context.Context, mgr *Manager, pruner ChatLogPruner, cfg ReaperConfig, onReap ReapCallback) {
	idle := mgr.CloseIdle(cfg.IdleTTL)
	if len(idle) > 0 {
		slog.Info("Session reaper closed idle sessions", "count", len(idle), "remaining", mgr.Count())
	}
	if onReap != nil {
		for _, h := range idle {
			onReap(h.UserID(), h.SessionID())
		}
	}

	if pruner == nil || cfg.LogRetention <= 0 {
		return
	}
	deleted, err := pruner.PruneChatLog(ctx, mgr.Now().Add(-cfg.LogRetention))
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Session reaper: context canceled during chat log prune", "error", err)
			return
		}
		slog.Error("Session reaper failed to prune chat log", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Session reaper pruned chat log", "count", deleted)
	}
}
