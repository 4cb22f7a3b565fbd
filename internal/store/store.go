// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/glossy/internal/domain"
)

// Repository defines the interface for persisting visitors and the
// diagnostic chat log.
type Repository interface {
	// GetUser retrieves a user by their user ID. It returns nil, nil when
	// the user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// AppendChatLog writes chat log entries in one transaction.
	AppendChatLog(ctx context.Context, entries []domain.ChatLogEntry) error

	// PruneChatLog deletes chat log rows created before olderThan.
	PruneChatLog(ctx context.Context, olderThan time.Time) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
