package shared

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds RetryOnConflict.
type RetryPolicy struct {
	Attempts  uint
	BaseDelay time.Duration
}

// DefaultRetryPolicy retries three times starting at 50ms.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: 50 * time.Millisecond}

// RetryOnConflict runs op and retries it with exponential backoff while it
// fails with a SQLite busy or locked error. Other errors are returned at once.
func RetryOnConflict(ctx context.Context, policy RetryPolicy, what string, op func() error) error {
	if policy.Attempts == 0 {
		policy = DefaultRetryPolicy
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := op()
		if err == nil {
			return struct{}{}, nil
		}
		if !IsSQLiteConflictError(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(policy.Attempts),
		backoff.WithNotify(func(err error, delay time.Duration) {
			slog.Debug("SQLite conflict, retrying", "op", what, "attempt", attempt, "delay", delay, "error", err)
		}),
	)
	return err
}
