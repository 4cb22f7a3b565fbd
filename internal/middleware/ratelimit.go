package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ashureev/glossy/internal/identity"
)

// RateLimiter throttles requests per visitor with a token bucket each.
type RateLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per visitor with the given burst.
// Visitors unseen for ten minutes are forgotten by Sweep.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	return &RateLimiter{
		limit:    limit,
		burst:    burst,
		idle:     10 * time.Minute,
		visitors: make(map[string]*visitor),
	}
}

// Allow reports whether key may make a request now.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()
	return v.limiter.Allow()
}

// Sweep forgets visitors idle for longer than the idle window and returns
// how many were removed.
func (l *RateLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, k)
			n++
		}
	}
	return n
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (l *RateLimiter) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				if n := l.Sweep(now); n > 0 {
					slog.Debug("Rate limiter evicted idle visitors", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Middleware rejects requests over the limit with 429. Requests are keyed
// by visitor ID, or by remote IP before identity is established.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := identity.UserIDFromContext(r.Context())
		if key == "" {
			key = identity.IPFromRequest(r)
		}
		if !l.Allow(key) {
			retry := time.Duration(float64(time.Second) / float64(l.limit))
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
