// Package identity provides anonymous per-device identity primitives.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/glossy/internal/domain"
	"github.com/ashureev/glossy/internal/store"
)

const (
	AnonCookieName        = "glossy_anon_id"
	SessionHeaderName     = "X-Glossy-Session-ID"
	DefaultSessionIDValue = "default"
	anonCookieMaxAge      = 30 * 24 * time.Hour
	lastSeenResolution    = time.Minute
)

type contextKey int

const (
	userIDKey contextKey = iota
	usernameKey
	sessionIDKey
)

var (
	anonIDPattern    = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// UsernameFromContext extracts the username from the request context.
func UsernameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// WithIdentity returns a context carrying the given identity. Handlers under
// Middleware get this for free; tests and the CLI use it directly.
func WithIdentity(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, usernameKey, deriveUsername(userID))
	return context.WithValue(ctx, sessionIDKey, sanitizeSessionID(sessionID))
}

func generateAnonID() string {
	return "anon_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func isValidAnonID(id string) bool {
	return anonIDPattern.MatchString(id)
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

func deriveUsername(userID string) string {
	if len(userID) > 13 {
		return "anon-" + userID[len(userID)-8:]
	}
	return "anon-user"
}

// ensureUser creates the visitor's row on first sight and otherwise keeps
// last_seen_at fresh to within a minute.
func ensureUser(ctx context.Context, repo store.Repository, userID string) error {
	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	now := time.Now()
	if user != nil {
		if user.IdleFor(now) < lastSeenResolution {
			return nil
		}
		return repo.UpdateLastSeen(ctx, userID, now)
	}

	return repo.UpsertUser(ctx, &domain.User{
		UserID:     userID,
		Username:   deriveUsername(userID),
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func setAnonCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(anonCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func getOrCreateAnonID(w http.ResponseWriter, r *http.Request, isDev bool) string {
	id := ""
	if c, err := r.Cookie(AnonCookieName); err == nil && isValidAnonID(c.Value) {
		id = c.Value
	} else {
		id = generateAnonID()
	}
	setAnonCookie(w, id, isDev)
	return id
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitizeSessionID(sid)
}

// Middleware injects anonymous per-device identity and per-request session
// ID. A nil repo skips persisting the visitor.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := getOrCreateAnonID(w, r, isDev)

			if repo != nil {
				if err := ensureUser(r.Context(), repo, userID); err != nil {
					http.Error(w, `{"error":"failed to initialize anonymous user"}`, http.StatusInternalServerError)
					return
				}
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, usernameKey, deriveUsername(userID))
			ctx = context.WithValue(ctx, sessionIDKey, sessionIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
