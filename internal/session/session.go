package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned by Store.Get when no live session exists
// for the given id. Expired sessions are reported the same way.
var ErrSessionNotFound = errors.New("session not found")

// User is the authenticated user attached to a session
type User struct {
	ID    string   `json:"id"`
	Perms []string `json:"perms"`
}

// Session is the server-side state of one browser session. User is nil
// until somebody logs in.
type Session struct {
	ID        string    `json:"id"`
	User      *User     `json:"user,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry time. A zero
// ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// NewSession creates a session with a random id for user. A ttl of zero
// creates a session that never expires.
func NewSession(user *User, ttl time.Duration) *Session {
	s := &Session{
		ID:   uuid.NewString(),
		User: user,
	}
	if ttl > 0 {
		s.ExpiresAt = time.Now().Add(ttl)
	}
	return s
}

// Store persists sessions
type Store interface {
	// Get returns the live session with the given id or ErrSessionNotFound
	Get(ctx context.Context, id string) (*Session, error)

	// Save creates or replaces a session
	Save(ctx context.Context, s *Session) error

	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error
}

type contextKey struct{}

// WithSession returns a copy of ctx carrying s
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or nil
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// Middleware resolves the session cookie against store and attaches the
// session to the request context. Requests without a valid session pass
// through untouched.
func Middleware(store Store, cookieName string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			s, err := store.Get(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, ErrSessionNotFound) {
					logger.Warn("session lookup failed",
						"error", err.Error())
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
