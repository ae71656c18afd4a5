package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Create makes a session for user and stores it
func Create(ctx context.Context, store Store, user *User, ttl time.Duration) (*Session, error) {
	s := NewSession(user, ttl)
	if err := store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// Cookie returns the session cookie for s
func Cookie(name string, s *Session) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if !s.ExpiresAt.IsZero() {
		cookie.Expires = s.ExpiresAt
	}
	return cookie
}

// Revoke deletes the session named by the request cookie and expires the
// cookie on the client. Requests without the cookie are a no-op.
func Revoke(ctx context.Context, store Store, w http.ResponseWriter, r *http.Request, cookieName string) error {
	cookie, err := r.Cookie(cookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := store.Delete(ctx, cookie.Value); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return nil
}
