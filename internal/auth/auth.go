// Package auth holds the permission checks applied to the request session.
package auth

import (
	"net/http"
	"strings"

	"github.com/daimoniac/apilog/internal/session"
)

// Permissions that grant super admin rights, compared case-insensitively
const (
	PermSuperAdmin   = "WEBAPP SUPER ADMIN"
	PermTier3Support = "TIER 3 SUPPORT"
)

// ClientCertHeader carries the client certificate common name set by the
// TLS terminating proxy.
const ClientCertHeader = "SSL_CLIENT_S_DN_CN"

// IsSuperAdmin reports whether the session user holds a super admin
// permission. Missing session, user or permissions all yield false.
func IsSuperAdmin(s *session.Session) bool {
	if s == nil || s.User == nil {
		return false
	}

	for _, p := range s.User.Perms {
		if strings.EqualFold(p, PermSuperAdmin) || strings.EqualFold(p, PermTier3Support) {
			return true
		}
	}
	return false
}

// UserID returns the id of the session user. Requests without a session
// user yield "Unknown"; a user without an id falls back to the client
// certificate common name.
func UserID(r *http.Request, s *session.Session) string {
	if s == nil || s.User == nil {
		return "Unknown"
	}
	if s.User.ID != "" {
		return s.User.ID
	}
	if r == nil {
		return ""
	}
	return r.Header.Get(ClientCertHeader)
}
