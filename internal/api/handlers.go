package api

import (
	"fmt"
	"net/http"

	"github.com/daimoniac/apilog/internal/auth"
	apierrors "github.com/daimoniac/apilog/internal/errors"
	"github.com/daimoniac/apilog/internal/session"
)

// WhoAmIResponse describes the caller's session
type WhoAmIResponse struct {
	UserID     string   `json:"userId"`
	SuperAdmin bool     `json:"superAdmin"`
	Perms      []string `json:"perms"`
}

// handleWhoAmI describes the user attached to the session
// @Summary Current user
// @Description Describe the user attached to the caller's session
// @Tags Session
// @Produce json
// @Success 200 {object} api.WhoAmIResponse
// @Failure 403 {object} api.ErrorResponse "No logged in session"
// @Router /api/v1/whoami [get]
func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return &apierrors.APIError{Message: "Method not allowed", StatusCode: http.StatusMethodNotAllowed}
	}

	sess := session.FromContext(r.Context())
	if sess == nil || sess.User == nil {
		return apierrors.NewForbidden("Please log in", "")
	}

	s.logger.TraceLevel(fmt.Sprintf("whoami %s", sess.User.ID), "api", 1)

	perms := sess.User.Perms
	if perms == nil {
		perms = []string{}
	}
	s.respondJSON(w, http.StatusOK, WhoAmIResponse{
		UserID:     auth.UserID(r, sess),
		SuperAdmin: auth.IsSuperAdmin(sess),
		Perms:      perms,
	})
	return nil
}

// handleLogout revokes the session
// @Summary Log out
// @Description Delete the caller's session and expire the session cookie
// @Tags Session
// @Success 204
// @Failure 500 {object} api.ErrorResponse "Session store failure"
// @Router /api/v1/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return &apierrors.APIError{Message: "Method not allowed", StatusCode: http.StatusMethodNotAllowed}
	}

	if err := session.Revoke(r.Context(), s.sessions, w, r, s.config.Session.CookieName); err != nil {
		return apierrors.LogAndWrap(s.logger, err, "LOGOUT", nil)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) error {
	return fmt.Errorf("%w: %s", apierrors.ErrNotFound, r.URL.Path)
}
