package api

import (
	"net/http"
	"strconv"

	"github.com/daimoniac/apilog/internal/auth"
	apierrors "github.com/daimoniac/apilog/internal/errors"
	"github.com/daimoniac/apilog/internal/observability"
	"github.com/daimoniac/apilog/internal/session"
)

// GenericErrorMessage replaces internal error messages for callers that are
// not allowed to see them
const GenericErrorMessage = "An error occurred in the application API"

// ErrorResponse is the JSON body of every error response
type ErrorResponse struct {
	HashCode    string `json:"hashCode,omitempty"`
	Message     string `json:"message"`
	StatusCode  int    `json:"statusCode"`
	UserMessage string `json:"userMessage,omitempty"`
}

// HandlerFunc is an HTTP handler that reports failures by returning them
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle registers h on pattern. Errors returned by h are sent with
// SendError, using hashCode when the error carries none.
func (s *Server) Handle(pattern, hashCode string, h HandlerFunc) {
	s.router.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			SendError(s.logger, w, r, err, hashCode)
		}
	})
}

// SendError writes err as an ErrorResponse.
//
// The raw message is only exposed to super admins and for 403 responses.
// Errors not yet logged are logged once when the request has a session.
func SendError(logger apierrors.ErrorLogger, w http.ResponseWriter, r *http.Request, err error, fallbackHashCode string) {
	apiErr := apierrors.Classify(err)
	if apiErr == nil {
		apiErr = &apierrors.APIError{Message: "unknown error", StatusCode: http.StatusInternalServerError}
		err = apiErr
	}

	hashCode := apiErr.HashCode
	if hashCode == "" {
		hashCode = fallbackHashCode
	}
	status := apiErr.Status()
	sess := session.FromContext(r.Context())

	message := GenericErrorMessage
	if status == http.StatusForbidden || auth.IsSuperAdmin(sess) {
		message = apiErr.Message
	}

	if !apierrors.IsLogged(err) && sess != nil && logger != nil {
		userID := ""
		if sess.User != nil {
			userID = sess.User.ID
		}
		logger.Error(err, hashCode, userID)
	}

	observability.GetMetrics().ErrorResponses.WithLabelValues(strconv.Itoa(status)).Inc()

	_ = writeJSON(w, status, ErrorResponse{
		HashCode:    hashCode,
		Message:     message,
		StatusCode:  status,
		UserMessage: apiErr.UserMessage,
	})
}
