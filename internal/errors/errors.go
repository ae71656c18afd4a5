package errors

import (
	"errors"
	"net/http"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates authentication failure
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates authorization failure
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")
)

// PermissionDenied is the fixed message carried by every 403 error.
const PermissionDenied = "Permission denied"

// APIError is an error classified for an HTTP response. It carries the
// status code, an optional hash code used to correlate identical failures,
// an optional message that is safe to show to any caller, and whether the
// error has already been written to the log.
type APIError struct {
	Message     string
	StatusCode  int
	HashCode    string
	UserMessage string
	Logged      bool
	Data        any
	Cause       error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status code, defaulting to 500 when unset.
func (e *APIError) Status() int {
	if e.StatusCode == 0 {
		return http.StatusInternalServerError
	}
	return e.StatusCode
}

// NewBadRequest creates a 400 error for malformed client input
func NewBadRequest(message, hashCode, userMessage string) error {
	return &APIError{
		Message:     message,
		StatusCode:  http.StatusBadRequest,
		HashCode:    hashCode,
		UserMessage: userMessage,
	}
}

// NewForbidden creates a 403 error. Its message is always PermissionDenied.
func NewForbidden(userMessage, hashCode string) error {
	return &APIError{
		Message:     PermissionDenied,
		StatusCode:  http.StatusForbidden,
		HashCode:    hashCode,
		UserMessage: userMessage,
	}
}

// NewInternal creates a 500 error
func NewInternal(message, hashCode, userMessage string) error {
	return &APIError{
		Message:     message,
		StatusCode:  http.StatusInternalServerError,
		HashCode:    hashCode,
		UserMessage: userMessage,
	}
}

// Classify returns the APIError found in err's chain. Plain errors are
// wrapped in a new, unlogged APIError whose status code is derived from the
// known sentinels and left unset otherwise. Returns nil if err is nil.
func Classify(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	return &APIError{
		Message:    err.Error(),
		StatusCode: sentinelStatus(err),
		Cause:      err,
	}
}

func sentinelStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return 0
	}
}

// IsLogged reports whether err has already been written to the log
func IsLogged(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Logged
}

// StatusCode returns the HTTP status code for err, 500 when unknown
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return Classify(err).Status()
}
