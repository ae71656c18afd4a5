package errors

// ErrorLogger records a single error line tagged with a hash code and the
// id of the user the error happened for. Empty strings mean unknown.
type ErrorLogger interface {
	Error(err error, hashCode, userID string)
}

// LogAndWrap logs err the first time it is handled and returns an APIError
// marked as logged, so that every caller further up the chain can hand it
// on without logging it again.
//
// An error that is already logged is returned unchanged. Otherwise the hash
// code is taken from the error itself, falling back to fallbackHashCode, and
// exactly one line is written to logger. The returned error keeps the
// original message, status code and user message; data replaces the
// original payload when non-nil.
func LogAndWrap(logger ErrorLogger, err error, fallbackHashCode string, data any) error {
	if err == nil {
		return nil
	}

	apiErr := Classify(err)
	if apiErr.Logged {
		return err
	}

	hashCode := apiErr.HashCode
	if hashCode == "" {
		hashCode = fallbackHashCode
	}

	if logger != nil {
		logger.Error(err, hashCode, "")
	}

	if data == nil {
		data = apiErr.Data
	}

	return &APIError{
		Message:     apiErr.Message,
		StatusCode:  apiErr.StatusCode,
		HashCode:    hashCode,
		UserMessage: apiErr.UserMessage,
		Logged:      true,
		Data:        data,
		Cause:       err,
	}
}
