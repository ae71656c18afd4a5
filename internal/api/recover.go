package api

import (
	"fmt"
	"net/http"

	apierrors "github.com/daimoniac/apilog/internal/errors"
)

// recoverMiddleware turns a handler panic into a logged 500 response. If
// the handler already started its response, the panic is only logged.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}

			s.logger.LogPanic(v)
			if rec.wroteHeader {
				return
			}
			SendError(s.logger, w, r, &apierrors.APIError{
				Message:    fmt.Sprint(v),
				StatusCode: http.StatusInternalServerError,
				HashCode:   "PANIC",
				Logged:     true,
			}, "PANIC")
		}()

		next.ServeHTTP(rec, r)
	})
}
