package api

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/daimoniac/apilog/internal/auth"
	"github.com/daimoniac/apilog/internal/observability"
	"github.com/daimoniac/apilog/internal/session"
)

const accessLogTimeFormat = "2006-01-02T15:04:05.000Z"

// userIDFallback stands in for the user of requests without a session user
const userIDFallback = "userIdFallback"

// statusRecorder captures the status code and body size of a response
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// accessLogMiddleware records request metrics and writes one access log line
// per request
func (s *Server) accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		end := time.Now()
		elapsed := end.Sub(start)
		metrics := observability.GetMetrics()
		metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method).Observe(elapsed.Seconds())

		if s.accessLog != nil {
			fmt.Fprintln(s.accessLog, formatAccessLog(r, rec, end, elapsed))
		}
	})
}

// formatAccessLog renders
//
//	remoteAddr - userId date "METHOD URL HTTP/x.y" certCN status length referrer userAgent - ms ms
//
// date is the time the response finished.
func formatAccessLog(r *http.Request, rec *statusRecorder, end time.Time, elapsed time.Duration) string {
	userID := userIDFallback
	if sess := session.FromContext(r.Context()); sess != nil && sess.User != nil && sess.User.ID != "" {
		userID = sess.User.ID
	}

	length := rec.Header().Get("Content-Length")
	if length == "" && rec.bytes > 0 {
		length = strconv.Itoa(rec.bytes)
	}

	return fmt.Sprintf(`%s - %s %s "%s %s HTTP/%d.%d" %s %d %s %s %s - %.3f ms`,
		orDash(remoteHost(r)),
		userID,
		end.UTC().Format(accessLogTimeFormat),
		r.Method,
		r.URL.RequestURI(),
		r.ProtoMajor, r.ProtoMinor,
		orDash(clientCertCN(r)),
		rec.status,
		orDash(length),
		orDash(r.Referer()),
		orDash(r.UserAgent()),
		float64(elapsed.Microseconds())/1000)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// clientCertCN prefers the CN forwarded by a TLS terminating proxy over the
// peer certificate of a direct TLS connection
func clientCertCN(r *http.Request) string {
	if cn := r.Header.Get(auth.ClientCertHeader); cn != "" {
		return cn
	}
	if r.TLS != nil && len(r.TLS.PeerCertificates) > 0 {
		return r.TLS.PeerCertificates[0].Subject.CommonName
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
