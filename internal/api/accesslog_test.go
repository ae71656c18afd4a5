package api

import (
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/daimoniac/apilog/internal/auth"
	"github.com/daimoniac/apilog/internal/observability"
)

func TestAccessLog_Format(t *testing.T) {
	ts := newTestServer(t, true)
	cookie := ts.login(t, "jdoe")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami?verbose=1", nil)
	req.AddCookie(cookie)
	req.Header.Set(auth.ClientCertHeader, "client-7")
	req.Header.Set("Referer", "https://app.example.com/home")
	req.Header.Set("User-Agent", "curl/8.5.0")
	ts.Handler().ServeHTTP(httptest.NewRecorder(), req)

	line := strings.TrimSuffix(ts.accessLog.String(), "\n")
	pattern := regexp.MustCompile(`^192\.0\.2\.1 - jdoe \d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z ` +
		`"GET /api/v1/whoami\?verbose=1 HTTP/1\.1" client-7 200 \d+ ` +
		`https://app\.example\.com/home curl/8\.5\.0 - \d+\.\d{3} ms$`)
	if !pattern.MatchString(line) {
		t.Errorf("access log line %q does not match %s", line, pattern)
	}
}

func TestAccessLog_Placeholders(t *testing.T) {
	ts := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Del("User-Agent")
	ts.Handler().ServeHTTP(httptest.NewRecorder(), req)

	line := strings.TrimSuffix(ts.accessLog.String(), "\n")
	pattern := regexp.MustCompile(`^192\.0\.2\.1 - userIdFallback \S+ "GET /missing HTTP/1\.1" - 404 \d+ - - - \d+\.\d{3} ms$`)
	if !pattern.MatchString(line) {
		t.Errorf("access log line %q does not match %s", line, pattern)
	}
}

func TestAccessLog_DateIsResponseEnd(t *testing.T) {
	ts := newTestServer(t, false)
	ts.router.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusNoContent)
	})

	start := time.Now()
	ts.do(http.MethodGet, "/slow", nil)

	fields := strings.Fields(ts.accessLog.String())
	if len(fields) < 4 {
		t.Fatalf("unexpected access log line %q", ts.accessLog.String())
	}
	logged, err := time.Parse(accessLogTimeFormat, fields[3])
	if err != nil {
		t.Fatalf("failed to parse date %q: %v", fields[3], err)
	}

	if earliest := start.Add(50 * time.Millisecond).Truncate(time.Millisecond); logged.Before(earliest) {
		t.Errorf("logged date %v is before the response finished (%v)", logged, earliest)
	}
}

func TestAccessLog_OneLinePerRequest(t *testing.T) {
	ts := newTestServer(t, false)

	for i := 0; i < 3; i++ {
		ts.do(http.MethodGet, "/admin/trace/list", nil)
	}

	if n := strings.Count(ts.accessLog.String(), "\n"); n != 3 {
		t.Errorf("Expected 3 access log lines, got %d", n)
	}
}

func TestAccessLog_Metrics(t *testing.T) {
	ts := newTestServer(t, false)
	counter := observability.GetMetrics().HTTPRequests.WithLabelValues(http.MethodPut, "405")
	before := testutil.ToFloat64(counter)

	ts.do(http.MethodPut, "/admin/trace/list", nil)

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("Expected request counter to increase by 1, got %v", got)
	}
}

func TestFormatAccessLog(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	req.Proto, req.ProtoMajor, req.ProtoMinor = "HTTP/2.0", 2, 0
	req.Header.Del("User-Agent")
	req.TLS = &tls.ConnectionState{
		PeerCertificates: []*x509.Certificate{{Subject: pkix.Name{CommonName: "peer-cn"}}},
	}

	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusCreated}
	rec.Header().Set("Content-Length", "42")
	end := time.Date(2024, 3, 1, 12, 30, 45, 123_000_000, time.FixedZone("CET", 3600))

	got := formatAccessLog(req, rec, end, 1500*time.Microsecond)
	want := `2001:db8::1 - userIdFallback 2024-03-01T11:30:45.123Z "POST /upload HTTP/2.0" peer-cn 201 42 - - - 1.500 ms`
	if got != want {
		t.Errorf("formatAccessLog() =\n%q\nwant\n%q", got, want)
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	rec.WriteHeader(http.StatusTeapot)
	rec.WriteHeader(http.StatusOK)
	n, err := rec.Write([]byte("hello"))

	if err != nil || n != 5 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if rec.status != http.StatusTeapot {
		t.Errorf("Expected first status to stick, got %d", rec.status)
	}
	if rec.bytes != 5 {
		t.Errorf("Expected 5 bytes recorded, got %d", rec.bytes)
	}
}
