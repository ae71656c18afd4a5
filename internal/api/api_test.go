package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/daimoniac/apilog/internal/auth"
	"github.com/daimoniac/apilog/internal/config"
	"github.com/daimoniac/apilog/internal/observability"
	"github.com/daimoniac/apilog/internal/session"
	"github.com/daimoniac/apilog/internal/tracing"
)

// testServer bundles a Server with the collaborators tests inspect
type testServer struct {
	*Server
	tracer    *tracing.Registry
	store     *session.MemoryStore
	logs      *bytes.Buffer
	accessLog *bytes.Buffer
}

func newTestServer(t *testing.T, requireAuth bool) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080, AccessLog: true},
		Admin: config.AdminConfig{
			RequireAuth: requireAuth,
			ProcessID:   "0",
			HostID:      "host-a",
		},
		Session: config.SessionConfig{Store: "memory", CookieName: "sid"},
	}

	tracer := tracing.NewRegistry()
	logs := &bytes.Buffer{}
	logger := observability.NewLogger(observability.Options{
		Level:  "debug",
		Format: "json",
		Writer: logs,
	}, tracer)

	store := session.NewMemoryStore()
	accessLog := &bytes.Buffer{}

	return &testServer{
		Server:    NewServer(cfg, logger, tracer, store, WithAccessLog(accessLog)),
		tracer:    tracer,
		store:     store,
		logs:      logs,
		accessLog: accessLog,
	}
}

// login stores a session for userID with perms and returns its cookie
func (ts *testServer) login(t *testing.T, userID string, perms ...string) *http.Cookie {
	t.Helper()

	sess, err := session.Create(context.Background(), ts.store, &session.User{ID: userID, Perms: perms}, 0)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session.Cookie("sid", sess)
}

func (ts *testServer) do(method, target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestNewServer(t *testing.T) {
	ts := newTestServer(t, true)

	if ts.router == nil {
		t.Error("Expected router to be initialized")
	}
	if ts.server == nil || ts.server.Addr != ":8080" {
		t.Errorf("Expected server on :8080, got %+v", ts.server)
	}
	if ts.hostname == "" {
		t.Error("Expected hostname to be resolved")
	}
}

func TestNewServer_AccessLogDisabled(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{Port: 8080, AccessLog: false},
		Session: config.SessionConfig{CookieName: "sid"},
	}

	s := NewServer(cfg, observability.Nop(), tracing.NewRegistry(), session.NewMemoryStore())
	if s.accessLog != nil {
		t.Error("Expected no access log writer when access logging is disabled")
	}
}

func TestWhoAmI(t *testing.T) {
	ts := newTestServer(t, true)
	cookie := ts.login(t, "jdoe", auth.PermTier3Support)

	w := ts.do(http.MethodGet, "/api/v1/whoami", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp WhoAmIResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.UserID != "jdoe" || !resp.SuperAdmin {
		t.Errorf("unexpected whoami response: %+v", resp)
	}
}

func TestWhoAmI_NoSession(t *testing.T) {
	ts := newTestServer(t, true)

	w := ts.do(http.MethodGet, "/api/v1/whoami", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected status 403, got %d", w.Code)
	}

	resp := decodeError(t, w)
	if resp.Message != "Permission denied" {
		t.Errorf("Expected permission denied message, got %q", resp.Message)
	}
	if resp.HashCode != "WHOAMI" {
		t.Errorf("Expected route hash code, got %q", resp.HashCode)
	}
	if resp.UserMessage != "Please log in" {
		t.Errorf("Expected user message, got %q", resp.UserMessage)
	}
}

func TestWhoAmI_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, true)

	w := ts.do(http.MethodDelete, "/api/v1/whoami", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, true)
	cookie := ts.login(t, "jdoe")

	w := ts.do(http.MethodPost, "/api/v1/logout", cookie)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d: %s", w.Code, w.Body.String())
	}

	if _, err := ts.store.Get(context.Background(), cookie.Value); err != session.ErrSessionNotFound {
		t.Errorf("Expected session to be deleted, got %v", err)
	}

	w = ts.do(http.MethodGet, "/api/v1/whoami", cookie)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected revoked session to be rejected, got %d", w.Code)
	}
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t, true)

	w := ts.do(http.MethodGet, "/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}

	resp := decodeError(t, w)
	if resp.Message != GenericErrorMessage {
		t.Errorf("Expected generic message for anonymous caller, got %q", resp.Message)
	}
	if resp.HashCode != "NOTFOUND" {
		t.Errorf("Expected NOTFOUND hash code, got %q", resp.HashCode)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	ts := newTestServer(t, true)
	ts.router.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})
	cookie := ts.login(t, "admin", auth.PermSuperAdmin)

	w := ts.do(http.MethodGet, "/boom", cookie)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}

	resp := decodeError(t, w)
	if resp.HashCode != "PANIC" {
		t.Errorf("Expected PANIC hash code, got %q", resp.HashCode)
	}
	if resp.Message != "kaboom" {
		t.Errorf("Expected super admin to see the panic value, got %q", resp.Message)
	}

	if !bytes.Contains(ts.logs.Bytes(), []byte("Uncaught exception has occurred kaboom")) {
		t.Errorf("Expected panic to be logged, got %s", ts.logs.String())
	}
	if bytes.Count(ts.logs.Bytes(), []byte(`"hash_code"`)) != 0 {
		t.Error("panic already logged, SendError must not log it again")
	}
}

func TestRecoverMiddleware_AfterPartialResponse(t *testing.T) {
	ts := newTestServer(t, true)
	ts.router.HandleFunc("/half", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("partial"))
		panic("late failure")
	})

	w := ts.do(http.MethodGet, "/half", nil)

	if w.Code != http.StatusAccepted {
		t.Errorf("Expected the handler's status to stand, got %d", w.Code)
	}
	if w.Body.String() != "partial" {
		t.Errorf("Expected no error body appended, got %q", w.Body.String())
	}
	if !bytes.Contains(ts.logs.Bytes(), []byte("Uncaught exception has occurred late failure")) {
		t.Errorf("Expected panic to be logged, got %s", ts.logs.String())
	}
}

func TestSwaggerDoc(t *testing.T) {
	ts := newTestServer(t, true)

	w := ts.do(http.MethodGet, "/swagger/doc.json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths       map[string]map[string]json.RawMessage `json:"paths"`
		Definitions map[string]json.RawMessage             `json:"definitions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatalf("doc.json is not valid JSON: %v", err)
	}

	if doc.Info.Title != "apilog API" {
		t.Errorf("unexpected title %q", doc.Info.Title)
	}
	for path, method := range map[string]string{
		"/admin/trace/add":    "get",
		"/admin/trace/remove": "get",
		"/admin/trace/clear":  "get",
		"/admin/trace/list":   "get",
		"/admin/trace/exact":  "get",
		"/api/v1/whoami":      "get",
		"/api/v1/logout":      "post",
	} {
		if _, ok := doc.Paths[path][method]; !ok {
			t.Errorf("doc.json is missing %s %s", method, path)
		}
	}
	if _, ok := doc.Definitions["api.ErrorResponse"]; !ok {
		t.Error("doc.json is missing the error response model")
	}
}

func TestSwaggerUI(t *testing.T) {
	ts := newTestServer(t, true)

	w := ts.do(http.MethodGet, "/swagger/index.html", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "swagger-ui") {
		t.Error("expected the swagger UI page")
	}
}
