package api

import (
	"encoding/json"
	"html"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimoniac/apilog/internal/auth"
)

// traceMessage returns the status line of an admin response, unescaped
func traceMessage(t *testing.T, body string) string {
	t.Helper()

	parts := strings.Split(body, "<br>")
	require.Len(t, parts, 4, "unexpected admin body %q", body)
	return html.UnescapeString(parts[0])
}

func TestTraceAdmin_RequiresSuperAdmin(t *testing.T) {
	ts := newTestServer(t, true)
	user := ts.login(t, "jdoe", "reader")

	for _, target := range []string{
		"/admin/trace/add?component=X",
		"/admin/trace/remove?component=X",
		"/admin/trace/clear",
		"/admin/trace/list",
		"/admin/trace/exact?value=true",
	} {
		for _, cookie := range []*http.Cookie{nil, user} {
			w := ts.do(http.MethodGet, target, cookie)
			assert.Equal(t, http.StatusForbidden, w.Code, target)

			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, map[string]string{"message": "Permission denied"}, body)
		}
	}

	_, ok := ts.tracer.Levels("X")
	assert.False(t, ok, "denied requests must not mutate the registry")
	assert.False(t, ts.tracer.Exact())
}

func TestTraceAdmin_OpenWithoutAuth(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(http.MethodGet, "/admin/trace/add?component=X", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `Added component "X"`, traceMessage(t, w.Body.String()))
	assert.True(t, ts.tracer.Enabled("X"))
}

func TestTraceAdmin_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(http.MethodDelete, "/admin/trace/clear", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestTraceAdmin_Lifecycle(t *testing.T) {
	ts := newTestServer(t, true)
	admin := ts.login(t, "root", strings.ToLower(auth.PermSuperAdmin))

	steps := []struct {
		target  string
		status  int
		message string
	}{
		{"/admin/trace/add?component=X&level=5", http.StatusOK, `Added level 5 for component "X"`},
		{"/admin/trace/add?component=X&level=5", http.StatusOK, `Level 5 already exists for component "X"`},
		{"/admin/trace/add?component=X&level=2", http.StatusOK, `Added level 2 for component "X"`},
		{"/admin/trace/add?component=Y", http.StatusOK, `Added component "Y"`},
		{"/admin/trace/list", http.StatusOK, `Components: {"X":{"levels":[2,5]},"Y":{"levels":[]}}`},
		{"/admin/trace/remove?component=X&level=7", http.StatusOK, `Level 7 for component "X" doesn't exist`},
		{"/admin/trace/remove?component=X&level=2", http.StatusOK, `Deleted level 2 for component "X"`},
		{"/admin/trace/remove?component=Z&level=2", http.StatusOK, `Component "Z" doesn't exist`},
		{"/admin/trace/remove?component=X", http.StatusOK, `Deleted component "X"`},
		{"/admin/trace/remove?component=X", http.StatusOK, `Component "X" doesn't exist`},
		{"/admin/trace/list", http.StatusOK, `Components: {"Y":{"levels":[]}}`},
		{"/admin/trace/exact?value=TRUE", http.StatusOK, "Value of exact set to true"},
		{"/admin/trace/clear", http.StatusOK, "Cleared all components"},
		{"/admin/trace/list", http.StatusOK, "Components: {}"},
	}

	for _, step := range steps {
		w := ts.do(http.MethodGet, step.target, admin)
		require.Equal(t, step.status, w.Code, step.target)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, step.message, traceMessage(t, w.Body.String()), step.target)
	}

	assert.True(t, ts.tracer.Exact(), "clear keeps exact mode")
}

func TestTraceAdmin_Footer(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(http.MethodPost, "/admin/trace/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)

	parts := strings.Split(w.Body.String(), "<br>")
	require.Len(t, parts, 4)
	assert.Equal(t, "Process 0", parts[1])
	assert.Equal(t, "HOST_ID host-a", parts[2])
	assert.Equal(t, "hostname "+html.EscapeString(ts.hostname), parts[3])
}

func TestTraceAdmin_InvalidInput(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		target  string
		message string
	}{
		{"/admin/trace/add", `Required query parameter "component" is missing`},
		{"/admin/trace/add?component=X&level=high", `level must be an integer, got "high"`},
		{"/admin/trace/remove", "Component must be provided"},
		{"/admin/trace/remove?component=X&level=1.5", `level must be an integer, got "1.5"`},
		{"/admin/trace/exact", `Query parameter "value" must be true or false`},
		{"/admin/trace/exact?value=yes", `Query parameter "value" must be true or false`},
		{"/admin/trace/add?component=db%FF", "Component name must be valid UTF-8"},
		{"/admin/trace/add?component=db%FF&level=3", "Component name must be valid UTF-8"},
		{"/admin/trace/remove?component=db%FF", "Component name must be valid UTF-8"},
	}

	for _, tt := range tests {
		w := ts.do(http.MethodGet, tt.target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, tt.target)
		assert.Equal(t, tt.message, traceMessage(t, w.Body.String()), tt.target)
	}

	assert.Empty(t, ts.tracer.Snapshot())
	assert.False(t, ts.tracer.Exact())
}

func TestTraceAdmin_QuotesComponentVerbatim(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(http.MethodGet, `/admin/trace/add?component=a%22b%5Cc&level=2`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `Added level 2 for component "a"b\c"`, traceMessage(t, w.Body.String()))
}

func TestTraceAdmin_GatesLogger(t *testing.T) {
	ts := newTestServer(t, false)
	admin := ts.login(t, "root", auth.PermSuperAdmin)

	ts.logs.Reset()
	ts.do(http.MethodGet, "/api/v1/whoami", admin)
	assert.NotContains(t, ts.logs.String(), "whoami root")

	ts.do(http.MethodGet, "/admin/trace/add?component=api&level=1", nil)
	ts.do(http.MethodGet, "/api/v1/whoami", admin)
	assert.Contains(t, ts.logs.String(), "whoami root")
}
