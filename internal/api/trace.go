package api

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/daimoniac/apilog/internal/auth"
	apierrors "github.com/daimoniac/apilog/internal/errors"
	"github.com/daimoniac/apilog/internal/observability"
	"github.com/daimoniac/apilog/internal/session"
	"github.com/daimoniac/apilog/internal/tracing"
)

// adminMiddleware restricts trace administration to super admins when the
// deployment requires it
func (s *Server) adminMiddleware(op string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			s.respondJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "Method not allowed"})
			return
		}

		if s.config.Admin.RequireAuth && !auth.IsSuperAdmin(session.FromContext(r.Context())) {
			observability.GetMetrics().TraceAdminOps.WithLabelValues(op, "denied").Inc()
			s.respondJSON(w, http.StatusForbidden, map[string]string{"message": apierrors.PermissionDenied})
			return
		}

		next(w, r)
	}
}

// respondTrace writes the operation outcome followed by the identity of the
// answering instance
func (s *Server) respondTrace(w http.ResponseWriter, op string, status int, msg string) {
	result := "ok"
	if status != http.StatusOK {
		result = "invalid"
	}
	observability.GetMetrics().TraceAdminOps.WithLabelValues(op, result).Inc()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "%s<br>Process %s<br>HOST_ID %s<br>hostname %s",
		html.EscapeString(msg),
		html.EscapeString(s.config.Admin.ProcessID),
		html.EscapeString(s.config.Admin.HostID),
		html.EscapeString(s.hostname))
}

// parseLevel reads the optional level query parameter. ok is false when the
// parameter is absent or empty.
func parseLevel(r *http.Request) (level int, ok bool, err error) {
	raw := strings.TrimSpace(r.URL.Query().Get("level"))
	if raw == "" {
		return 0, false, nil
	}
	level, err = strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("level must be an integer, got \"%s\"", raw)
	}
	return level, true, nil
}

// componentParam reads the component query parameter. Names that cannot
// be registered are answered with a 400 and reported as !ok.
func (s *Server) componentParam(w http.ResponseWriter, r *http.Request, op, missing string) (string, bool) {
	component := r.URL.Query().Get("component")
	switch err := tracing.ValidateName(component); {
	case errors.Is(err, tracing.ErrComponentRequired):
		s.respondTrace(w, op, http.StatusBadRequest, missing)
		return "", false
	case errors.Is(err, tracing.ErrInvalidComponent):
		s.respondTrace(w, op, http.StatusBadRequest, "Component name must be valid UTF-8")
		return "", false
	}
	return component, true
}

// handleTraceAdd registers a component or one of its levels
// @Summary Add trace component or level
// @Description Register a component for tracing, optionally with a trace level. Names must be non-empty UTF-8.
// @Tags Trace
// @Produce html
// @Param component query string true "Component name"
// @Param level query int false "Trace level"
// @Success 200 {string} string "Outcome and answering instance"
// @Failure 400 {string} string "Missing or invalid component or level"
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /admin/trace/add [get]
func (s *Server) handleTraceAdd(w http.ResponseWriter, r *http.Request) {
	component, ok := s.componentParam(w, r, "add", `Required query parameter "component" is missing`)
	if !ok {
		return
	}

	level, hasLevel, err := parseLevel(r)
	if err != nil {
		s.respondTrace(w, "add", http.StatusBadRequest, err.Error())
		return
	}

	if !hasLevel {
		if _, err := s.tracer.AddComponent(component); err != nil {
			s.respondTrace(w, "add", http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Info("trace component added",
			"component", component)
		s.respondTrace(w, "add", http.StatusOK, fmt.Sprintf("Added component \"%s\"", component))
		return
	}

	err = s.tracer.AddLevel(component, level)
	switch {
	case errors.Is(err, tracing.ErrLevelExists):
		s.respondTrace(w, "add", http.StatusOK, fmt.Sprintf("Level %d already exists for component \"%s\"", level, component))
	case err != nil:
		s.respondTrace(w, "add", http.StatusBadRequest, err.Error())
	default:
		s.logger.Info("trace level added",
			"component", component,
			"level", level)
		s.respondTrace(w, "add", http.StatusOK, fmt.Sprintf("Added level %d for component \"%s\"", level, component))
	}
}

// @Summary Remove trace component or level
// @Description Remove a component, or a single level of it
// @Tags Trace
// @Produce html
// @Param component query string true "Component name"
// @Param level query int false "Trace level"
// @Success 200 {string} string "Outcome and answering instance"
// @Failure 400 {string} string "Missing or invalid component or level"
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /admin/trace/remove [get]
func (s *Server) handleTraceRemove(w http.ResponseWriter, r *http.Request) {
	component, ok := s.componentParam(w, r, "remove", "Component must be provided")
	if !ok {
		return
	}

	level, hasLevel, err := parseLevel(r)
	if err != nil {
		s.respondTrace(w, "remove", http.StatusBadRequest, err.Error())
		return
	}

	if !hasLevel {
		if err := s.tracer.RemoveComponent(component); errors.Is(err, tracing.ErrComponentNotFound) {
			s.respondTrace(w, "remove", http.StatusOK, fmt.Sprintf("Component \"%s\" doesn't exist", component))
			return
		}
		s.logger.Info("trace component removed",
			"component", component)
		s.respondTrace(w, "remove", http.StatusOK, fmt.Sprintf("Deleted component \"%s\"", component))
		return
	}

	err = s.tracer.RemoveLevel(component, level)
	switch {
	case errors.Is(err, tracing.ErrComponentNotFound):
		s.respondTrace(w, "remove", http.StatusOK, fmt.Sprintf("Component \"%s\" doesn't exist", component))
	case errors.Is(err, tracing.ErrLevelNotFound):
		s.respondTrace(w, "remove", http.StatusOK, fmt.Sprintf("Level %d for component \"%s\" doesn't exist", level, component))
	default:
		s.logger.Info("trace level removed",
			"component", component,
			"level", level)
		s.respondTrace(w, "remove", http.StatusOK, fmt.Sprintf("Deleted level %d for component \"%s\"", level, component))
	}
}

// @Summary Clear trace components
// @Description Remove every traced component. The matching mode is kept.
// @Tags Trace
// @Produce html
// @Success 200 {string} string "Outcome and answering instance"
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /admin/trace/clear [get]
func (s *Server) handleTraceClear(w http.ResponseWriter, r *http.Request) {
	s.tracer.Clear()
	s.logger.Info("trace components cleared")
	s.respondTrace(w, "clear", http.StatusOK, "Cleared all components")
}

// @Summary List trace components
// @Description List traced components and their levels as JSON embedded in the response
// @Tags Trace
// @Produce html
// @Success 200 {string} string "Components and answering instance"
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /admin/trace/list [get]
func (s *Server) handleTraceList(w http.ResponseWriter, r *http.Request) {
	data, err := s.tracer.MarshalJSON()
	if err != nil {
		s.respondTrace(w, "list", http.StatusInternalServerError, err.Error())
		return
	}
	s.respondTrace(w, "list", http.StatusOK, "Components: "+string(data))
}

// @Summary Set exact level matching
// @Description Switch between exact and threshold level matching
// @Tags Trace
// @Produce html
// @Param value query string true "true or false, case insensitive" Enums(true, false)
// @Success 200 {string} string "Outcome and answering instance"
// @Failure 400 {string} string "Value is not true or false"
// @Failure 403 {object} map[string]string "Permission denied"
// @Router /admin/trace/exact [get]
func (s *Server) handleTraceExact(w http.ResponseWriter, r *http.Request) {
	exact, err := tracing.ParseExact(r.URL.Query().Get("value"))
	if err != nil {
		s.respondTrace(w, "exact", http.StatusBadRequest, `Query parameter "value" must be true or false`)
		return
	}

	s.tracer.SetExact(exact)
	s.logger.Info("trace exact mode changed",
		"exact", exact)
	s.respondTrace(w, "exact", http.StatusOK, fmt.Sprintf("Value of exact set to %t", exact))
}
