package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/daimoniac/apilog/internal/api/docs" // OpenAPI document
	"github.com/daimoniac/apilog/internal/config"
	"github.com/daimoniac/apilog/internal/observability"
	"github.com/daimoniac/apilog/internal/session"
	"github.com/daimoniac/apilog/internal/tracing"
)

// @title apilog API
// @version 1.0
// @description Application API with classified error responses and runtime trace administration.

// @contact.name apilog
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /

// Server serves the application API, the trace admin endpoints and the
// access log around them
type Server struct {
	config    *config.Config
	logger    *observability.Logger
	tracer    *tracing.Registry
	sessions  session.Store
	router    *http.ServeMux
	server    *http.Server
	accessLog io.Writer
	hostname  string
}

// Option customizes a Server
type Option func(*Server)

// WithAccessLog sends access log lines to w instead of stdout
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) {
		s.accessLog = w
	}
}

// NewServer creates a new API server instance
func NewServer(cfg *config.Config, logger *observability.Logger, tracer *tracing.Registry, sessions session.Store, opts ...Option) *Server {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	s := &Server{
		config:   cfg,
		logger:   logger,
		tracer:   tracer,
		sessions: sessions,
		router:   http.NewServeMux(),
		hostname: hostname,
	}
	if cfg.Server.AccessLog {
		s.accessLog = os.Stdout
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Trace administration
	s.router.HandleFunc("/admin/trace/add", s.adminMiddleware("add", s.handleTraceAdd))
	s.router.HandleFunc("/admin/trace/remove", s.adminMiddleware("remove", s.handleTraceRemove))
	s.router.HandleFunc("/admin/trace/clear", s.adminMiddleware("clear", s.handleTraceClear))
	s.router.HandleFunc("/admin/trace/list", s.adminMiddleware("list", s.handleTraceList))
	s.router.HandleFunc("/admin/trace/exact", s.adminMiddleware("exact", s.handleTraceExact))

	// Session
	s.Handle("/api/v1/whoami", "WHOAMI", s.handleWhoAmI)
	s.Handle("/api/v1/logout", "LOGOUT", s.handleLogout)

	// Swagger documentation
	s.router.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	s.Handle("/", "NOTFOUND", s.handleNotFound)
}

// Handler returns the router wrapped in the middleware chain:
// session, access log, panic recovery
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = s.recoverMiddleware(h)
	h = s.accessLogMiddleware(h)
	h = session.Middleware(s.sessions, s.config.Session.CookieName, s.logger.Slog())(h)
	return h
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		defer s.logger.Recover()
		s.logger.Boot("starting API server",
			"port", s.config.Server.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down API server")
	return s.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down the API server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		s.logger.Warn("failed to encode JSON response",
			"error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}
