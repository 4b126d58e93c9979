// Package web serves the browser front end and a small JSON API over the
// event file. Every request goes through the scheduler, so requests are
// serialised around load, mutate and save.
package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"eventsched/internal/config"
	"eventsched/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server provides the HTML pages and the JSON API.
type Server struct {
	sched  *scheduler.Scheduler
	logger *slog.Logger
	auth   *config.BasicAuthConfig
	mux    *http.ServeMux
	page   *template.Template
}

// NewServer constructs a Server. auth may be nil to disable Basic Auth.
func NewServer(logger *slog.Logger, sched *scheduler.Scheduler, auth *config.BasicAuthConfig) *Server {
	s := &Server{
		sched:  sched,
		logger: logger,
		auth:   auth,
		mux:    http.NewServeMux(),
		page:   template.Must(template.New("index").Parse(indexHTML)),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler with request logging and, if configured, Basic Auth.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.auth != nil && s.auth.Username != "" && s.auth.Password != "" {
		h = s.basicAuthMiddleware(h)
	}
	return s.requestLogger(h)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()
	s.logger.Info("Serving events.", "listen", "http://"+addr, "file", s.sched.Path())

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received, stopping server.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("Server stopped.")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /{$}", s.handleAction)
	s.mux.HandleFunc("GET /reverse", s.handleReverse)
	s.mux.HandleFunc("GET /download_csv", s.handleDownloadCSV)

	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	s.mux.HandleFunc("PATCH /api/events/{id}", s.handleModifyEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	s.mux.HandleFunc("POST /api/generate", s.handleGenerate)
	s.mux.HandleFunc("GET /api/count", s.handleCount)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// basicAuthMiddleware guards every path except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.auth.Username
	password := s.auth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="eventsched", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("Request served.",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
