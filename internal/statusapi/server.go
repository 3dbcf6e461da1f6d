// Package statusapi exposes a read-only HTTP view of a running migration so
// operators can poll counters without tailing logs.
package statusapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/enerdata/cenmigrate/internal/progress"
)

// RunStatus is the JSON document served by /api/status.
type RunStatus struct {
	RunID     string                       `json:"run_id"`
	StartedAt time.Time                    `json:"started_at"`
	Tables    map[string]progress.Snapshot `json:"tables"`
}

// Server serves the status endpoint. It never mutates run state.
type Server struct {
	router *chi.Mux
	server *http.Server
	status func() RunStatus
}

// NewServer wires the routes around a status callback. The callback is
// invoked per request, so it must be safe for concurrent use.
func NewServer(status func() RunStatus) *Server {
	s := &Server{
		router: chi.NewRouter(),
		status: status,
	}

	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(10 * time.Second))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/api/status", s.handleStatus)

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.status())
}

// Start begins listening. It blocks like http.ListenAndServe.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode", "error", err)
	}
}
