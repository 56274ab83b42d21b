// Package api exposes the HTTP interface for the discovery service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ozayn/planner/internal/jobtrack"
	"github.com/ozayn/planner/internal/metrics"
	"github.com/ozayn/planner/internal/pipeline"
)

const snapshotTimeout = 3 * time.Second

// RunSource reports the tracker of the most recent discovery run.
type RunSource interface {
	Current() *jobtrack.Tracker
}

// Server wires HTTP handlers to the orchestrator and sink.
type Server struct {
	router chi.Router
	runs   RunSource
	sink   pipeline.Sink
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes. sink may be nil
// when persistence is disabled.
func NewServer(runs RunSource, sink pipeline.Sink, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{runs: runs, sink: sink, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/runs/current", s.currentRun)
		r.Get("/events", s.listEvents)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, s.logger)
}

// currentRun handles GET /v1/runs/current. Progress is pull-based: observers
// poll this endpoint rather than subscribing to run events.
func (s *Server) currentRun(w http.ResponseWriter, _ *http.Request) {
	tracker := s.runs.Current()
	if tracker == nil {
		writeError(w, http.StatusNotFound, "no run has been started", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": tracker.Snapshot()}, s.logger)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		writeError(w, http.StatusServiceUnavailable, "event store unavailable", s.logger)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
	defer cancel()

	events, err := s.sink.ListSnapshot(ctx)
	if err != nil {
		s.logger.Error("list events failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list events", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events}, s.logger)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error", s.logger)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *zap.Logger) {
	writeJSON(w, status, map[string]string{"error": msg}, logger)
}
