// Package server exposes the sync pipeline over HTTP: trigger, status and
// state-machine endpoints plus a WebSocket progress stream.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/legtrack/internal/metrics"
	"github.com/raphaelgruber/legtrack/internal/service"
)

// Server wires the job controller to its HTTP surface.
type Server struct {
	controller *service.Controller
	runner     *service.Runner
	collector  *metrics.Collector
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// New creates the HTTP server around a job controller. collector may be nil.
func New(controller *service.Controller, collector *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		controller: controller,
		runner:     service.NewRunner(controller),
		collector:  collector,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // same-origin dashboard or local operator tooling
			},
		},
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sync", s.handleTrigger)
	mux.HandleFunc("GET /api/sync/stream", s.handleStream)
	mux.HandleFunc("GET /api/sync/status", s.handleStatus)
	mux.HandleFunc("POST /api/sync/step", s.handleStep)
	mux.HandleFunc("POST /api/sync/pause", s.handlePause)
	mux.HandleFunc("POST /api/sync/resume", s.handleResume)
	mux.HandleFunc("POST /api/sync/stop", s.handleStop)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	return s.withLogging(mux)
}

// apiError is the JSON error envelope.
type apiError struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

// writeError maps service sentinels to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSyncAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, service.ErrSyncDisabled):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition):
		status = http.StatusConflict
	}
	s.writeJSON(w, status, apiError{Error: err.Error()})
}
