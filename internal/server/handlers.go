package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/raphaelgruber/legtrack/internal/models"
	"github.com/raphaelgruber/legtrack/internal/service"
)

// handleTrigger starts a sync run and blocks until it reaches a terminal
// state, returning the summary. Use the stream endpoint for live progress.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var opts service.TriggerOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		s.writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body: " + err.Error()})
		return
	}

	job, err := s.controller.Trigger(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	summary, err := s.controller.Run(r.Context(), job.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// handleStatus returns the current job snapshot for poller-driven UIs.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.controller.Status(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if job == nil {
		s.writeJSON(w, http.StatusNotFound, apiError{Error: "no sync job"})
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

// handleStep advances the active job by exactly one batch, so an external
// poller can drive the run with bounded per-call work.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	jobID, err := s.resolveJobID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.controller.ProcessNextBatch(r.Context(), jobID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res.Job)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.controller.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.controller.Resume)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.controller.Stop)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, jobID string) (*models.SyncJob, error)) {
	jobID, err := s.resolveJobID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	job, err := op(r.Context(), jobID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

// resolveJobID takes the job from the "job" query parameter, defaulting to
// the active job.
func (s *Server) resolveJobID(r *http.Request) (string, error) {
	if id := r.URL.Query().Get("job"); id != "" {
		return id, nil
	}
	job, err := s.controller.Status(r.Context())
	if err != nil {
		return "", err
	}
	if job == nil {
		return "", service.ErrJobNotFound
	}
	return job.ID, nil
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.controller.ListJobs(r.Context(), 20)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.controller.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		s.writeJSON(w, http.StatusNotFound, apiError{Error: "metrics disabled"})
		return
	}
	s.writeJSON(w, http.StatusOK, s.collector.Snapshot())
}
