package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cadenroberts/OllamaBot-sub010/internal/errconf"
	"github.com/cadenroberts/OllamaBot-sub010/internal/orchestrator"
	"github.com/cadenroberts/OllamaBot-sub010/internal/suspension"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// startRunRequest is the request body for POST /runs.
type startRunRequest struct {
	Task string `json:"task"`
}

// listRuns handles GET /runs, returning every session on disk regardless
// of whether it has a live RunHandle in this process.
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	sessions := make([]*types.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.store.Load(r.Context(), id)
		if err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}
	writeJSON(w, http.StatusOK, sessions)
}

// startRun handles POST /runs, starting a new Orchestrator run and
// keeping its RunHandle live in the registry so later steps/resume/events
// calls can reach it.
func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	handle, err := s.orch.Start(r.Context(), req.Task, orchestrator.StartOptions{PlatformOrigin: types.PlatformIDE})
	if err != nil {
		if errors.Is(err, errconf.ErrEmptyTask) {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	state := handle.State()
	s.runs.put(state.ID, handle)
	writeJSON(w, http.StatusOK, state)
}

// getRun handles GET /runs/{runID}, preferring the live in-memory state
// of an active run and falling back to the persisted session otherwise.
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if handle, err := s.runs.get(runID); err == nil {
		writeJSON(w, http.StatusOK, handle.State())
		return
	}
	sess, err := s.store.Load(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// stepRunResponse wraps a single step's outcome alongside the resulting
// session state.
type stepRunResponse struct {
	Outcome types.StepOutcome `json:"outcome"`
	State   types.Session     `json:"state"`
}

// stepRun handles POST /runs/{runID}/steps, advancing the run exactly one
// process step.
func (s *Server) stepRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	handle, err := s.runs.get(runID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}

	outcome, stepErr := handle.Step(r.Context())
	resp := stepRunResponse{Outcome: outcome, State: handle.State()}
	if stepErr != nil && outcome != types.OutcomeSuspended {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, stepErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// resumeRunRequest is the request body for POST /runs/{runID}/resume.
type resumeRunRequest struct {
	Strategy suspension.Strategy `json:"strategy"`
}

// resumeRun handles POST /runs/{runID}/resume, applying a Suspension
// Handler strategy (spec §4.7) to a suspended run.
func (s *Server) resumeRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	handle, err := s.runs.get(runID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}

	var req resumeRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if handle.ErrorBox() == nil {
		writeError(w, http.StatusConflict, ErrCodeConflict, "run is not currently suspended")
		return
	}

	handle.Resume(req.Strategy)
	writeJSON(w, http.StatusOK, handle.State())
}

// cancelRun handles POST /runs/{runID}/cancel, tearing down a run's
// context and releasing it from the registry.
func (s *Server) cancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	handle, err := s.runs.get(runID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	handle.Cancel()
	s.runs.delete(runID)
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}
