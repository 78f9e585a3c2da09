package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cadenroberts/OllamaBot-sub010/internal/event"
	"github.com/cadenroberts/OllamaBot-sub010/internal/logging"
	"github.com/cadenroberts/OllamaBot-sub010/internal/orchestrator"
)

// sseHeartbeatInterval keeps idle connections (load balancers, proxies)
// from timing them out, grounded on the teacher's internal/server/sse.go.
const sseHeartbeatInterval = 30 * time.Second

type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) writeEvent(data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: message\ndata: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) writeHeartbeat() {
	fmt.Fprint(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// globalEvents handles GET /event: every event published by any run this
// process currently has live, fanned into one stream.
func (s *Server) globalEvents(w http.ResponseWriter, r *http.Request) {
	sseHeaders(w)
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	events := make(chan event.Event, 64)
	s.runs.mu.RLock()
	for _, handle := range s.runs.byID {
		go forwardRunEvents(r.Context(), handle, events)
	}
	s.runs.mu.RUnlock()

	s.streamEvents(r, sse, events)
}

// runEvents handles GET /runs/{runID}/events: one run's own event stream.
func (s *Server) runEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	handle, err := s.runs.get(runID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}

	sseHeaders(w)
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	s.streamEvents(r, sse, handle.Events())
}

// forwardRunEvents copies one run's private event channel onto a shared
// fan-in channel until the request is cancelled or the run finishes.
func forwardRunEvents(ctx context.Context, handle *orchestrator.RunHandle, out chan<- event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-handle.Events():
			if !ok {
				return
			}
			select {
			case out <- evt:
			default:
				logging.Warn().Str("component", "httpserver").Str("event_type", string(evt.Type)).
					Msg("SSE fan-in channel full, dropping event")
			}
		}
	}
}

func (s *Server) streamEvents(r *http.Request, sse *sseWriter, events <-chan event.Event) {
	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := sse.writeEvent(evt); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}
