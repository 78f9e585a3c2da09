// Package consultation implements the Consultation Handler (spec §4.4):
// a human-in-the-loop request/response exchange with a countdown timeout
// and an AI-substitute fallback. It is grounded on
// internal/permission/checker.go's Ask pattern — a pending-request map of
// buffered response channels, a ULID request id, an event publish, and a
// select over {response, ctx.Done()} — generalized here with an explicit
// countdown ticker and a canned/LM-generated substitute answer instead of
// a permission grant/deny.
package consultation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cadenroberts/OllamaBot-sub010/internal/errconf"
	"github.com/cadenroberts/OllamaBot-sub010/internal/event"
	"github.com/cadenroberts/OllamaBot-sub010/internal/logging"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// Defaults per spec §4.4.
const (
	DefaultClarifyTimeout  = 60 * time.Second
	DefaultFeedbackTimeout = 300 * time.Second
	DefaultCountdown       = 15 * time.Second
)

// Request describes one consultation ask.
type Request struct {
	SessionID string
	Type      types.ConsultationType
	Question  string
	// Options are the clarify choices to present; LabelOptions formats
	// them as A, B, C, ... (Request passes them through unlabelled).
	// Empty for open-ended feedback requests.
	Options []string
	Timeout time.Duration
	// AllowAISub permits falling back to the AI substitute (or canned
	// answer) when the countdown elapses with no human response. When
	// false, a timeout instead returns ErrConsultationTimeout (spec
	// §4.4, §8: "else return ErrConsultationTimeout").
	AllowAISub bool
}

// Response is the answer, whichever source produced it.
type Response struct {
	Content string
	Source  types.ConsultationSource
}

// Substitute generates a canned or LM-backed answer when no human
// responds before the countdown elapses. Returning an error falls back
// to a canned per-type answer.
type Substitute func(ctx context.Context, req Request) (string, error)

type pending struct {
	req Request
	ch  chan Response
}

// Handler manages in-flight consultations for a run.
type Handler struct {
	mu         sync.Mutex
	inflight   map[string]*pending
	substitute Substitute
}

// New builds a Handler. substitute may be nil, in which case the canned
// per-type fallback answer is always used.
func New(substitute Substitute) *Handler {
	return &Handler{
		inflight:   make(map[string]*pending),
		substitute: substitute,
	}
}

// Request blocks until a human answers (via Respond), the AI substitute
// produces an answer after the countdown, or ctx is cancelled. Only one
// consultation may be in flight per session at a time; a second call for
// the same session returns ErrConsultationBusy.
func (h *Handler) Request(ctx context.Context, req Request) (Response, error) {
	if req.Timeout <= 0 {
		req.Timeout = defaultTimeout(req.Type)
	}

	id := ulid.Make().String()
	ch := make(chan Response, 1)

	h.mu.Lock()
	for _, p := range h.inflight {
		if p.req.SessionID == req.SessionID {
			h.mu.Unlock()
			return Response{}, errconf.ErrConsultationBusy
		}
	}
	h.inflight[id] = &pending{req: req, ch: ch}
	h.mu.Unlock()

	event.Publish(event.Event{Type: event.ConsultationRequested, Data: event.ConsultationRequestedData{
		SessionID: req.SessionID,
		Type:      req.Type,
		Question:  req.Question,
	}})

	countdown := time.NewTimer(req.Timeout - DefaultCountdown)
	if req.Timeout <= DefaultCountdown {
		countdown.Reset(0)
	}
	defer countdown.Stop()

	timeout := time.NewTimer(req.Timeout)
	defer timeout.Stop()

	resp, err := h.wait(ctx, id, req, ch, countdown.C, timeout.C)
	h.clear(id)
	return resp, err
}

func (h *Handler) wait(ctx context.Context, id string, req Request, ch <-chan Response, countdownC, timeoutC <-chan time.Time) (Response, error) {
	remaining := DefaultCountdown
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	inCountdown := false

	for {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()

		case resp := <-ch:
			return resp, nil

		case <-countdownC:
			inCountdown = true
			logging.Warn().Str("component", "consultation").Str("session_id", req.SessionID).
				Dur("remaining", remaining).Msg("consultation entering countdown; will fall back to AI substitute")

		case <-ticker.C:
			if inCountdown {
				remaining -= time.Second
			}

		case <-timeoutC:
			if !req.AllowAISub {
				return Response{}, errconf.ErrConsultationTimeout
			}
			return h.answerBySubstitute(ctx, req)
		}
	}
}

func (h *Handler) answerBySubstitute(ctx context.Context, req Request) (Response, error) {
	if h.substitute != nil {
		if content, err := h.substitute(ctx, req); err == nil {
			h.publishAnswered(req, types.SourceAISubstitute)
			return Response{Content: content, Source: types.SourceAISubstitute}, nil
		}
	}
	content := cannedAnswer(req)
	h.publishAnswered(req, types.SourceAISubstitute)
	return Response{Content: content, Source: types.SourceAISubstitute}, nil
}

func (h *Handler) publishAnswered(req Request, source types.ConsultationSource) {
	event.Publish(event.Event{Type: event.ConsultationAnswered, Data: event.ConsultationAnsweredData{
		SessionID: req.SessionID,
		Source:    source,
	}})
}

// cannedAnswer returns a deterministic per-type fallback used when no
// substitute function is configured or the substitute itself fails.
func cannedAnswer(req Request) string {
	switch req.Type {
	case types.ConsultationClarify:
		if len(req.Options) > 0 {
			return req.Options[0]
		}
		return "Proceed with the most conservative interpretation of the request."
	case types.ConsultationFeedback:
		return "ACCEPTABLE: no human feedback was available before the countdown elapsed; proceeding as planned."
	default:
		return "Proceed."
	}
}

func defaultTimeout(t types.ConsultationType) time.Duration {
	if t == types.ConsultationFeedback {
		return DefaultFeedbackTimeout
	}
	return DefaultClarifyTimeout
}

// Respond delivers a human answer for an in-flight consultation
// identified by id. Returns false if no such consultation is pending
// (already resolved, timed out, or unknown id).
func (h *Handler) Respond(id, content string) bool {
	h.mu.Lock()
	p, ok := h.inflight[id]
	h.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case p.ch <- Response{Content: content, Source: types.SourceHuman}:
		h.publishAnswered(p.req, types.SourceHuman)
		return true
	default:
		return false
	}
}

func (h *Handler) clear(id string) {
	h.mu.Lock()
	delete(h.inflight, id)
	h.mu.Unlock()
}

// LabelOptions prefixes opts with A, B, C, ... labels, as the Consultation
// Handler presents clarify choices (spec §4.4).
func LabelOptions(opts []string) []string {
	labelled := make([]string, len(opts))
	for i, opt := range opts {
		labelled[i] = fmt.Sprintf("%c. %s", 'A'+i, opt)
	}
	return labelled
}
