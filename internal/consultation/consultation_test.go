package consultation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cadenroberts/OllamaBot-sub010/internal/errconf"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

func TestRequestHumanAnswerWithinWindow(t *testing.T) {
	h := New(nil)

	done := make(chan struct{})
	var resp Response
	var err error
	go func() {
		resp, err = h.Request(context.Background(), Request{
			SessionID: "sess-1",
			Type:      types.ConsultationClarify,
			Question:  "pick one",
			Timeout:   time.Second,
		})
		close(done)
	}()

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.inflight) == 1
	}, time.Second, time.Millisecond)

	h.mu.Lock()
	var id string
	for k := range h.inflight {
		id = k
	}
	h.mu.Unlock()

	require.True(t, h.Respond(id, "B"))
	<-done
	require.NoError(t, err)
	require.Equal(t, types.SourceHuman, resp.Source)
	require.Equal(t, "B", resp.Content)
}

func TestRequestTimeoutWithAISubAllowed(t *testing.T) {
	h := New(nil)
	resp, err := h.Request(context.Background(), Request{
		SessionID:  "sess-2",
		Type:       types.ConsultationFeedback,
		Question:   "approve?",
		Timeout:    20 * time.Millisecond,
		AllowAISub: true,
	})
	require.NoError(t, err)
	require.Equal(t, types.SourceAISubstitute, resp.Source)
	require.NotEmpty(t, resp.Content)
}

func TestRequestTimeoutWithAISubDisallowedReturnsErrConsultationTimeout(t *testing.T) {
	h := New(nil)
	_, err := h.Request(context.Background(), Request{
		SessionID:  "sess-3",
		Type:       types.ConsultationFeedback,
		Question:   "approve?",
		Timeout:    20 * time.Millisecond,
		AllowAISub: false,
	})
	require.ErrorIs(t, err, errconf.ErrConsultationTimeout)
}

func TestRequestBusyRejectsSecondConcurrentCall(t *testing.T) {
	h := New(nil)
	go h.Request(context.Background(), Request{SessionID: "sess-4", Type: types.ConsultationFeedback, Timeout: time.Second})

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.inflight) == 1
	}, time.Second, time.Millisecond)

	_, err := h.Request(context.Background(), Request{SessionID: "sess-4", Type: types.ConsultationFeedback, Timeout: time.Second})
	require.Error(t, err)
}

func TestRequestContextCancelled(t *testing.T) {
	h := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Request(ctx, Request{SessionID: "sess-5", Type: types.ConsultationClarify, Timeout: time.Second})
	require.Error(t, err)
}

func TestSubstituteFunctionUsedOverCannedAnswer(t *testing.T) {
	h := New(func(ctx context.Context, req Request) (string, error) {
		return "custom substitute answer", nil
	})
	resp, err := h.Request(context.Background(), Request{
		SessionID:  "sess-6",
		Type:       types.ConsultationClarify,
		Timeout:    20 * time.Millisecond,
		AllowAISub: true,
	})
	require.NoError(t, err)
	require.Equal(t, "custom substitute answer", resp.Content)
	require.Equal(t, types.SourceAISubstitute, resp.Source)
}

func TestLabelOptions(t *testing.T) {
	labelled := LabelOptions([]string{"retry", "skip", "abort"})
	require.Equal(t, []string{"A. retry", "B. skip", "C. abort"}, labelled)
}
