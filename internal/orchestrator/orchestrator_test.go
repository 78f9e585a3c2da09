package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cadenroberts/OllamaBot-sub010/internal/consultation"
	"github.com/cadenroberts/OllamaBot-sub010/internal/coordinator"
	"github.com/cadenroberts/OllamaBot-sub010/internal/errconf"
	"github.com/cadenroberts/OllamaBot-sub010/internal/judge"
	"github.com/cadenroberts/OllamaBot-sub010/internal/ollama"
	"github.com/cadenroberts/OllamaBot-sub010/internal/schedule"
	"github.com/cadenroberts/OllamaBot-sub010/internal/session"
	"github.com/cadenroberts/OllamaBot-sub010/internal/suspension"
	"github.com/cadenroberts/OllamaBot-sub010/internal/telemetry"
	"github.com/cadenroberts/OllamaBot-sub010/internal/toolregistry"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

func TestNextWithinSchedule(t *testing.T) {
	cases := []struct {
		name    string
		current types.Position
		advance bool
		want    types.Position
	}{
		{"fresh run starts at Knowledge.P1", types.Position{}, true, types.Position{Schedule: schedule.Knowledge, Process: 1}},
		{"P1 advances to P2", types.Position{Schedule: schedule.Plan, Process: 1}, true, types.Position{Schedule: schedule.Plan, Process: 2}},
		{"P3 does not auto-advance", types.Position{Schedule: schedule.Plan, Process: 3}, true, types.Position{Schedule: schedule.Plan, Process: 3}},
		{"no-advance retries current", types.Position{Schedule: schedule.Implement, Process: 2}, false, types.Position{Schedule: schedule.Implement, Process: 2}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, nextWithinSchedule(c.current, c.advance))
		})
	}
}

func TestIsLegalTransition(t *testing.T) {
	noneTerminated := map[int]bool{}

	t.Run("must start at Knowledge.P1", func(t *testing.T) {
		err := isLegalTransition(types.Position{}, types.Position{Schedule: schedule.Knowledge, Process: 1}, noneTerminated, false, "start", "")
		require.NoError(t, err)

		err = isLegalTransition(types.Position{}, types.Position{Schedule: schedule.Plan, Process: 1}, noneTerminated, false, "start", "")
		require.Error(t, err)
		var se *errconf.StructuralError
		require.ErrorAs(t, err, &se)
		require.Equal(t, errconf.EInvalidTransition, se.Code)
	})

	t.Run("in-schedule table", func(t *testing.T) {
		legal := []struct{ from, to int }{{1, 1}, {1, 2}, {2, 1}, {2, 2}, {2, 3}, {3, 2}, {3, 3}}
		for _, pair := range legal {
			err := isLegalTransition(
				types.Position{Schedule: schedule.Plan, Process: pair.from},
				types.Position{Schedule: schedule.Plan, Process: pair.to},
				noneTerminated, false, "step", "S2P1")
			require.NoErrorf(t, err, "P%d -> P%d should be legal", pair.from, pair.to)
		}

		illegal := []struct{ from, to int }{{1, 3}, {3, 1}}
		for _, pair := range illegal {
			err := isLegalTransition(
				types.Position{Schedule: schedule.Plan, Process: pair.from},
				types.Position{Schedule: schedule.Plan, Process: pair.to},
				noneTerminated, false, "step", "S2P1")
			require.Errorf(t, err, "P%d -> P%d should be illegal", pair.from, pair.to)
		}
	})

	t.Run("schedule change before P3 is a skip-process error", func(t *testing.T) {
		err := isLegalTransition(
			types.Position{Schedule: schedule.Plan, Process: 2},
			types.Position{Schedule: schedule.Implement, Process: 1},
			noneTerminated, false, "step", "S2P2")
		var se *errconf.StructuralError
		require.ErrorAs(t, err, &se)
		require.Equal(t, errconf.ESkipProcess, se.Code)
	})

	t.Run("schedule change after ok P3 enters new schedule at P1", func(t *testing.T) {
		terminated := map[int]bool{schedule.Plan: true}
		err := isLegalTransition(
			types.Position{Schedule: schedule.Plan, Process: 3},
			types.Position{Schedule: schedule.Implement, Process: 1},
			terminated, false, "schedule-terminate", "S2P1P2P3")
		require.NoError(t, err)
	})

	t.Run("re-entering a terminated schedule needs justification", func(t *testing.T) {
		terminated := map[int]bool{schedule.Plan: true, schedule.Implement: true}
		err := isLegalTransition(
			types.Position{Schedule: schedule.Implement, Process: 3},
			types.Position{Schedule: schedule.Plan, Process: 1},
			terminated, false, "schedule-terminate", "flow")
		var se *errconf.StructuralError
		require.ErrorAs(t, err, &se)
		require.Equal(t, errconf.EReopenTerminated, se.Code)

		err = isLegalTransition(
			types.Position{Schedule: schedule.Implement, Process: 3},
			types.Position{Schedule: schedule.Plan, Process: 1},
			terminated, true, "schedule-terminate", "flow")
		require.NoError(t, err)
	})
}

func TestDoomLoopDetector(t *testing.T) {
	d := newDoomLoopDetector()
	pos := types.Position{Schedule: schedule.Implement, Process: 2}

	require.False(t, d.Check("sess-1", pos, "same prompt"))
	require.False(t, d.Check("sess-1", pos, "same prompt"))
	require.True(t, d.Check("sess-1", pos, "same prompt"), "third identical call should trip the detector")

	d.Reset("sess-1")
	require.False(t, d.Check("sess-1", pos, "same prompt"), "reset clears history")

	require.False(t, d.Check("sess-2", pos, "same prompt"), "sessions are isolated")
}

func TestExtractToolCalls(t *testing.T) {
	content := "Here is my plan.\nTOOL_CALL: read_file path=main.go\nSome more text\nTOOL_CALL: run_shell echo hi\n"
	require.Equal(t, []string{"read_file", "run_shell"}, extractToolCalls(content))
}

func TestParseDecision(t *testing.T) {
	terminate, id, just := parseDecision("TERMINATE: the goal is met")
	require.True(t, terminate)
	require.Equal(t, 0, id)
	require.Equal(t, "the goal is met", just)

	terminate, id, just = parseDecision("NEXT: 3 move to Implement")
	require.False(t, terminate)
	require.Equal(t, 3, id)
	require.Equal(t, "move to Implement", just)

	terminate, id, _ = parseDecision("garbage response")
	require.False(t, terminate)
	require.Equal(t, 0, id)
}

func TestContainsCompletionSignal(t *testing.T) {
	require.True(t, containsCompletionSignal("The plan is sound and complete."))
	require.True(t, containsCompletionSignal("Nothing further needed here."))
	require.False(t, containsCompletionSignal("still working on it"))
}

func TestFlagsAmbiguity(t *testing.T) {
	require.True(t, flagsAmbiguity("this requirement seems ambiguous"))
	require.True(t, flagsAmbiguity("needs clarification from the user"))
	require.False(t, flagsAmbiguity("all clear, proceeding"))
}

// fakeLMClient answers every call with a canned "step complete" response,
// except calls using the termination-decision system prompt, which
// return a scripted TERMINATE/NEXT sequence driving the run straight
// through all five schedules in order.
type fakeLMClient struct {
	mu           sync.Mutex
	decisionCall int
}

func (f *fakeLMClient) ModelName() string { return "fake-model" }

func (f *fakeLMClient) Complete(ctx context.Context, systemPrompt, userPrompt string, onToken func(string)) (string, int, int, error) {
	if systemPrompt == decisionSystemPrompt {
		f.mu.Lock()
		f.decisionCall++
		n := f.decisionCall
		f.mu.Unlock()
		switch n {
		case 1:
			return "NEXT: 2 knowledge schedule done", 5, 5, nil
		case 2:
			return "NEXT: 3 plan schedule done", 5, 5, nil
		case 3:
			return "NEXT: 4 implement schedule done", 5, 5, nil
		case 4:
			return "NEXT: 5 scale schedule done", 5, 5, nil
		default:
			return "TERMINATE: every schedule is sound and complete", 5, 5, nil
		}
	}
	return "Looks sound and complete, nothing further needed here.", 20, 10, nil
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	clients := map[types.Role]coordinator.LMClient{
		types.RoleOrchestrator: &fakeLMClient{},
		types.RoleCoder:        &fakeLMClient{},
		types.RoleResearcher:   &fakeLMClient{},
		types.RoleVision:       &fakeLMClient{},
	}
	models := coordinator.NewWithClients(clients, coordinator.TierBalanced)
	store := session.New(t.TempDir())
	consult := consultation.New(func(ctx context.Context, req consultation.Request) (string, error) {
		return "approved", nil
	})
	judgeCoord := judge.New(models, []types.Role{types.RoleCoder})
	suspend := suspension.New(models)
	tools := toolregistry.Default()
	tele := telemetry.New(t.TempDir())
	o := New(models, store, consult, judgeCoord, suspend, tools, tele)
	o.ConsultationTimeout = 50 * time.Millisecond
	return o
}

func TestStartRejectsEmptyTask(t *testing.T) {
	o := newTestOrchestrator(t)
	_, err := o.Start(context.Background(), "   ", StartOptions{PlatformOrigin: types.PlatformCLI})
	require.ErrorIs(t, err, errconf.ErrEmptyTask)
}

func TestStepAdvancesThroughKnowledgeSchedule(t *testing.T) {
	o := newTestOrchestrator(t)
	handle, err := o.Start(context.Background(), "investigate the flaky test", StartOptions{PlatformOrigin: types.PlatformCLI})
	require.NoError(t, err)

	ctx := context.Background()
	for i, want := range []types.Position{{Schedule: schedule.Knowledge, Process: 1}, {Schedule: schedule.Knowledge, Process: 2}} {
		outcome, err := handle.Step(ctx)
		require.NoErrorf(t, err, "step %d", i)
		require.Equal(t, types.OutcomeOK, outcome)
		state := handle.State()
		last := state.Steps[len(state.Steps)-1]
		require.Equal(t, want, last.Position)
	}
}

func TestFullRunReachesTermination(t *testing.T) {
	o := newTestOrchestrator(t)
	handle, err := o.Start(context.Background(), "ship the feature end to end", StartOptions{PlatformOrigin: types.PlatformCLI})
	require.NoError(t, err)

	ctx := context.Background()
	const maxSteps = 40
	finished := false
	for i := 0; i < maxSteps; i++ {
		select {
		case <-handle.waiters:
			finished = true
		default:
		}
		if finished {
			break
		}
		outcome, err := handle.Step(ctx)
		require.NoErrorf(t, err, "step %d", i)
		require.NotEqual(t, types.OutcomeSuspended, outcome)
	}

	require.True(t, finished, "run should have terminated within %d steps", maxSteps)
	state := handle.State()
	require.Equal(t, types.TaskCompleted, state.Task.Status)
	require.NotNil(t, state.TLDR)
}

// TestSuspendOnIllegalJumpThenResumeRetry covers spec §8 seed scenario 3:
// an illegal jump suspends the run, and Retry resumes it to completion.
// Step() itself never proposes an illegal move (nextWithinSchedule only
// ever advances within the current schedule), so the illegal position is
// forced directly onto the session, the way a corrupted or hand-edited
// Session file would reach the state machine.
func TestSuspendOnIllegalJumpThenResumeRetry(t *testing.T) {
	o := newTestOrchestrator(t)
	handle, err := o.Start(context.Background(), "investigate the flaky test", StartOptions{PlatformOrigin: types.PlatformCLI})
	require.NoError(t, err)

	ctx := context.Background()
	outcome, err := handle.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, types.OutcomeOK, outcome)

	handle.mu.Lock()
	handle.sess.Orchestration.CurrentProcess = 5 // no process 5: next in-schedule move is illegal
	handle.mu.Unlock()

	outcome, err = handle.Step(ctx)
	require.Equal(t, types.OutcomeSuspended, outcome)
	require.Error(t, err)
	box := handle.ErrorBox()
	require.NotNil(t, box)
	require.Equal(t, errconf.EInvalidTransition, box.Code)

	handle.mu.Lock()
	handle.sess.Orchestration.CurrentProcess = 2 // the corruption clears; retry re-executes from here
	handle.mu.Unlock()

	handle.Resume(suspension.Retry)
	require.Nil(t, handle.ErrorBox())

	const maxSteps = 40
	finished := false
	for i := 0; i < maxSteps; i++ {
		select {
		case <-handle.waiters:
			finished = true
		default:
		}
		if finished {
			break
		}
		outcome, err := handle.Step(ctx)
		require.NoErrorf(t, err, "step %d", i)
		require.NotEqual(t, types.OutcomeSuspended, outcome)
	}
	require.True(t, finished, "run should have reached termination after Retry resume")
}

// TestStartFailsWhenModelProbeUnavailable covers spec §8 seed scenario 4:
// the model probe fails on Start, Start returns the error, and no
// Session file is created.
func TestStartFailsWhenModelProbeUnavailable(t *testing.T) {
	backend := ollama.New("http://127.0.0.1:1", ollama.WithTimeout(50*time.Millisecond))
	cfg := coordinator.Config{
		Tier: coordinator.TierBalanced,
		Roles: map[types.Role]coordinator.RoleConfig{
			types.RoleOrchestrator: {Default: "fake-model"},
			types.RoleCoder:        {Default: "fake-model"},
			types.RoleResearcher:   {Default: "fake-model"},
			types.RoleVision:       {Default: "fake-model"},
		},
	}
	models := coordinator.New(backend, cfg)

	store := session.New(t.TempDir())
	consult := consultation.New(func(ctx context.Context, req consultation.Request) (string, error) {
		return "approved", nil
	})
	judgeCoord := judge.New(models, []types.Role{types.RoleCoder})
	suspend := suspension.New(models)
	tools := toolregistry.Default()
	tele := telemetry.New(t.TempDir())
	o := New(models, store, consult, judgeCoord, suspend, tools, tele)

	_, err := o.Start(context.Background(), "ship a feature", StartOptions{PlatformOrigin: types.PlatformCLI})
	require.Error(t, err)

	var opErr *errconf.OperationalError
	require.ErrorAs(t, err, &opErr)
	require.Equal(t, errconf.EOllamaUnavailable, opErr.Code)

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, ids, "Start must not persist a session when the model probe fails")
}
