// Package orchestrator implements the Orchestrator state machine
// (spec §4.1): it owns the run's current position, flow code, and step
// history; drives the per-process execution loop against the Model
// Coordinator; and hands off to the Consultation Handler, Judge
// Coordinator, and Suspension Handler at the points spec §4 names. It is
// grounded on the teacher's internal/session/loop.go (the one
// authoritative driver of a run's lifecycle, one component per
// concern, event-driven) generalized from an open-ended chat loop to a
// fixed five-schedule, three-process state machine.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"

	"github.com/cadenroberts/OllamaBot-sub010/internal/consultation"
	"github.com/cadenroberts/OllamaBot-sub010/internal/coordinator"
	"github.com/cadenroberts/OllamaBot-sub010/internal/errconf"
	"github.com/cadenroberts/OllamaBot-sub010/internal/event"
	"github.com/cadenroberts/OllamaBot-sub010/internal/flowcode"
	"github.com/cadenroberts/OllamaBot-sub010/internal/judge"
	"github.com/cadenroberts/OllamaBot-sub010/internal/router"
	"github.com/cadenroberts/OllamaBot-sub010/internal/schedule"
	"github.com/cadenroberts/OllamaBot-sub010/internal/session"
	"github.com/cadenroberts/OllamaBot-sub010/internal/suspension"
	"github.com/cadenroberts/OllamaBot-sub010/internal/telemetry"
	"github.com/cadenroberts/OllamaBot-sub010/internal/toolregistry"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// maxAttempts bounds recoverable-error retries per step (spec §4.1:
// "retry with exponential backoff up to 3 attempts").
const maxAttempts = 3

// Orchestrator wires together the components a run needs. One instance
// is shared across runs; per-run state lives on RunHandle.
type Orchestrator struct {
	Models       *coordinator.Coordinator
	Store        *session.Store
	Consultation *consultation.Handler
	Judge        *judge.Coordinator
	Suspension   *suspension.Handler
	Tools        *toolregistry.Registry
	Telemetry    *telemetry.Sink

	// ConsultationTimeout overrides the Consultation Handler's per-type
	// default (spec §4.4's 60s/300s), mainly so tests don't block on the
	// full feedback timeout. Zero means use the handler's default.
	ConsultationTimeout time.Duration

	// DisableAISub forces consultation.Request's AllowAISub to false,
	// so a timeout with no human answer returns ErrConsultationTimeout
	// instead of falling back to an AI-generated answer (spec §4.4,
	// §8: "for t >= T and allow_ai_sub=false, the call returns
	// ErrConsultationTimeout"). False (the default) preserves the
	// normal timeout+AI-substitute behavior.
	DisableAISub bool

	doomLoop *doomLoopDetector
}

// New builds an Orchestrator from its already-constructed collaborators.
func New(models *coordinator.Coordinator, store *session.Store, consult *consultation.Handler, judgeCoord *judge.Coordinator, suspend *suspension.Handler, tools *toolregistry.Registry, tele *telemetry.Sink) *Orchestrator {
	return &Orchestrator{
		Models:       models,
		Store:        store,
		Consultation: consult,
		Judge:        judgeCoord,
		Suspension:   suspend,
		Tools:        tools,
		Telemetry:    tele,
		doomLoop:     newDoomLoopDetector(),
	}
}

// StartOptions customises a new run.
type StartOptions struct {
	PlatformOrigin types.PlatformOrigin
}

// RunHandle is the live handle to one in-progress (or finished) run.
type RunHandle struct {
	orch *Orchestrator

	mu        sync.Mutex
	sess      *types.Session
	terminated map[int]bool
	errorBox  *suspension.ErrorBox
	done      bool
	startedAt time.Time

	bus         *event.Bus
	events      chan event.Event
	unsubscribe func()

	cancel context.CancelFunc
	ctx    context.Context

	waiters chan struct{}
}

// Start initialises a run: classifies intent, opens a Session, and
// positions the state machine at the not-yet-started sentinel so the
// first Step enters Knowledge.P1.
func (o *Orchestrator) Start(ctx context.Context, task string, opts StartOptions) (*RunHandle, error) {
	if strings.TrimSpace(task) == "" {
		return nil, errconf.ErrEmptyTask
	}

	// spec §8: "Model probe fails on Start -> E010 ErrOllamaUnavailable;
	// Start returns the error without creating a Session file."
	if err := o.Models.Validate(ctx); err != nil {
		return nil, err
	}

	intent := router.Classify(task)
	sess := &types.Session{
		ID:             ulid.Make().String(),
		CreatedAt:      time.Now().Unix(),
		PlatformOrigin: opts.PlatformOrigin,
		Title:          "New Run",
		Task:           types.TaskDescription{Description: task, Status: types.TaskRunning},
		Intent:         intent,
	}
	if err := o.Store.Save(ctx, sess); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	bus := event.NewBus()
	h := &RunHandle{
		orch:       o,
		sess:       sess,
		terminated: make(map[int]bool),
		bus:        bus,
		events:     make(chan event.Event, 256),
		ctx:        runCtx,
		cancel:     cancel,
		waiters:    make(chan struct{}),
		startedAt:  time.Now(),
	}
	h.unsubscribe = bus.SubscribeAll(func(evt event.Event) {
		select {
		case h.events <- evt:
		default:
		}
	})
	return h, nil
}

// Events returns the run's event stream.
func (h *RunHandle) Events() <-chan event.Event { return h.events }

// State returns a snapshot of the current session.
func (h *RunHandle) State() types.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return *h.sess
}

// Cancel stops the run; a subsequent Step returns ErrCancelled.
func (h *RunHandle) Cancel() {
	h.cancel()
}

// Wait blocks until the run is finalized or ctx is cancelled. A
// suspended run is not finalized, so suspension alone does not release
// Wait.
func (h *RunHandle) Wait(ctx context.Context) (*types.Session, error) {
	select {
	case <-h.waiters:
		snap := h.State()
		return &snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *RunHandle) emit(t event.Type, data any) {
	h.bus.Publish(event.Event{Type: t, Data: data})
}

func (h *RunHandle) finish() {
	h.mu.Lock()
	already := h.done
	h.done = true
	h.mu.Unlock()
	if !already {
		close(h.waiters)
	}
}

// Step advances the run by exactly one process execution, per the
// 8-step body in spec §4.1. It is illegal to call while suspended.
func (h *RunHandle) Step(ctx context.Context) (types.StepOutcome, error) {
	select {
	case <-h.ctx.Done():
		return types.OutcomeFailed, errconf.ErrCancelled
	default:
	}

	h.mu.Lock()
	if h.errorBox != nil {
		h.mu.Unlock()
		return types.OutcomeSuspended, fmt.Errorf("orchestrator: run is suspended (code %s)", h.errorBox.Code)
	}
	if h.done {
		h.mu.Unlock()
		return types.OutcomeOK, fmt.Errorf("orchestrator: run already finished")
	}
	sess := h.sess
	current := types.Position{Schedule: sess.Orchestration.CurrentSchedule, Process: sess.Orchestration.CurrentProcess}
	h.mu.Unlock()

	next := nextWithinSchedule(current, true)

	if err := isLegalTransition(current, next, h.terminated, false, "step", sess.Orchestration.FlowCode); err != nil {
		return h.suspend(ctx, err)
	}

	outcome, stepErr := h.executeStep(ctx, next)
	if stepErr != nil {
		return h.suspend(ctx, stepErr)
	}
	return outcome, nil
}

// executeStep runs one process body (steps 2-8 of spec §4.1's list) at
// position pos, committing a step record and returning its outcome.
func (h *RunHandle) executeStep(ctx context.Context, pos types.Position) (types.StepOutcome, error) {
	h.mu.Lock()
	sess := h.sess
	attempt := 0
	for _, s := range sess.Steps {
		if s.Position == pos {
			attempt = s.Attempt
		}
	}
	attempt++
	h.mu.Unlock()

	proc := schedule.GetProcess(pos.Schedule, pos.Process)
	if proc == nil {
		return types.OutcomeFailed, errconf.NewStructural(errconf.EInvalidTransition, "no such process", "position-range", false,
			errconf.FrozenState{Schedule: pos.Schedule, Process: pos.Process, LastAction: "step", FlowCode: sess.Orchestration.FlowCode})
	}

	role := h.orch.Models.Select(pos.Schedule, pos.Process, sess.Intent)
	prompt, err := proc.Build(schedule.PromptContext{Task: sess.Task.Description, Intent: sess.Intent, PriorNotes: h.priorNotes()})
	if err != nil {
		return types.OutcomeFailed, errconf.NewOperational(errconf.EConfigInvalid, "building process prompt", "", false, err)
	}

	if h.orch.doomLoop.Check(sess.ID, pos, prompt) {
		return types.OutcomeFailed, errconf.NewStructural(errconf.EOrchestratorDoomLoop, "identical step retried without progress", "doom-loop-threshold", false,
			errconf.FrozenState{Schedule: pos.Schedule, Process: pos.Process, LastAction: "retry", FlowCode: sess.Orchestration.FlowCode})
	}

	var content string
	var promptTokens, completionTokens int
	started := time.Now()

	callErr := h.withRetry(ctx, func() error {
		var innerErr error
		content, promptTokens, completionTokens, innerErr = h.completeWithRole(ctx, role, proc, prompt)
		return innerErr
	})
	if callErr != nil {
		return types.OutcomeFailed, errconf.NewOperational(errconf.EOllamaUnavailable, "model completion failed after retries", "check the ollama daemon", true, callErr)
	}
	h.orch.Models.RecordTokens(role, promptTokens+completionTokens)

	toolCalls, err := h.validateToolCalls(content)
	if err != nil {
		return types.OutcomeFailed, err
	}

	var consultRecord *types.ConsultationRecord
	if proc.Consultation == schedule.ConsultationMandatory || (proc.Consultation == schedule.ConsultationOptional && flagsAmbiguity(content)) {
		consultRecord, err = h.runConsultation(ctx, pos, proc, content)
		if err != nil {
			return types.OutcomeFailed, err
		}
	}

	step := types.Step{
		Ordinal:          len(sess.Steps) + 1,
		Position:         pos,
		ModelRole:        role,
		Prompt:           prompt,
		ResponseExcerpt:  truncate(content, 2000),
		ToolCalls:        toolCalls,
		Outcome:          types.OutcomeOK,
		StartedAt:        started.Unix(),
		FinishedAt:       time.Now().Unix(),
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Consultation:     consultRecord,
		Attempt:          attempt,
	}

	h.mu.Lock()
	sess.Steps = append(sess.Steps, step)
	sess.Orchestration.FlowCode = flowcode.Append(sess.Orchestration.FlowCode, pos)
	sess.Orchestration.CurrentSchedule = pos.Schedule
	sess.Orchestration.CurrentProcess = pos.Process
	sess.Stats.TotalTokens += promptTokens + completionTokens
	sess.Stats.PromptTokens += promptTokens
	sess.Stats.CompletionTokens += completionTokens
	h.mu.Unlock()
	h.orch.doomLoop.Reset(sess.ID)

	h.emit(event.PositionChanged, event.PositionChangedData{SessionID: sess.ID, Position: pos, FlowCode: sess.Orchestration.FlowCode})
	h.emit(event.StepCompleted, event.StepCompletedData{SessionID: sess.ID, Step: step})

	if err := h.orch.Store.Save(ctx, sess); err != nil {
		return types.OutcomeFailed, errconf.NewOperational(errconf.EFileSystemAccess, "persisting session after step", "check disk space and permissions", false, err)
	}

	consultationApproves := consultRecord == nil || consultRecord.Approved
	if pos.Process == 3 && consultationApproves && containsCompletionSignal(content) {
		if err := h.onScheduleTerminated(ctx, pos.Schedule); err != nil {
			return types.OutcomeFailed, err
		}
	}

	return types.OutcomeOK, nil
}

// completeWithRole runs the process's prompt through role's client,
// falling back through the coordinator's chain if role's own client
// fails.
func (h *RunHandle) completeWithRole(ctx context.Context, role types.Role, proc *schedule.Process, prompt string) (string, int, int, error) {
	var content string
	var pTok, cTok int
	err := h.orch.Models.WithFallback(ctx, role, func(client coordinator.LMClient) error {
		var innerErr error
		content, pTok, cTok, innerErr = client.Complete(ctx, systemPromptFor(proc), prompt, nil)
		return innerErr
	})
	return content, pTok, cTok, err
}

func systemPromptFor(proc *schedule.Process) string {
	return fmt.Sprintf("You are the %s role operating inside the %s schedule's %s process of a disciplined, multi-phase coding assistant.", proc.ModelRole, proc.ScheduleName(), proc.Name)
}

// withRetry retries fn up to maxAttempts times with exponential backoff,
// per spec §4.1's recoverable-error handling.
func (h *RunHandle) withRetry(ctx context.Context, fn func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxAttempts-1), ctx)
	return backoff.Retry(fn, b)
}

func (h *RunHandle) priorNotes() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.sess.Steps) == 0 {
		return ""
	}
	return h.sess.Steps[len(h.sess.Steps)-1].ResponseExcerpt
}

func (h *RunHandle) validateToolCalls(content string) ([]string, error) {
	invocations := extractToolInvocations(content)
	ids := make([]string, 0, len(invocations))
	for _, inv := range invocations {
		entry, err := h.orch.Tools.Resolve(inv.ID)
		if err != nil {
			return nil, errconf.NewOperational(errconf.EInvalidToolCall, fmt.Sprintf("unknown tool call %q", inv.ID), "check the Tool Registry catalogue", true, err)
		}
		if entry.ID == "glob_files" && inv.Args != "" {
			if err := toolregistry.ValidateGlobPattern(inv.Args); err != nil {
				return nil, errconf.NewOperational(errconf.EInvalidToolCall, fmt.Sprintf("malformed glob pattern %q", inv.Args), "fix the pattern and retry the tool call", true, err)
			}
		}
		ids = append(ids, entry.ID)
	}
	return ids, nil
}

func (h *RunHandle) runConsultation(ctx context.Context, pos types.Position, proc *schedule.Process, body string) (*types.ConsultationRecord, error) {
	sess := h.State()
	ctype := types.ConsultationFeedback
	if proc.Consultation == schedule.ConsultationOptional {
		ctype = types.ConsultationClarify
	}
	resp, err := h.orch.Consultation.Request(ctx, consultation.Request{
		SessionID:  sess.ID,
		Type:       ctype,
		Question:   fmt.Sprintf("%s.%s produced:\n%s\n\nApprove?", proc.ScheduleName(), proc.Name, truncate(body, 800)),
		Timeout:    h.orch.ConsultationTimeout,
		AllowAISub: !h.orch.DisableAISub,
	})
	if err != nil {
		return nil, err
	}
	return &types.ConsultationRecord{Type: ctype, Source: resp.Source, Content: resp.Content, Approved: consultationApproved(resp.Content)}, nil
}

// consultationApproved reads the approval boolean spec §4.1 step 6 calls
// for out of a consultation response's free-form content: a response is
// treated as a rejection only if it explicitly says so, defaulting to
// approved otherwise (the same "absent a signal, assume the favorable
// reading" convention containsCompletionSignal and flagsAmbiguity use).
func consultationApproved(content string) bool {
	lower := strings.ToLower(content)
	for _, phrase := range []string{"reject", "disapprove", "do not proceed", "don't proceed", "not approved", "denied"} {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}

// onScheduleTerminated records schedule as terminated, then either
// advances the run to the next schedule or runs the termination policy
// when every schedule has terminated with Production last (spec §4.1).
func (h *RunHandle) onScheduleTerminated(ctx context.Context, scheduleID int) error {
	h.mu.Lock()
	h.terminated[scheduleID] = true
	terminatedCopy := make(map[int]bool, len(h.terminated))
	for k, v := range h.terminated {
		terminatedCopy[k] = v
	}
	h.mu.Unlock()

	mayEnd := allTerminated(terminatedCopy) && scheduleID == schedule.Production

	terminate, nominated, justification, err := h.decideNext(ctx, terminatedCopy, mayEnd)
	if err != nil {
		return err
	}

	if mayEnd && terminate {
		return h.finalize(ctx, "goal met", justification)
	}

	h.mu.Lock()
	sess := h.sess
	from := types.Position{Schedule: scheduleID, Process: 3}
	to := types.Position{Schedule: nominated, Process: 1}
	h.mu.Unlock()

	if err := isLegalTransition(from, to, terminatedCopy, justification != "", "schedule-terminate", sess.Orchestration.FlowCode); err != nil {
		return err
	}
	h.mu.Lock()
	sess.Orchestration.CurrentSchedule = nominated
	sess.Orchestration.CurrentProcess = 0
	h.mu.Unlock()
	return nil
}

func allTerminated(terminated map[int]bool) bool {
	for _, id := range scheduleOrder {
		if !terminated[id] {
			return false
		}
	}
	return true
}

// decideNext asks the orchestrator-role LM whether to TERMINATE or
// nominate the next schedule, falling back to deterministic schedule
// ordering if the call or its parse fails (the same LM-failure-falls-
// back-to-deterministic convention internal/judge and internal/suspension
// use).
func (h *RunHandle) decideNext(ctx context.Context, terminated map[int]bool, mayEnd bool) (terminate bool, nominatedSchedule int, justification string, err error) {
	sess := h.State()
	prompt := decisionPrompt(sess, terminated, mayEnd)

	var content string
	callErr := h.orch.Models.WithFallback(ctx, types.RoleOrchestrator, func(client coordinator.LMClient) error {
		var innerErr error
		content, _, _, innerErr = client.Complete(ctx, decisionSystemPrompt, prompt, nil)
		return innerErr
	})
	if callErr != nil {
		if mayEnd {
			return true, 0, "orchestrator role unavailable; defaulting to terminate", nil
		}
		return false, nextSchedule(terminated), "orchestrator role unavailable; deterministic fallback", nil
	}

	t, id, just := parseDecision(content)
	if t {
		if mayEnd {
			return true, 0, just, nil
		}
		// LM asked to terminate before all schedules closed: reject and
		// fall back to deterministic ordering.
		return false, nextSchedule(terminated), "premature TERMINATE rejected; deterministic fallback", nil
	}
	if id == 0 || (terminated[id] && just == "") {
		return false, nextSchedule(terminated), "nomination unparseable or unjustified; deterministic fallback", nil
	}
	return false, id, just, nil
}

const decisionSystemPrompt = "You are the orchestrator role. Reply with exactly one line: either \"TERMINATE: <justification>\" if the run's goal is met, or \"NEXT: <schedule id> <justification>\" naming the next schedule to work in (1=Knowledge, 2=Plan, 3=Implement, 4=Scale, 5=Production)."

func decisionPrompt(sess types.Session, terminated map[int]bool, mayEnd bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\nFlow code so far: %s\nTerminated schedules: %v\n", sess.Task.Description, sess.Orchestration.FlowCode, terminated)
	if mayEnd {
		b.WriteString("Every schedule has terminated with Production last; the run is eligible to end.\n")
	}
	return b.String()
}

func parseDecision(content string) (terminate bool, scheduleID int, justification string) {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		switch {
		case strings.HasPrefix(upper, "TERMINATE:"):
			return true, 0, strings.TrimSpace(trimmed[len("TERMINATE:"):])
		case strings.HasPrefix(upper, "NEXT:"):
			rest := strings.TrimSpace(trimmed[len("NEXT:"):])
			fields := strings.SplitN(rest, " ", 2)
			var id int
			fmt.Sscanf(fields[0], "%d", &id)
			just := ""
			if len(fields) > 1 {
				just = strings.TrimSpace(fields[1])
			}
			return false, id, just
		}
	}
	return false, 0, ""
}

// finalize runs the Judge Coordinator, attaches its TLDR, records
// telemetry, and closes out the run.
func (h *RunHandle) finalize(ctx context.Context, reason, justification string) error {
	h.mu.Lock()
	sess := h.sess
	h.mu.Unlock()

	analysis, err := h.orch.Judge.Analyze(ctx, sess.ID, analysisInputFrom(*sess))
	if err != nil {
		h.emitTerminated(sess.ID, reason, nil)
	} else if analysis.TLDR != nil {
		h.mu.Lock()
		sess.TLDR = analysis.TLDR
		h.mu.Unlock()
		h.emitTerminated(sess.ID, reason, analysis.TLDR)
	}

	h.mu.Lock()
	sess.Task.Status = types.TaskCompleted
	sess.TerminatedReason = reason
	h.mu.Unlock()

	if err := h.orch.Store.Save(ctx, sess); err != nil {
		return err
	}

	if h.orch.Telemetry != nil {
		_ = h.orch.Telemetry.Append(ctx, telemetry.Record{
			SessionID:          sess.ID,
			Timestamp:          time.Now().Unix(),
			PlatformOrigin:     string(sess.PlatformOrigin),
			Success:            true,
			TotalTokens:        sess.Stats.TotalTokens,
			DurationSeconds:    time.Since(h.startedAt).Seconds(),
			EstimatedCostSaved: telemetry.EstimateCostSaved(sess.Stats.PromptTokens, sess.Stats.CompletionTokens),
		})
	}

	h.finish()
	return nil
}

func (h *RunHandle) emitTerminated(sessionID, reason string, tldr *types.TLDR) {
	h.emit(event.Terminated, event.TerminatedData{SessionID: sessionID, Reason: reason, TLDR: tldr})
}

func analysisInputFrom(sess types.Session) types.AnalysisInput {
	var actions []string
	var errs []string
	for _, step := range sess.Steps {
		if step.Outcome == types.OutcomeOK {
			actions = append(actions, fmt.Sprintf("%s.P%d", flowcode.Print([]types.Position{step.Position}, false), step.Position.Process))
		} else {
			errs = append(errs, step.Notes)
		}
	}
	return types.AnalysisInput{
		OriginalPrompt: sess.Task.Description,
		FlowCode:       sess.Orchestration.FlowCode,
		Actions:        actions,
		Errors:         errs,
	}
}

// suspend hands off a non-recoverable error to the Suspension Handler,
// freezing the run.
func (h *RunHandle) suspend(ctx context.Context, cause error) (types.StepOutcome, error) {
	h.mu.Lock()
	sess := h.sess
	sess.Orchestration.FlowCode = flowcode.WithSuspension(sess.Orchestration.FlowCode, true)
	h.mu.Unlock()

	code := "E000"
	message := cause.Error()
	state := errconf.FrozenState{Schedule: sess.Orchestration.CurrentSchedule, Process: sess.Orchestration.CurrentProcess, FlowCode: sess.Orchestration.FlowCode}
	switch e := cause.(type) {
	case *errconf.StructuralError:
		code, message, state = e.Code, e.Message, e.State
	case *errconf.OperationalError:
		code, message = e.Code, e.Message
	}

	box := h.orch.Suspension.Suspend(ctx, sess.ID, code, message, state, sess.Orchestration.FlowCode)
	h.mu.Lock()
	h.errorBox = &box
	h.mu.Unlock()

	_ = h.orch.Store.Save(ctx, sess)
	return types.OutcomeSuspended, cause
}

// Resume applies a resume strategy chosen for the current suspension,
// per spec §4.7 step 5: the suspension clears, and the flow code's
// trailing suspension marker is removed iff the strategy advances state.
func (h *RunHandle) Resume(strategy suspension.Strategy) {
	advanced := suspension.Resume(strategy)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.errorBox = nil
	if advanced {
		h.sess.Orchestration.FlowCode = flowcode.WithSuspension(h.sess.Orchestration.FlowCode, false)
		if strategy == suspension.Skip {
			next := nextWithinSchedule(types.Position{Schedule: h.sess.Orchestration.CurrentSchedule, Process: h.sess.Orchestration.CurrentProcess}, true)
			h.sess.Orchestration.CurrentSchedule, h.sess.Orchestration.CurrentProcess = next.Schedule, next.Process
		}
	}
	h.emit(event.Resumed, event.ResumedData{SessionID: h.sess.ID, Strategy: string(strategy)})
}

// ErrorBox exposes the suspension's rendered error box, if any.
func (h *RunHandle) ErrorBox() *suspension.ErrorBox {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errorBox
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func containsCompletionSignal(content string) bool {
	lower := strings.ToLower(content)
	for _, phrase := range []string{"say so explicitly", "complete", "nothing further", "no changes needed", "sound and complete"} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func flagsAmbiguity(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "ambiguous") || strings.Contains(lower, "clarif")
}

// toolInvocation is one "TOOL_CALL: <id> <args...>" line, split into the
// id and the raw argument string that follows it.
type toolInvocation struct {
	ID   string
	Args string
}

// extractToolInvocations scans content for "TOOL_CALL:" lines and returns
// each one's id and raw argument text, in order.
func extractToolInvocations(content string) []toolInvocation {
	var calls []toolInvocation
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "TOOL_CALL:") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "TOOL_CALL:"))
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		calls = append(calls, toolInvocation{ID: fields[0], Args: strings.TrimSpace(strings.TrimPrefix(rest, fields[0]))})
	}
	return calls
}

// extractToolCalls scans content for lines of the form
// "TOOL_CALL: <id> <args...>" and returns the referenced ids in order.
func extractToolCalls(content string) []string {
	invocations := extractToolInvocations(content)
	ids := make([]string, 0, len(invocations))
	for _, inv := range invocations {
		ids = append(ids, inv.ID)
	}
	return ids
}
