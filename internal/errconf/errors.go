// Package errconf defines the two error taxonomies the orchestration core
// raises: structural (navigation/role violations) and operational
// (backend/resource failures). Both carry enough frozen state for the
// Suspension Handler to render an error box and for a caller to recover
// with errors.As, following idiomatic Go's sentinel+wrapped-detail
// convention rather than the teacher's inline fmt.Errorf-only style —
// necessary here because the core must expose structured, frozen-state
// errors (spec §4.7/§7).
package errconf

import "fmt"

// FrozenState is the orchestrator state captured at the moment a
// structural error was raised.
type FrozenState struct {
	Schedule   int
	Process    int
	LastAction string
	FlowCode   string
}

// StructuralError is one of E001-E009: navigation or role violations.
type StructuralError struct {
	Code        string
	Message     string
	Rule        string
	Recoverable bool
	State       FrozenState
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s (rule=%s, flow_code=%s)", e.Code, e.Message, e.Rule, e.State.FlowCode)
}

// OperationalError is one of E010-E025: LM/resource/filesystem failures.
type OperationalError struct {
	Code        string
	Message     string
	Hint        string
	Recoverable bool
	Wrapped     error
}

func (e *OperationalError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *OperationalError) Unwrap() error { return e.Wrapped }

// Structural error codes (E001-E009).
const (
	EInvalidTransition        = "E001" // illegal move, e.g. P1->P3
	ESkipProcess              = "E002" // P2 -> schedule-terminate without P3
	EReopenTerminated         = "E003" // schedule revisited without justification
	EActionByOrchestratorRole = "E004" // orchestrator role attempted a tool call
	EOrchestrationByExecutor  = "E005" // executor role attempted a navigation decision
	EMissingJustification     = "E006" // terminated schedule revisited, no justification
	EProductionNotLast        = "E007" // run ended without Production terminated last
	EConsultationBypassed     = "E008" // mandatory consultation skipped
	EOrchestratorDoomLoop     = "E009" // identical step retried DoomLoopThreshold times
)

// Operational error codes (E010-E025).
const (
	EOllamaUnavailable   = "E010"
	EModelNotFound       = "E011"
	EResourceExhausted   = "E012"
	EFileSystemAccess    = "E013"
	ENetworkTimeout      = "E014"
	EAuthFailure         = "E015"
	EInvalidToolCall     = "E016"
	EEmptyTask           = "E017"
	EConsultationBusy    = "E018"
	EConsultationTimeout = "E019"
	ESessionCorrupt      = "E020"
	ECheckpointNotFound  = "E021"
	EJudgeNoExperts      = "E022"
	EJudgeSynthesisFail  = "E023"
	EConfigInvalid       = "E024"
	ECancelled           = "E025"
)

// NewStructural builds a StructuralError with frozen state attached.
func NewStructural(code, message, rule string, recoverable bool, state FrozenState) *StructuralError {
	return &StructuralError{Code: code, Message: message, Rule: rule, Recoverable: recoverable, State: state}
}

// NewOperational builds an OperationalError, optionally wrapping a cause.
func NewOperational(code, message, hint string, recoverable bool, cause error) *OperationalError {
	return &OperationalError{Code: code, Message: message, Hint: hint, Recoverable: recoverable, Wrapped: cause}
}

// Sentinel instances for the common operational cases callers compare
// against with errors.Is/errors.As. Each carries its own Recoverable
// flag; only ErrOllamaUnavailable and ErrConsultationBusy are recoverable.
var (
	ErrOllamaUnavailable   = NewOperational(EOllamaUnavailable, "ollama backend unavailable", "start the ollama daemon", true, nil)
	ErrModelNotFound       = NewOperational(EModelNotFound, "configured model not present on backend", "pull the model or adjust config.yaml", false, nil)
	ErrInvalidToolCall     = NewOperational(EInvalidToolCall, "tool call references an unknown id", "check the Tool Registry catalogue", false, nil)
	ErrEmptyTask           = NewOperational(EEmptyTask, "task description is empty", "submit a non-empty task", false, nil)
	ErrConsultationBusy    = NewOperational(EConsultationBusy, "a consultation request is already in flight", "wait for the active request to resolve", true, nil)
	ErrConsultationTimeout = NewOperational(EConsultationTimeout, "consultation timed out with no human answer and no AI substitute allowed", "", false, nil)
	ErrFileSystemAccess    = NewOperational(EFileSystemAccess, "session store write failed after retries", "check disk space and permissions", false, nil)
	ErrJudgeNoExperts      = NewOperational(EJudgeNoExperts, "judge invoked with zero experts configured", "configure at least one expert role", false, nil)
	ErrCancelled           = NewOperational(ECancelled, "run cancelled", "", false, nil)
)
