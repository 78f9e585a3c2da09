// Package types provides the wire-level types shared between the
// orchestration core and its front-end collaborators (CLI, IDE, server).
package types

// PlatformOrigin identifies which front-end started a session.
type PlatformOrigin string

const (
	PlatformCLI PlatformOrigin = "cli"
	PlatformIDE PlatformOrigin = "ide"
)

// Intent is the classification produced by the Intent Router.
type Intent string

const (
	IntentCoding   Intent = "coding"
	IntentResearch Intent = "research"
	IntentWriting  Intent = "writing"
	IntentVision   Intent = "vision"
	IntentGeneral  Intent = "general"
)

// Role is a category of LM specialisation.
type Role string

const (
	RoleOrchestrator Role = "orchestrator"
	RoleCoder        Role = "coder"
	RoleResearcher   Role = "researcher"
	RoleVision       Role = "vision"
)

// StepOutcome is the terminal state of a single executed step.
type StepOutcome string

const (
	OutcomeOK        StepOutcome = "ok"
	OutcomeFailed    StepOutcome = "failed"
	OutcomeSuspended StepOutcome = "suspended"
)

// ConsultationType distinguishes the two request shapes the Consultation
// Handler accepts.
type ConsultationType string

const (
	ConsultationClarify  ConsultationType = "clarify"
	ConsultationFeedback ConsultationType = "feedback"
)

// ConsultationSource records where a consultation response originated.
type ConsultationSource string

const (
	SourceHuman        ConsultationSource = "human"
	SourceAISubstitute ConsultationSource = "ai_substitute"
)

// Quality is the TLDR's overall verdict.
type Quality string

const (
	QualityExceptional      Quality = "EXCEPTIONAL"
	QualityAcceptable       Quality = "ACCEPTABLE"
	QualityNeedsImprovement Quality = "NEEDS_IMPROVEMENT"
)

// TaskStatus tracks the lifecycle of the task description attached to a
// session.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskAborted   TaskStatus = "aborted"
)

// Position is the (schedule, process) pair identifying a step. The
// sentinel (0,0) means "not yet started".
type Position struct {
	Schedule int `json:"schedule"`
	Process  int `json:"process"`
}

// IsZero reports whether p is the "not yet started" sentinel.
func (p Position) IsZero() bool {
	return p.Schedule == 0 && p.Process == 0
}

// ConsultationRecord is attached to a step when the process invoked the
// Consultation Handler. Approved is the approval boolean spec §4.1 step
// 6 requires be stored on the step record for Implement.P3's mandatory
// consultation, derived from whether the response reads as a rejection.
type ConsultationRecord struct {
	Type     ConsultationType   `json:"type"`
	Source   ConsultationSource `json:"source"`
	Content  string             `json:"content,omitempty"`
	Approved bool               `json:"approved"`
}

// Step is one committed move of the state machine.
type Step struct {
	Ordinal          int                 `json:"ordinal"`
	Position         Position            `json:"position"`
	ModelRole        Role                `json:"model_role"`
	Prompt           string              `json:"prompt"`
	ResponseExcerpt  string              `json:"response_excerpt"`
	ToolCalls        []string            `json:"tool_calls,omitempty"`
	Outcome          StepOutcome         `json:"outcome"`
	StartedAt        int64               `json:"started_at"`
	FinishedAt       int64               `json:"finished_at"`
	PromptTokens     int                 `json:"prompt_tokens"`
	CompletionTokens int                 `json:"completion_tokens"`
	Notes            string              `json:"notes,omitempty"`
	Consultation     *ConsultationRecord `json:"consultation,omitempty"`
	Attempt          int                 `json:"attempt"`
}

// Checkpoint is a named snapshot of a session at a specific step.
type Checkpoint struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	SessionID string  `json:"session_id"`
	StepCount int     `json:"step_count"`
	CreatedAt int64   `json:"created_at"`
	Snapshot  Session `json:"snapshot"`
}

// SessionStats are the running counters surfaced on a Session.
type SessionStats struct {
	TotalTokens      int     `json:"total_tokens"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	DurationSeconds  float64 `json:"duration_seconds"`
	PeakMemoryGB     float64 `json:"peak_memory_gb"`
}

// TaskDescription carries the user's submitted task and its lifecycle
// status.
type TaskDescription struct {
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
}

// Orchestration mirrors spec.md's §6 session-file "orchestration" object.
type Orchestration struct {
	FlowCode        string `json:"flow_code"`
	CurrentSchedule int    `json:"current_schedule"`
	CurrentProcess  int    `json:"current_process"`
}

// ExpertReport is one expert's scored analysis.
type ExpertReport struct {
	Role            Role     `json:"role"`
	PromptAdherence int      `json:"prompt_adherence"`
	ProjectQuality  int      `json:"project_quality"`
	Actions         int      `json:"actions"`
	Errors          int      `json:"errors"`
	Observations    []string `json:"observations"`
	Recommendations []string `json:"recommendations"`
}

// Consensus aggregates per-expert scores across non-failed experts.
type Consensus struct {
	Reports            []ExpertReport `json:"reports"`
	AvgPromptAdherence float64        `json:"avg_prompt_adherence"`
	AvgProjectQuality  float64        `json:"avg_project_quality"`
}

// TLDR is the Judge Coordinator's final synthesised verdict.
type TLDR struct {
	PromptGoal      string   `json:"prompt_goal"`
	Implementation  string   `json:"implementation"`
	ExpertConsensus string   `json:"expert_consensus"`
	Discoveries     []string `json:"discoveries"`
	Issues          string   `json:"issues"`
	Quality         Quality  `json:"quality_assessment"`
	Justification   string   `json:"justification"`
	Recommendations []string `json:"recommendations"`
}

// Analysis is the Judge Coordinator's full output for a run, including
// the per-expert failures that did not abort synthesis.
type Analysis struct {
	Consensus Consensus `json:"consensus"`
	Failures  []string  `json:"failures"`
	TLDR      *TLDR     `json:"tldr,omitempty"`
}

// AnalysisInput is what the Judge Coordinator needs from a terminated (or
// being-terminated) session to produce an Analysis.
type AnalysisInput struct {
	OriginalPrompt string              `json:"original_prompt"`
	FlowCode       string              `json:"flow_code"`
	Actions        []string            `json:"actions"`
	Errors         []string            `json:"errors"`
	FileChanges    map[string][]string `json:"file_changes"`
	TestResults    string              `json:"test_results,omitempty"`
	LintResults    string              `json:"lint_results,omitempty"`
}

// Session is the persistent, portable record of a single run. It is
// content-addressed by ID and is the unit the Session Store serialises.
type Session struct {
	ID               string          `json:"id"`
	CreatedAt        int64           `json:"created_at"`
	PlatformOrigin   PlatformOrigin  `json:"platform_origin"`
	Title            string          `json:"title,omitempty"`
	Task             TaskDescription `json:"task"`
	Intent           Intent          `json:"intent"`
	Orchestration    Orchestration   `json:"orchestration"`
	Steps            []Step          `json:"steps"`
	Checkpoints      []Checkpoint    `json:"checkpoints,omitempty"`
	Stats            SessionStats    `json:"stats"`
	TLDR             *TLDR           `json:"tldr,omitempty"`
	TerminatedReason string          `json:"terminated_reason,omitempty"`
}
