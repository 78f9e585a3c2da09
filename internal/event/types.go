package event

import "github.com/cadenroberts/OllamaBot-sub010/pkg/types"

// Type is the orchestrator event kind (spec §4.1).
type Type string

const (
	PositionChanged       Type = "position.changed"
	StepCompleted         Type = "step.completed"
	ConsultationRequested Type = "consultation.requested"
	ConsultationAnswered  Type = "consultation.answered"
	Suspended             Type = "suspended"
	Resumed               Type = "resumed"
	Terminated            Type = "terminated"
)

// PositionChangedData is the payload for PositionChanged.
type PositionChangedData struct {
	SessionID string         `json:"session_id"`
	Position  types.Position `json:"position"`
	FlowCode  string         `json:"flow_code"`
}

// StepCompletedData is the payload for StepCompleted.
type StepCompletedData struct {
	SessionID string     `json:"session_id"`
	Step      types.Step `json:"step"`
}

// ConsultationRequestedData is the payload for ConsultationRequested.
type ConsultationRequestedData struct {
	SessionID string                 `json:"session_id"`
	Type      types.ConsultationType `json:"type"`
	Question  string                 `json:"question"`
}

// ConsultationAnsweredData is the payload for ConsultationAnswered.
type ConsultationAnsweredData struct {
	SessionID string                   `json:"session_id"`
	Source    types.ConsultationSource `json:"source"`
}

// SuspendedData is the payload for Suspended.
type SuspendedData struct {
	SessionID string `json:"session_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	FlowCode  string `json:"flow_code"`
}

// ResumedData is the payload for Resumed.
type ResumedData struct {
	SessionID string `json:"session_id"`
	Strategy  string `json:"strategy"`
}

// TerminatedData is the payload for Terminated.
type TerminatedData struct {
	SessionID string      `json:"session_id"`
	Reason    string      `json:"reason"`
	TLDR      *types.TLDR `json:"tldr,omitempty"`
}
