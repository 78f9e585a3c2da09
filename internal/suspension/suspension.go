// Package suspension implements the Suspension Handler (spec §4.7): on
// a non-recoverable error, freeze state, render a structured analysis
// (canned for known error codes, otherwise LM-generated), and wait for
// a user verdict that selects a resume strategy. The freeze/analyze/
// resume shape is grounded on internal/permission/checker.go's
// request-then-resolve pattern, generalized from permission grants to
// {Retry, Skip, Abort, Investigate} resume strategies.
package suspension

import (
	"context"
	"fmt"
	"strings"

	"github.com/cadenroberts/OllamaBot-sub010/internal/coordinator"
	"github.com/cadenroberts/OllamaBot-sub010/internal/errconf"
	"github.com/cadenroberts/OllamaBot-sub010/internal/event"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// Strategy is the user's resume verdict.
type Strategy string

const (
	Retry       Strategy = "retry"
	Skip        Strategy = "skip"
	Abort       Strategy = "abort"
	Investigate Strategy = "investigate"
)

// Analysis is the structured explanation attached to a suspension.
type Analysis struct {
	WhatHappened      string
	RootCause         string
	Factors           []string
	ProposedSolutions []string
	Canned            bool
}

// ErrorBox is the frozen, user-facing rendering of a suspension.
type ErrorBox struct {
	Code     string
	Message  string
	State    errconf.FrozenState
	FlowCode string
	Analysis Analysis
}

// cannedAnalyses covers error codes spec §4.7 calls out as having a
// hardcoded table entry: conditions whose cause is already fully
// determined by the code itself, so an LM call would add nothing.
var cannedAnalyses = map[string]Analysis{
	errconf.EOllamaUnavailable: {
		WhatHappened:      "The local inference backend did not respond.",
		RootCause:         "The Ollama daemon is not running or is unreachable at the configured URL.",
		Factors:           []string{"daemon process state", "network/firewall configuration", "OLLAMA_URL misconfiguration"},
		ProposedSolutions: []string{"start the ollama daemon", "verify OLLAMA_URL", "retry once the daemon is confirmed healthy"},
		Canned:            true,
	},
	errconf.EModelNotFound: {
		WhatHappened:      "A role's configured model is not present on the backend.",
		RootCause:         "The model was never pulled, or config.yaml names a model that was renamed or removed.",
		Factors:           []string{"models.roles.*.default/tier_mapping values", "locally available model tags"},
		ProposedSolutions: []string{"pull the missing model", "adjust config.yaml to a model that is present"},
		Canned:            true,
	},
	errconf.EResourceExhausted: {
		WhatHappened:      "The system ran out of memory or another bounded resource mid-step.",
		RootCause:         "The selected model's memory footprint exceeds what the current RAM tier allows concurrently with other processes.",
		Factors:           []string{"RAM tier detection", "concurrent process memory pressure"},
		ProposedSolutions: []string{"lower the RAM tier override", "close other memory-heavy processes", "select a smaller model for this role"},
		Canned:            true,
	},
}

// Handler freezes and explains non-recoverable failures.
type Handler struct {
	models *coordinator.Coordinator
}

func New(models *coordinator.Coordinator) *Handler {
	return &Handler{models: models}
}

// Suspend builds the ErrorBox for a non-recoverable error and publishes
// the Suspended event. flowCode must already carry the trailing X.
func (h *Handler) Suspend(ctx context.Context, sessionID string, code, message string, state errconf.FrozenState, flowCode string) ErrorBox {
	var analysis Analysis
	if canned, ok := cannedAnalyses[code]; ok {
		analysis = canned
	} else {
		analysis = h.generateAnalysis(ctx, code, message, state)
	}

	box := ErrorBox{Code: code, Message: message, State: state, FlowCode: flowCode, Analysis: analysis}

	event.Publish(event.Event{Type: event.Suspended, Data: event.SuspendedData{
		SessionID: sessionID,
		Code:      code,
		Message:   message,
		FlowCode:  flowCode,
	}})

	return box
}

func (h *Handler) generateAnalysis(ctx context.Context, code, message string, state errconf.FrozenState) Analysis {
	client, err := h.models.ClientFor(types.RoleOrchestrator)
	if err != nil {
		return fallbackAnalysis(code, message)
	}

	prompt := fmt.Sprintf(
		"A non-recoverable error %s occurred: %s\nFrozen state: schedule=%d process=%d last_action=%q flow_code=%q\n"+
			"Respond with:\nWHAT_HAPPENED:\nROOT_CAUSE:\nFACTORS:\n- ...\nPROPOSED_SOLUTIONS:\n- ...\n",
		code, message, state.Schedule, state.Process, state.LastAction, state.FlowCode,
	)
	content, _, _, err := client.Complete(ctx, "You are diagnosing an orchestration failure for a human operator.", prompt, nil)
	if err != nil {
		return fallbackAnalysis(code, message)
	}
	return parseAnalysis(content)
}

func fallbackAnalysis(code, message string) Analysis {
	return Analysis{
		WhatHappened:      message,
		RootCause:         "unknown: the orchestrator role was unavailable to diagnose this failure",
		ProposedSolutions: []string{"retry", "investigate manually"},
	}
}

func parseAnalysis(content string) Analysis {
	var a Analysis
	section := ""
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "WHAT_HAPPENED:"):
			a.WhatHappened = fieldValue(line)
			section = ""
		case strings.HasPrefix(upper, "ROOT_CAUSE:"):
			a.RootCause = fieldValue(line)
			section = ""
		case strings.HasPrefix(upper, "FACTORS:"):
			section = "factors"
		case strings.HasPrefix(upper, "PROPOSED_SOLUTIONS:"):
			section = "solutions"
		default:
			if item, ok := stripBullet(line); ok {
				switch section {
				case "factors":
					a.Factors = append(a.Factors, item)
				case "solutions":
					a.ProposedSolutions = append(a.ProposedSolutions, item)
				}
			}
		}
	}
	return a
}

func fieldValue(line string) string {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func stripBullet(line string) (string, bool) {
	switch {
	case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "*"):
		return strings.TrimSpace(line[1:]), true
	case strings.HasPrefix(line, "•"):
		return strings.TrimSpace(line[len("•"):]), true
	}
	return "", false
}

// Resume applies strategy to a suspended box, reporting whether the
// state advanced (callers use this to decide whether to strip the
// flow code's trailing X, per spec §4.7 step 5).
func Resume(strategy Strategy) (advanced bool) {
	switch strategy {
	case Retry, Skip, Investigate:
		return true
	case Abort:
		return false
	default:
		return false
	}
}

// ParseStrategy validates a user's raw answer against the four allowed
// strategies.
func ParseStrategy(answer string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(answer))) {
	case Retry:
		return Retry, nil
	case Skip:
		return Skip, nil
	case Abort:
		return Abort, nil
	case Investigate:
		return Investigate, nil
	default:
		return "", fmt.Errorf("suspension: %q is not one of retry, skip, abort, investigate", answer)
	}
}
