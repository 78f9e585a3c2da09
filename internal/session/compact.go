package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/cadenroberts/OllamaBot-sub010/internal/coordinator"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// CompactionConfig controls step-history compaction (SPEC_FULL.md §10),
// generalized from the teacher's message-list CompactionConfig
// (internal/session/compact.go) to operate over Step records instead of
// chat messages.
type CompactionConfig struct {
	MinStepsToKeep   int
	SummaryMaxTokens int
	ContextThreshold float64
}

// DefaultCompactionConfig mirrors the teacher's defaults.
var DefaultCompactionConfig = CompactionConfig{
	MinStepsToKeep:   4,
	SummaryMaxTokens: 2000,
	ContextThreshold: 0.75,
}

// Compact summarises the oldest steps of sess via the orchestrator-role
// LM, replacing them with a single synthetic step whose ResponseExcerpt
// holds the summary, when total step count exceeds cfg.MinStepsToKeep.
// The step-count check is its only trigger; the Orchestrator does not
// call it.
func Compact(ctx context.Context, models *coordinator.Coordinator, sess *types.Session, cfg CompactionConfig) error {
	if len(sess.Steps) <= cfg.MinStepsToKeep {
		return nil
	}

	cutoff := len(sess.Steps) - cfg.MinStepsToKeep
	toCompact := sess.Steps[:cutoff]
	kept := sess.Steps[cutoff:]

	client, err := models.ClientFor(types.RoleOrchestrator)
	if err != nil {
		return err
	}

	prompt := buildSummaryPrompt(toCompact)
	summary, promptTokens, completionTokens, err := client.Complete(ctx, compactionSystemPrompt, prompt, nil)
	if err != nil {
		return err
	}
	models.RecordTokens(types.RoleOrchestrator, promptTokens+completionTokens)

	summaryStep := types.Step{
		Ordinal:         toCompact[0].Ordinal,
		Position:        toCompact[0].Position,
		ModelRole:       types.RoleOrchestrator,
		ResponseExcerpt: summary,
		Outcome:         types.OutcomeOK,
		Notes:           fmt.Sprintf("compacted %d prior steps", len(toCompact)),
	}
	sess.Steps = append([]types.Step{summaryStep}, kept...)
	return nil
}

const compactionSystemPrompt = "You are a run-history summarizer. Create a concise summary that preserves key context for continuing the orchestration run: decisions made, files touched, outstanding issues, next steps."

func buildSummaryPrompt(steps []types.Step) string {
	var b strings.Builder
	b.WriteString("Summarize the following orchestration steps:\n\n")
	for _, step := range steps {
		fmt.Fprintf(&b, "Step %d (schedule=%d process=%d, role=%s, outcome=%s):\n",
			step.Ordinal, step.Position.Schedule, step.Position.Process, step.ModelRole, step.Outcome)
		if step.Prompt != "" {
			fmt.Fprintf(&b, "  prompt: %s\n", truncate(step.Prompt, 300))
		}
		if step.ResponseExcerpt != "" {
			fmt.Fprintf(&b, "  response: %s\n", truncate(step.ResponseExcerpt, 300))
		}
		if len(step.ToolCalls) > 0 {
			fmt.Fprintf(&b, "  tool calls: %s\n", strings.Join(step.ToolCalls, ", "))
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
