package session

import (
	"context"
	"strings"

	"github.com/cadenroberts/OllamaBot-sub010/internal/coordinator"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// titleSystemPrompt is carried over near-verbatim from the teacher's
// internal/session/title.go — the instructions are domain-agnostic
// (generate a short title from the opening request) and apply equally
// to a task description as to a chat message.
const titleSystemPrompt = `You are a title generator. You output ONLY a thread title. Nothing else.

Generate a brief title that would help the user find this conversation later.

Rules:
- A single line, <=50 characters
- No explanations
- Use -ing verbs for actions (Debugging, Implementing, Analyzing)
- Keep exact: technical terms, numbers, filenames
- Remove: the, this, my, a, an
- Always output something meaningful`

const defaultTitle = "New Run"

func isDefaultTitle(title string) bool {
	return title == "" || title == defaultTitle
}

// EnsureTitle generates a title for sess from its task description if
// the session is still carrying the default placeholder title. Mirrors
// the teacher's ensureTitle. The Orchestrator does not call it, so runs
// started by Start keep the "New Run" title.
func EnsureTitle(ctx context.Context, models *coordinator.Coordinator, sess *types.Session) {
	if !isDefaultTitle(sess.Title) {
		return
	}
	client, err := models.ClientFor(types.RoleOrchestrator)
	if err != nil {
		return
	}
	content, promptTokens, completionTokens, err := client.Complete(ctx, titleSystemPrompt, sess.Task.Description, nil)
	if err != nil || strings.TrimSpace(content) == "" {
		return
	}
	models.RecordTokens(types.RoleOrchestrator, promptTokens+completionTokens)
	sess.Title = strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
}
