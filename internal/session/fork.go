package session

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// Fork creates a new session that snapshots parent at its current step,
// for re-running the Judge Coordinator against an alternate expert
// panel or analysis input without disturbing the parent run. Grounded
// on internal/executor/subagent.go's createChildSession (new ULID id,
// inherited task/intent, independent persistence).
func Fork(ctx context.Context, store *Store, parent *types.Session, reason string) (*types.Session, error) {
	child := *parent
	child.ID = ulid.Make().String()
	child.CreatedAt = nowUnix()
	child.Steps = append([]types.Step(nil), parent.Steps...)
	child.Checkpoints = nil
	child.TLDR = nil
	child.TerminatedReason = ""
	if reason != "" {
		child.Title = parent.Title + " (fork: " + reason + ")"
	}

	if err := store.Save(ctx, &child); err != nil {
		return nil, err
	}
	return &child, nil
}
