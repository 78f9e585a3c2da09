package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	sess := &types.Session{
		ID:    "sess-1",
		Title: "New Run",
		Task:  types.TaskDescription{Description: "fix the bug", Status: types.TaskRunning},
		Steps: []types.Step{{Ordinal: 1, Position: types.Position{Schedule: 1, Process: 1}}},
	}
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, sess.ID, loaded.ID)
	require.Equal(t, sess.Task.Description, loaded.Task.Description)
	require.Len(t, loaded.Steps, 1)
}

func TestLoadMigratesLegacyShardDirectory(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	legacyDir := filepath.Join(dir, "sess-legacy")
	require.NoError(t, os.MkdirAll(legacyDir, 0755))

	sess := types.Session{ID: "sess-legacy", Title: "Legacy Run"}
	data, err := json.Marshal(sess)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(legacyDir, "session.json"), data, 0644))

	step := types.Step{Ordinal: 1, Position: types.Position{Schedule: 1, Process: 1}}
	stepData, err := json.Marshal(step)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(legacyDir, "step_0001.json"), stepData, 0644))

	store := New(dir)
	loaded, err := store.Load(ctx, "sess-legacy")
	require.NoError(t, err)
	require.Equal(t, "sess-legacy", loaded.ID)
	require.Len(t, loaded.Steps, 1)

	// Legacy directory must be migrated out of the way.
	_, statErr := os.Stat(legacyDir)
	require.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(dir, "migrated_sess-legacy"))
	require.NoError(t, statErr)

	// And the preferred single-file layout must now exist.
	reloaded, err := store.Load(ctx, "sess-legacy")
	require.NoError(t, err)
	require.Equal(t, "sess-legacy", reloaded.ID)
}

func TestCheckpointSaveRestore(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	sess := &types.Session{ID: "sess-2", Steps: []types.Step{{Ordinal: 1}, {Ordinal: 2}}}
	cp, err := store.SaveCheckpoint(ctx, sess, "before risky step")
	require.NoError(t, err)
	require.Equal(t, 2, cp.StepCount)

	restored, err := store.Restore(ctx, cp.ID)
	require.NoError(t, err)
	require.Equal(t, "sess-2", restored.ID)
	require.Len(t, restored.Steps, 2)
}

func TestLoadUnknownSessionFails(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.Load(context.Background(), "does-not-exist")
	require.Error(t, err)
}
