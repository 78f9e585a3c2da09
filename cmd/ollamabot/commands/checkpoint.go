package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cadenroberts/OllamaBot-sub010/internal/config"
	"github.com/cadenroberts/OllamaBot-sub010/internal/session"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Save, list, and restore session checkpoints",
}

var checkpointLabel string

func init() {
	checkpointCmd.AddCommand(checkpointSaveCmd)
	checkpointCmd.AddCommand(checkpointListCmd)
	checkpointCmd.AddCommand(checkpointRestoreCmd)
	checkpointSaveCmd.Flags().StringVar(&checkpointLabel, "label", "", "Human-readable label for the checkpoint")
}

var checkpointSaveCmd = &cobra.Command{
	Use:   "save <session-id>",
	Short: "Snapshot a session's current state as a named checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointSave,
}

func runCheckpointSave(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store := session.New(config.SessionsDir())
	sess, err := store.Load(ctx, args[0])
	if err != nil {
		return exitError{code: ExitUserError, err: err}
	}

	cp, err := store.SaveCheckpoint(ctx, sess, checkpointLabel)
	if err != nil {
		return exitError{code: ExitConfigError, err: err}
	}
	if err := store.Save(ctx, sess); err != nil {
		return exitError{code: ExitConfigError, err: err}
	}
	fmt.Printf("Saved checkpoint %s (step %d)\n", cp.ID, cp.StepCount)
	return nil
}

var checkpointListCmd = &cobra.Command{
	Use:   "list <session-id>",
	Short: "List checkpoints belonging to a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointList,
}

func runCheckpointList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store := session.New(config.SessionsDir())
	ids, err := store.ListCheckpoints(ctx, args[0])
	if err != nil {
		return exitError{code: ExitConfigError, err: err}
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

var checkpointRestoreCmd = &cobra.Command{
	Use:   "restore <checkpoint-id>",
	Short: "Restore a session to a previously saved checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointRestore,
}

func runCheckpointRestore(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store := session.New(config.SessionsDir())
	restored, err := store.Restore(ctx, args[0])
	if err != nil {
		return exitError{code: ExitUserError, err: err}
	}
	if err := store.Save(ctx, restored); err != nil {
		return exitError{code: ExitConfigError, err: err}
	}
	fmt.Printf("Restored session %s to checkpoint %s\n", restored.ID, args[0])
	return nil
}
