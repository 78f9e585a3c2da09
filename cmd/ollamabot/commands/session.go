package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cadenroberts/OllamaBot-sub010/internal/config"
	"github.com/cadenroberts/OllamaBot-sub010/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage persisted sessions",
}

var sessionExportPath string

func init() {
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionExportCmd)
	sessionCmd.AddCommand(sessionMigrateCmd)
	sessionExportCmd.Flags().StringVarP(&sessionExportPath, "output", "o", "", "Output file (default <session-id>.json)")
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE:  runSessionList,
}

func runSessionList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store := session.New(config.SessionsDir())
	ids, err := store.List(ctx)
	if err != nil {
		return exitError{code: ExitConfigError, err: err}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tINTENT\tSTATUS\tSTEPS\tFLOW CODE")
	for _, id := range ids {
		sess, err := store.Load(ctx, id)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", sess.ID, sess.Title, sess.Intent, sess.Task.Status, len(sess.Steps), sess.Orchestration.FlowCode)
	}
	return w.Flush()
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's full step history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store := session.New(config.SessionsDir())
	sess, err := store.Load(ctx, args[0])
	if err != nil {
		return exitError{code: ExitUserError, err: err}
	}

	fmt.Printf("Session %s: %s\n", sess.ID, sess.Title)
	fmt.Printf("Task: %s (%s)\n", sess.Task.Description, sess.Task.Status)
	fmt.Printf("Flow code: %s\n\n", sess.Orchestration.FlowCode)
	for _, step := range sess.Steps {
		fmt.Printf("#%d S%dP%d [%s] role=%s tokens=%d+%d\n",
			step.Ordinal, step.Position.Schedule, step.Position.Process, step.Outcome, step.ModelRole, step.PromptTokens, step.CompletionTokens)
	}
	if sess.TLDR != nil {
		fmt.Printf("\nTLDR: %s\nQuality: %s\n", sess.TLDR.Implementation, sess.TLDR.Quality)
	}
	return nil
}

var sessionExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session to a portable, checksummed file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionExport,
}

func runSessionExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store := session.New(config.SessionsDir())
	sess, err := store.Load(ctx, args[0])
	if err != nil {
		return exitError{code: ExitUserError, err: err}
	}

	path := sessionExportPath
	if path == "" {
		path = sess.ID + ".json"
	}
	envelope, err := session.Export(ctx, sess, path)
	if err != nil {
		return exitError{code: ExitConfigError, err: err}
	}
	fmt.Printf("Exported %s to %s (checksum %s)\n", sess.ID, path, envelope.Checksum)
	return nil
}

var sessionMigrateCmd = &cobra.Command{
	Use:   "migrate <export-file>",
	Short: "Import a previously exported session into this host's store",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionMigrate,
}

func runSessionMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	sess, err := session.Import(ctx, args[0])
	if err != nil {
		return exitError{code: ExitUserError, err: err}
	}

	store := session.New(config.SessionsDir())
	if err := store.Save(ctx, sess); err != nil {
		return exitError{code: ExitConfigError, err: err}
	}
	fmt.Printf("Imported session %s\n", sess.ID)
	return nil
}
