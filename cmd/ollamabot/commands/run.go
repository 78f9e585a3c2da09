package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cadenroberts/OllamaBot-sub010/internal/errconf"
	"github.com/cadenroberts/OllamaBot-sub010/internal/orchestrator"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// Exit codes per SPEC_FULL.md §6.
const (
	ExitSuccess     = 0
	ExitUserError   = 1
	ExitSuspended   = 2
	ExitConfigError = 3
)

var runMaxSteps int

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Start a new orchestrated run",
	Long: `Submit a task description to the Orchestrator and drive it step by step
until it terminates or suspends.

Example:
  ollamabot run "add input validation to the signup handler"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", 200, "Safety cap on steps taken before giving up")
}

func runTask(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	orch, _, err := bootstrap(ctx)
	if err != nil {
		return exitError{code: ExitConfigError, err: err}
	}

	task := strings.Join(args, " ")
	handle, err := orch.Start(ctx, task, orchestrator.StartOptions{PlatformOrigin: types.PlatformCLI})
	if err != nil {
		if errors.Is(err, errconf.ErrEmptyTask) {
			return exitError{code: ExitUserError, err: err}
		}
		return exitError{code: ExitConfigError, err: err}
	}

	fmt.Printf("Started run %s: %s\n", handle.State().ID, task)

	for i := 0; i < runMaxSteps; i++ {
		outcome, stepErr := handle.Step(ctx)
		state := handle.State()
		fmt.Printf("[%s] S%dP%d: %s\n", state.ID, state.Orchestration.CurrentSchedule, state.Orchestration.CurrentProcess, outcome)

		if stepErr != nil {
			if outcome == types.OutcomeSuspended {
				if box := handle.ErrorBox(); box != nil {
					fmt.Printf("\nSuspended: %s\n%s\n%s\n", box.Code, box.Message, box.Analysis.WhatHappened)
				}
				return exitError{code: ExitSuspended, err: stepErr}
			}
			return exitError{code: ExitConfigError, err: stepErr}
		}

		if state.Task.Status == types.TaskCompleted {
			if state.TLDR != nil {
				fmt.Printf("\n%s\n%s\n%s\n", state.TLDR.PromptGoal, state.TLDR.Implementation, state.TLDR.Quality)
			}
			return nil
		}
	}

	return exitError{code: ExitConfigError, err: fmt.Errorf("ollamabot: run did not terminate within %d steps", runMaxSteps)}
}

// exitError carries the process exit code a failed command should use,
// mapped in main.go the way the teacher's main.go maps a single
// Execute() error to os.Exit(1); this generalizes that to a small
// error-to-code table per SPEC_FULL.md §6.
type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string { return e.err.Error() }
func (e exitError) Unwrap() error { return e.err }

// ExitCode extracts the process exit code from err, defaulting to
// ExitUserError for any error that didn't originate as an exitError.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitUserError
}
