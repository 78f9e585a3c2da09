package orchestrator

import (
	"github.com/cadenroberts/OllamaBot-sub010/internal/errconf"
	"github.com/cadenroberts/OllamaBot-sub010/internal/schedule"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// scheduleOrder is the fixed schedule sequence a fresh run walks, absent
// any re-entry decided by the orchestrator role.
var scheduleOrder = []int{schedule.Knowledge, schedule.Plan, schedule.Implement, schedule.Scale, schedule.Production}

// nextWithinSchedule computes the position reached by a normal in-process
// step, per spec §4.6: retry the current process, or advance to the next
// one, never regressing automatically. Regression (Pn -> Pn-1) is a
// legal transition the navigation check still accepts, but no code in
// the step loop or the resume strategies proposes it.
func nextWithinSchedule(current types.Position, advance bool) types.Position {
	if current.IsZero() {
		return types.Position{Schedule: scheduleOrder[0], Process: 1}
	}
	if !advance {
		return current
	}
	if current.Process < 3 {
		return types.Position{Schedule: current.Schedule, Process: current.Process + 1}
	}
	return current // P3 complete: caller decides the next schedule separately.
}

// nextSchedule returns the next not-yet-terminated schedule in
// scheduleOrder, or 0 if all have terminated (the run must then end on
// Production, per invariant 5).
func nextSchedule(terminated map[int]bool) int {
	for _, id := range scheduleOrder {
		if !terminated[id] {
			return id
		}
	}
	return 0
}

// isLegalTransition enforces spec §4.6's transition table and raises one
// of E001-E008 on violation. terminated tracks schedules with at least
// one ok P3 step; justified is true when a terminated-schedule re-entry
// was explicitly requested by the orchestrator role.
func isLegalTransition(from, to types.Position, terminated map[int]bool, justified bool, lastAction string, flowCode string) error {
	frozen := errconf.FrozenState{Schedule: from.Schedule, Process: from.Process, LastAction: lastAction, FlowCode: flowCode}

	if from.IsZero() {
		if to.Schedule == scheduleOrder[0] && to.Process == 1 {
			return nil
		}
		return errconf.NewStructural(errconf.EInvalidTransition, "a run must start at Knowledge.P1", "start-position", false, frozen)
	}

	if to.Schedule == from.Schedule {
		switch from.Process {
		case 0: // schedule just entered via schedule-terminate, which checked the move to P1
			if to.Process == 1 {
				return nil
			}
		case 1:
			if to.Process == 1 || to.Process == 2 {
				return nil
			}
		case 2:
			if to.Process >= 1 && to.Process <= 3 {
				return nil
			}
		case 3:
			if to.Process == 2 || to.Process == 3 {
				return nil
			}
		}
		return errconf.NewStructural(errconf.EInvalidTransition, "illegal in-schedule move", "P1->{P1,P2}; P2->{P1,P2,P3}; P3->{P2,P3}", false, frozen)
	}

	// Cross-schedule: only legal directly after a P3 completion.
	if from.Process != 3 {
		return errconf.NewStructural(errconf.ESkipProcess, "schedule changed before P3 completed", "schedule-terminate requires P3", false, frozen)
	}
	if !terminated[from.Schedule] {
		return errconf.NewStructural(errconf.ESkipProcess, "schedule changed without a terminating P3", "schedule-terminate requires an ok P3 step", false, frozen)
	}
	if to.Process != 1 {
		return errconf.NewStructural(errconf.EInvalidTransition, "a new schedule must be entered at P1", "schedule-entry", false, frozen)
	}
	if terminated[to.Schedule] && !justified {
		return errconf.NewStructural(errconf.EReopenTerminated, "terminated schedule re-entered without justification", "reopen-requires-justification", false, frozen)
	}
	return nil
}
