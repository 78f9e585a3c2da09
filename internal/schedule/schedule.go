// Package schedule implements the Schedule Factory (spec §4.2): the 15
// Processes (5 schedules x 3) and their per-process metadata. Each
// process carries a system-prompt template, not an interpreted string,
// so schedule-specific context can be injected the way the teacher's
// session.SystemPrompt.Build composes sections (grounded on
// internal/session/system.go).
package schedule

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// Consultation requirement for a process.
type Consultation string

const (
	ConsultationNone      Consultation = "none"
	ConsultationOptional  Consultation = "optional"
	ConsultationMandatory Consultation = "mandatory"
)

// PromptContext carries the values injected into a process's system
// prompt template.
type PromptContext struct {
	Task          string
	Intent        types.Intent
	ScheduleName  string
	ProcessName   string
	PriorNotes    string
	WorkDir       string
	Platform      string
	GitBranch     string
}

// Process is one of the three ordered sub-phases inside a schedule.
type Process struct {
	ID           int
	Name         string
	ScheduleID   int
	Consultation Consultation
	ModelRole    types.Role
	template     *template.Template
}

// Build renders the process's system-prompt template against ctx.
func (p *Process) Build(ctx PromptContext) (string, error) {
	var buf bytes.Buffer
	if err := p.template.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("schedule: building prompt for %s.P%d: %w", p.ScheduleName(), p.ID, err)
	}
	return buf.String(), nil
}

// ScheduleName looks up the human name of the process's parent schedule.
func (p *Process) ScheduleName() string {
	s, ok := byID[p.ScheduleID]
	if !ok {
		return fmt.Sprintf("schedule-%d", p.ScheduleID)
	}
	return s.Name
}

// Schedule is one of the five top-level phases.
type Schedule struct {
	ID               int
	Name             string
	DefaultModelRole types.Role
	Processes        [3]*Process
}

const (
	Knowledge  = 1
	Plan       = 2
	Implement  = 3
	Scale      = 4
	Production = 5
)

var (
	all   []*Schedule
	byID  map[int]*Schedule
)

func mustTemplate(name, body string) *template.Template {
	return template.Must(template.New(name).Parse(body))
}

func newProcess(id int, name string, scheduleID int, consultation Consultation, role types.Role, promptBody string) *Process {
	return &Process{
		ID:           id,
		Name:         name,
		ScheduleID:   scheduleID,
		Consultation: consultation,
		ModelRole:    role,
		template:     mustTemplate(fmt.Sprintf("s%dp%d", scheduleID, id), promptBody),
	}
}

func init() {
	byID = make(map[int]*Schedule, 5)

	knowledge := &Schedule{ID: Knowledge, Name: "Knowledge", DefaultModelRole: types.RoleResearcher}
	knowledge.Processes = [3]*Process{
		newProcess(1, "Research", Knowledge, ConsultationNone, types.RoleResearcher,
			"You are the researcher role for the Knowledge schedule, Research process.\nTask: {{.Task}}\nGather background facts and prior art relevant to the task. Do not modify files.\n{{if .PriorNotes}}Prior notes:\n{{.PriorNotes}}{{end}}"),
		newProcess(2, "Crawl", Knowledge, ConsultationNone, types.RoleResearcher,
			"You are the researcher role for the Knowledge schedule, Crawl process.\nTask: {{.Task}}\nIdentify the specific files, symbols, and project conventions the task will touch."),
		newProcess(3, "Retrieve", Knowledge, ConsultationNone, types.RoleResearcher,
			"You are the researcher role for the Knowledge schedule, Retrieve process.\nTask: {{.Task}}\nSummarise the gathered knowledge into a compact brief for the Plan schedule. If the brief is complete, say so explicitly."),
	}
	all = append(all, knowledge)
	byID[Knowledge] = knowledge

	plan := &Schedule{ID: Plan, Name: "Plan", DefaultModelRole: types.RoleCoder}
	plan.Processes = [3]*Process{
		newProcess(1, "Brainstorm", Plan, ConsultationNone, types.RoleCoder,
			"You are the coder role for the Plan schedule, Brainstorm process.\nTask: {{.Task}}\nPropose two or three candidate approaches with tradeoffs."),
		newProcess(2, "Clarify", Plan, ConsultationOptional, types.RoleCoder,
			"You are the coder role for the Plan schedule, Clarify process.\nTask: {{.Task}}\nIf anything about the task is ambiguous, flag it explicitly so a clarifying question can be asked; otherwise proceed to a plan outline."),
		newProcess(3, "Plan", Plan, ConsultationNone, types.RoleCoder,
			"You are the coder role for the Plan schedule, Plan process.\nTask: {{.Task}}\nProduce a concrete, ordered implementation plan. If the plan is sound and complete, say so explicitly."),
	}
	all = append(all, plan)
	byID[Plan] = plan

	implement := &Schedule{ID: Implement, Name: "Implement", DefaultModelRole: types.RoleCoder}
	implement.Processes = [3]*Process{
		newProcess(1, "Implement", Implement, ConsultationNone, types.RoleCoder,
			"You are the coder role for the Implement schedule, Implement process.\nTask: {{.Task}}\nWrite the code changes the plan calls for."),
		newProcess(2, "Verify", Implement, ConsultationNone, types.RoleCoder,
			"You are the coder role for the Implement schedule, Verify process.\nTask: {{.Task}}\nCheck the implementation against the plan and the task description for correctness."),
		newProcess(3, "Feedback", Implement, ConsultationMandatory, types.RoleCoder,
			"You are the coder role for the Implement schedule, Feedback process.\nTask: {{.Task}}\nSummarise the changes and open questions for mandatory human feedback. If the implementation is complete, say so explicitly."),
	}
	all = append(all, implement)
	byID[Implement] = implement

	scale := &Schedule{ID: Scale, Name: "Scale", DefaultModelRole: types.RoleCoder}
	scale.Processes = [3]*Process{
		newProcess(1, "Scale", Scale, ConsultationNone, types.RoleCoder,
			"You are the coder role for the Scale schedule, Scale process.\nTask: {{.Task}}\nIdentify scaling or load-bearing concerns introduced by the implementation."),
		newProcess(2, "Benchmark", Scale, ConsultationNone, types.RoleCoder,
			"You are the coder role for the Scale schedule, Benchmark process.\nTask: {{.Task}}\nReason about expected performance characteristics; no execution is available in this schedule."),
		newProcess(3, "Optimize", Scale, ConsultationNone, types.RoleCoder,
			"You are the coder role for the Scale schedule, Optimize process.\nTask: {{.Task}}\nPropose and apply any warranted optimisations. If none are warranted, say so explicitly."),
	}
	all = append(all, scale)
	byID[Scale] = scale

	production := &Schedule{ID: Production, Name: "Production", DefaultModelRole: types.RoleCoder}
	production.Processes = [3]*Process{
		newProcess(1, "Analyze", Production, ConsultationNone, types.RoleCoder,
			"You are the coder role for the Production schedule, Analyze process.\nTask: {{.Task}}\nAssess production-readiness: error handling, logging, configuration, tests."),
		newProcess(2, "Systemize", Production, ConsultationNone, types.RoleCoder,
			"You are the coder role for the Production schedule, Systemize process.\nTask: {{.Task}}\nEnsure the change fits the project's existing conventions and structure."),
		newProcess(3, "Harmonize", Production, ConsultationNone, types.RoleVision,
			"You are the vision role for the Production schedule, Harmonize process.\nTask: {{.Task}}\nReview the overall result holistically, including any visual or UX surface. If the run is complete, say so explicitly."),
	}
	all = append(all, production)
	byID[Production] = production
}

// All returns the five schedules in order.
func All() []*Schedule {
	return all
}

// Get returns the schedule with the given id, or nil if unknown.
func Get(id int) *Schedule {
	return byID[id]
}

// GetProcess returns the process at (scheduleID, processID), or nil if
// either is out of range.
func GetProcess(scheduleID, processID int) *Process {
	s := byID[scheduleID]
	if s == nil || processID < 1 || processID > 3 {
		return nil
	}
	return s.Processes[processID-1]
}
