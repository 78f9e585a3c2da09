// Package judge implements the Judge Coordinator (spec §4.5):
// N expert-role LM analyses run concurrently, are aggregated into a
// Consensus, and an orchestrator-role LM call synthesises a final TLDR.
// Concurrency here is grounded on the teacher's bounded per-request
// fan-out pattern in internal/executor/subagent.go (one goroutine per
// subtask, results joined on a WaitGroup); the structured-text parsing
// is new, required by spec §4.5's fixed expert/TLDR formats, and is
// written tolerant of bullet variants the way internal/config.go's
// stripJSONComments tolerates comment-syntax variants.
package judge

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/cadenroberts/OllamaBot-sub010/internal/coordinator"
	"github.com/cadenroberts/OllamaBot-sub010/internal/errconf"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// Coordinator runs the expert panel and synthesises a TLDR.
type Coordinator struct {
	models  *coordinator.Coordinator
	experts []types.Role
}

// New builds a Coordinator. experts defaults to {coder, researcher,
// vision} per spec §4.5 when nil.
func New(models *coordinator.Coordinator, experts []types.Role) *Coordinator {
	if experts == nil {
		experts = []types.Role{types.RoleCoder, types.RoleResearcher, types.RoleVision}
	}
	return &Coordinator{models: models, experts: experts}
}

// Analyze runs the full Judge algorithm for one session.
func (c *Coordinator) Analyze(ctx context.Context, sessionID string, in types.AnalysisInput) (*types.Analysis, error) {
	if len(c.experts) == 0 {
		// spec §8: judge called with zero experts configured returns an
		// Analysis with failures=[all] and skips the synthesis call
		// entirely, rather than failing the call outright.
		return &types.Analysis{Failures: []string{errconf.ErrJudgeNoExperts.Error()}}, nil
	}

	type result struct {
		role   types.Role
		report types.ExpertReport
		err    error
	}

	results := make(chan result, len(c.experts))
	var wg sync.WaitGroup
	for _, role := range c.experts {
		wg.Add(1)
		go func(role types.Role) {
			defer wg.Done()
			report, err := c.runExpert(ctx, role, in)
			results <- result{role: role, report: report, err: err}
		}(role)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var reports []types.ExpertReport
	var failures []string
	for r := range results {
		if r.err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", r.role, r.err))
			continue
		}
		reports = append(reports, r.report)
	}

	consensus := buildConsensus(reports)

	tldr, err := c.synthesize(ctx, sessionID, in, consensus, failures)
	if err != nil {
		failures = append(failures, fmt.Sprintf("synthesis: %v", err))
	}

	return &types.Analysis{Consensus: consensus, Failures: failures, TLDR: tldr}, nil
}

func (c *Coordinator) runExpert(ctx context.Context, role types.Role, in types.AnalysisInput) (types.ExpertReport, error) {
	client, err := c.models.ClientFor(role)
	if err != nil {
		return types.ExpertReport{}, err
	}

	prompt := expertPrompt(role, in)
	content, promptTokens, completionTokens, err := client.Complete(ctx, expertSystemPrompt(role), prompt, nil)
	if err != nil {
		return types.ExpertReport{}, err
	}
	c.models.RecordTokens(role, promptTokens+completionTokens)

	report, err := parseExpertReport(content)
	if err != nil {
		return types.ExpertReport{}, err
	}
	report.Role = role
	return report, nil
}

// renderFileDiff renders a line-level unified diff of before/after file
// content for the expert prompt, using sergi/go-diff's line-mode diff
// (hash each line to a rune, diff the rune strings, expand back) rather
// than a raw character diff, since file_changes entries read more like a
// patch than a word-level edit.
func renderFileDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var b2 strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			fmt.Fprintf(&b2, "%s%s\n", prefix, line)
		}
	}
	return b2.String()
}

func expertSystemPrompt(role types.Role) string {
	return fmt.Sprintf("You are the %s expert on a post-hoc review panel. Respond only in the required structured format.", role)
}

func expertPrompt(role types.Role, in types.AnalysisInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original prompt: %s\n", in.OriginalPrompt)
	fmt.Fprintf(&b, "Flow code: %s\n", in.FlowCode)
	fmt.Fprintf(&b, "Actions taken:\n")
	for _, a := range in.Actions {
		fmt.Fprintf(&b, "- %s\n", a)
	}
	fmt.Fprintf(&b, "Errors encountered:\n")
	for _, e := range in.Errors {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	for path, lines := range in.FileChanges {
		if len(lines) == 2 {
			fmt.Fprintf(&b, "Changed %s:\n%s", path, renderFileDiff(lines[0], lines[1]))
		} else {
			fmt.Fprintf(&b, "Changed %s: %s\n", path, strings.Join(lines, "; "))
		}
	}
	if in.TestResults != "" {
		fmt.Fprintf(&b, "Test results: %s\n", in.TestResults)
	}
	if in.LintResults != "" {
		fmt.Fprintf(&b, "Lint results: %s\n", in.LintResults)
	}
	b.WriteString("Respond with:\nPROMPT_ADHERENCE: <0-100>\nPROJECT_QUALITY: <0-100>\nACTIONS: <n>\nERRORS: <n>\nOBSERVATIONS:\n- ...\nRECOMMENDATIONS:\n- ...\n")
	return b.String()
}

// parseExpertReport tolerantly parses the expert response format from
// spec §4.5.
func parseExpertReport(content string) (types.ExpertReport, error) {
	var report types.ExpertReport
	section := ""

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case hasKey(line, "PROMPT_ADHERENCE"):
			report.PromptAdherence = parseIntField(line)
			section = ""
		case hasKey(line, "PROJECT_QUALITY"):
			report.ProjectQuality = parseIntField(line)
			section = ""
		case hasKey(line, "ACTIONS"):
			report.Actions = parseIntField(line)
			section = ""
		case hasKey(line, "ERRORS"):
			report.Errors = parseIntField(line)
			section = ""
		case hasKey(line, "OBSERVATIONS"):
			section = "observations"
		case hasKey(line, "RECOMMENDATIONS"):
			section = "recommendations"
		default:
			if item, ok := stripBullet(line); ok {
				switch section {
				case "observations":
					report.Observations = append(report.Observations, item)
				case "recommendations":
					report.Recommendations = append(report.Recommendations, item)
				}
			}
		}
	}

	if report.PromptAdherence == 0 && report.ProjectQuality == 0 && len(report.Observations) == 0 {
		return types.ExpertReport{}, fmt.Errorf("judge: could not parse any recognised fields from expert response")
	}
	return report, nil
}

func hasKey(line, key string) bool {
	return strings.HasPrefix(strings.ToUpper(line), key+":")
}

func parseIntField(line string) int {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	n, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
	return n
}

// stripBullet strips a leading "-", "*", or "•" bullet (and numbered
// "1." prefixes), returning the remaining text and whether a bullet was
// found.
func stripBullet(line string) (string, bool) {
	trimmed := line
	switch {
	case strings.HasPrefix(trimmed, "-"), strings.HasPrefix(trimmed, "*"):
		return strings.TrimSpace(trimmed[1:]), true
	case strings.HasPrefix(trimmed, "•"):
		return strings.TrimSpace(trimmed[len("•"):]), true
	}
	// numbered list item, e.g. "1. ..." or "12) ..."
	for i, r := range trimmed {
		if r >= '0' && r <= '9' {
			continue
		}
		if (r == '.' || r == ')') && i > 0 {
			return strings.TrimSpace(trimmed[i+1:]), true
		}
		break
	}
	return "", false
}

func buildConsensus(reports []types.ExpertReport) types.Consensus {
	if len(reports) == 0 {
		return types.Consensus{}
	}
	var sumAdherence, sumQuality float64
	for _, r := range reports {
		sumAdherence += float64(r.PromptAdherence)
		sumQuality += float64(r.ProjectQuality)
	}
	n := float64(len(reports))
	return types.Consensus{
		Reports:            reports,
		AvgPromptAdherence: sumAdherence / n,
		AvgProjectQuality:  sumQuality / n,
	}
}

func (c *Coordinator) synthesize(ctx context.Context, sessionID string, in types.AnalysisInput, consensus types.Consensus, failures []string) (*types.TLDR, error) {
	client, err := c.models.ClientFor(types.RoleOrchestrator)
	if err != nil {
		return nil, err
	}

	prompt := synthesisPrompt(in, consensus, failures)
	content, promptTokens, completionTokens, err := client.Complete(ctx, synthesisSystemPrompt, prompt, nil)
	if err != nil {
		return nil, err
	}
	c.models.RecordTokens(types.RoleOrchestrator, promptTokens+completionTokens)

	tldr := parseTLDR(content)
	if tldr.Quality == "" {
		tldr.Quality = autoAssess(consensus)
	}
	return tldr, nil
}

const synthesisSystemPrompt = "You are the orchestrator role synthesising a final verdict from an expert panel. Respond only in the required structured format."

func synthesisPrompt(in types.AnalysisInput, consensus types.Consensus, failures []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original prompt: %s\n", in.OriginalPrompt)
	fmt.Fprintf(&b, "Flow code: %s\n", in.FlowCode)
	fmt.Fprintf(&b, "Expert consensus: avg prompt adherence %.1f, avg project quality %.1f across %d expert(s)\n",
		consensus.AvgPromptAdherence, consensus.AvgProjectQuality, len(consensus.Reports))
	if len(failures) > 0 {
		fmt.Fprintf(&b, "Expert failures: %s\n", strings.Join(failures, "; "))
	}
	b.WriteString("Respond with:\nPROMPT GOAL:\nIMPLEMENTATION:\nEXPERT CONSENSUS:\nDISCOVERIES:\n- ...\nISSUES:\nQUALITY ASSESSMENT: {EXCEPTIONAL|ACCEPTABLE|NEEDS_IMPROVEMENT}\nJUSTIFICATION:\nRECOMMENDATIONS:\n1. ...\n")
	return b.String()
}

func parseTLDR(content string) *types.TLDR {
	tldr := &types.TLDR{}
	section := ""

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case hasKey(line, "PROMPT GOAL"):
			tldr.PromptGoal = fieldValue(line)
			section = ""
		case hasKey(line, "IMPLEMENTATION"):
			tldr.Implementation = fieldValue(line)
			section = ""
		case hasKey(line, "EXPERT CONSENSUS"):
			tldr.ExpertConsensus = fieldValue(line)
			section = ""
		case hasKey(line, "DISCOVERIES"):
			section = "discoveries"
		case hasKey(line, "ISSUES"):
			tldr.Issues = fieldValue(line)
			section = ""
		case hasKey(line, "QUALITY ASSESSMENT"):
			tldr.Quality = types.Quality(strings.TrimSpace(fieldValue(line)))
			section = ""
		case hasKey(line, "JUSTIFICATION"):
			tldr.Justification = fieldValue(line)
			section = ""
		case hasKey(line, "RECOMMENDATIONS"):
			section = "recommendations"
		default:
			if item, ok := stripBullet(line); ok {
				switch section {
				case "discoveries":
					tldr.Discoveries = append(tldr.Discoveries, item)
				case "recommendations":
					tldr.Recommendations = append(tldr.Recommendations, item)
				}
			}
		}
	}
	return tldr
}

func fieldValue(line string) string {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// autoAssess applies spec §4.5's thresholds when the synthesiser omits
// a QUALITY ASSESSMENT line.
func autoAssess(consensus types.Consensus) types.Quality {
	avg := (consensus.AvgPromptAdherence + consensus.AvgProjectQuality) / 2
	switch {
	case avg >= 90:
		return types.QualityExceptional
	case avg >= 70:
		return types.QualityAcceptable
	default:
		return types.QualityNeedsImprovement
	}
}
