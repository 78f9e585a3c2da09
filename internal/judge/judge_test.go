package judge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

func TestParseExpertReport(t *testing.T) {
	content := `PROMPT_ADHERENCE: 85
PROJECT_QUALITY: 92
ACTIONS: 4
ERRORS: 1
OBSERVATIONS:
- Handled the edge case cleanly
* Tests cover the happy path
RECOMMENDATIONS:
- Add a benchmark
`
	report, err := parseExpertReport(content)
	require.NoError(t, err)
	require.Equal(t, 85, report.PromptAdherence)
	require.Equal(t, 92, report.ProjectQuality)
	require.Equal(t, 4, report.Actions)
	require.Equal(t, 1, report.Errors)
	require.Len(t, report.Observations, 2)
	require.Len(t, report.Recommendations, 1)
}

func TestParseExpertReportRejectsUnrecognised(t *testing.T) {
	_, err := parseExpertReport("I have no idea what format you want.")
	require.Error(t, err)
}

func TestParseTLDR(t *testing.T) {
	content := `PROMPT GOAL: ship the feature
IMPLEMENTATION: done via the new package
EXPERT CONSENSUS: strong agreement
DISCOVERIES:
• found a latent race
ISSUES: none blocking
QUALITY ASSESSMENT: EXCEPTIONAL
JUSTIFICATION: all experts scored above 90
RECOMMENDATIONS:
1. Add more integration tests
2. Document the new config keys
`
	tldr := parseTLDR(content)
	require.Equal(t, "ship the feature", tldr.PromptGoal)
	require.Equal(t, types.QualityExceptional, tldr.Quality)
	require.Len(t, tldr.Discoveries, 1)
	require.Len(t, tldr.Recommendations, 2)
}

func TestAutoAssessThresholds(t *testing.T) {
	require.Equal(t, types.QualityExceptional, autoAssess(types.Consensus{AvgPromptAdherence: 95, AvgProjectQuality: 95}))
	require.Equal(t, types.QualityAcceptable, autoAssess(types.Consensus{AvgPromptAdherence: 80, AvgProjectQuality: 75}))
	require.Equal(t, types.QualityNeedsImprovement, autoAssess(types.Consensus{AvgPromptAdherence: 50, AvgProjectQuality: 40}))
}

func TestAnalyzeNoExperts(t *testing.T) {
	c := New(nil, []types.Role{})
	analysis, err := c.Analyze(nil, "sess-1", types.AnalysisInput{}) //nolint:staticcheck // nil ctx fine, client never called
	require.NoError(t, err)
	require.NotNil(t, analysis)
	require.Len(t, analysis.Failures, 1)
	require.Nil(t, analysis.TLDR)
}
