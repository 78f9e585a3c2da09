package suspension

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cadenroberts/OllamaBot-sub010/internal/errconf"
)

func TestCannedAnalysisUsedForKnownCodes(t *testing.T) {
	h := New(nil)
	box := h.Suspend(nil, "sess-1", errconf.EOllamaUnavailable, "backend down", errconf.FrozenState{Schedule: 1, Process: 2, FlowCode: "S1P12X"}, "S1P12X")
	require.True(t, box.Analysis.Canned)
	require.NotEmpty(t, box.Analysis.RootCause)
}

func TestParseStrategy(t *testing.T) {
	for _, ok := range []string{"retry", "Skip", "ABORT", "investigate"} {
		_, err := ParseStrategy(ok)
		require.NoErrorf(t, err, "expected %q to parse", ok)
	}
	_, err := ParseStrategy("ignore")
	require.Error(t, err)
}

func TestResumeAdvancement(t *testing.T) {
	require.True(t, Resume(Retry))
	require.True(t, Resume(Skip))
	require.True(t, Resume(Investigate))
	require.False(t, Resume(Abort))
}

func TestParseAnalysisTolerantOfBullets(t *testing.T) {
	content := "WHAT_HAPPENED: the model call failed\nROOT_CAUSE: timeout\nFACTORS:\n- slow disk\n* high load\nPROPOSED_SOLUTIONS:\n• retry with backoff\n"
	a := parseAnalysis(content)
	require.Equal(t, "the model call failed", a.WhatHappened)
	require.Len(t, a.Factors, 2)
	require.Len(t, a.ProposedSolutions, 1)
}
