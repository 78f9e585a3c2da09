package flowcode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

func TestPrintParseRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		positions []types.Position
		suspended bool
		want      string
	}{
		{
			name:      "empty",
			positions: nil,
			suspended: false,
			want:      "",
		},
		{
			name: "single schedule",
			positions: []types.Position{
				{Schedule: 1, Process: 1},
				{Schedule: 1, Process: 2},
				{Schedule: 1, Process: 3},
			},
			want: "S1P123",
		},
		{
			name: "two schedules",
			positions: []types.Position{
				{Schedule: 1, Process: 1},
				{Schedule: 1, Process: 2},
				{Schedule: 2, Process: 1},
				{Schedule: 2, Process: 2},
			},
			want: "S1P12S2P12",
		},
		{
			name: "retry within process",
			positions: []types.Position{
				{Schedule: 1, Process: 1},
				{Schedule: 1, Process: 1},
				{Schedule: 1, Process: 2},
			},
			want: "S1P112",
		},
		{
			name: "re-entry of earlier schedule",
			positions: []types.Position{
				{Schedule: 1, Process: 1},
				{Schedule: 2, Process: 1},
				{Schedule: 1, Process: 1},
			},
			want: "S1P1S2P1S1P1",
		},
		{
			name: "suspended",
			positions: []types.Position{
				{Schedule: 1, Process: 1},
			},
			suspended: true,
			want:      "S1P1X",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Print(tt.positions, tt.suspended)
			require.Equal(t, tt.want, got)

			positions, suspended, err := Parse(got)
			require.NoError(t, err)
			require.Equal(t, tt.suspended, suspended)
			if len(tt.positions) == 0 {
				require.Empty(t, positions)
			} else {
				require.Equal(t, tt.positions, positions)
			}
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []string{
		"P123",    // process digits before any schedule
		"S1P1S",   // dangling 'S' with no digits
		"S1P1Z",   // unexpected character
	}
	for _, code := range tests {
		_, _, err := Parse(code)
		require.Error(t, err, "expected parse error for %q", code)
	}
}

func TestAppendAndWithSuspension(t *testing.T) {
	code := ""
	code = Append(code, types.Position{Schedule: 1, Process: 1})
	require.Equal(t, "S1P1", code)
	code = Append(code, types.Position{Schedule: 1, Process: 2})
	require.Equal(t, "S1P12", code)

	suspendedCode := WithSuspension(code, true)
	require.Equal(t, "S1P12X", suspendedCode)
	require.Equal(t, "S1P12", WithSuspension(suspendedCode, false))
}

func TestLastPosition(t *testing.T) {
	p, err := LastPosition("S1P12S2P1")
	require.NoError(t, err)
	require.Equal(t, types.Position{Schedule: 2, Process: 1}, p)

	zero, err := LastPosition("")
	require.NoError(t, err)
	require.True(t, zero.IsZero())
}
