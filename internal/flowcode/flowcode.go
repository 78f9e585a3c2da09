// Package flowcode implements the compact textual transcript of visited
// positions (spec §3). It is kept as a pure function pair — Print and
// Parse — with round-trip property testing, per spec §9 ("Flow code
// parser/printer... the source of truth for history").
package flowcode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// Print renders a sequence of positions as a flow code, e.g.
// "S1P123S2P12". Consecutive positions within the same schedule are
// grouped under one "S<n>" prefix; a new "S<n>" is emitted whenever the
// schedule changes (including re-entry of a previously-visited schedule).
// If suspended is true, a trailing "X" is appended.
func Print(positions []types.Position, suspended bool) string {
	var b strings.Builder
	currentSchedule := 0
	for _, p := range positions {
		if p.Schedule != currentSchedule {
			fmt.Fprintf(&b, "S%dP", p.Schedule)
			currentSchedule = p.Schedule
		}
		b.WriteString(strconv.Itoa(p.Process))
	}
	code := b.String()
	if suspended {
		code += "X"
	}
	return code
}

// Parse recovers the exact sequence of positions (and whether the code
// ends suspended) from a flow code string. It is the left inverse of
// Print: Parse(Print(positions, suspended)) == (positions, suspended).
func Parse(code string) (positions []types.Position, suspended bool, err error) {
	suspended = strings.HasSuffix(code, "X")
	code = strings.TrimSuffix(code, "X")

	i := 0
	currentSchedule := 0
	for i < len(code) {
		switch code[i] {
		case 'S':
			i++
			start := i
			for i < len(code) && code[i] >= '0' && code[i] <= '9' {
				i++
			}
			if start == i {
				return nil, false, fmt.Errorf("flowcode: expected digits after 'S' at offset %d", start)
			}
			n, convErr := strconv.Atoi(code[start:i])
			if convErr != nil {
				return nil, false, fmt.Errorf("flowcode: invalid schedule number: %w", convErr)
			}
			currentSchedule = n
		case 'P':
			i++
			if currentSchedule == 0 {
				return nil, false, fmt.Errorf("flowcode: 'P' encountered before any 'S' at offset %d", i)
			}
			for i < len(code) && code[i] >= '1' && code[i] <= '3' {
				proc := int(code[i] - '0')
				positions = append(positions, types.Position{Schedule: currentSchedule, Process: proc})
				i++
			}
		default:
			return nil, false, fmt.Errorf("flowcode: unexpected character %q at offset %d", code[i], i)
		}
	}
	return positions, suspended, nil
}

// LastPosition returns the final position in the code, or the
// not-yet-started sentinel if the code is empty.
func LastPosition(code string) (types.Position, error) {
	positions, _, err := Parse(code)
	if err != nil {
		return types.Position{}, err
	}
	if len(positions) == 0 {
		return types.Position{}, nil
	}
	return positions[len(positions)-1], nil
}

// SchedulesTerminated returns the set of schedule ids in
// terminatedInOrder: the schedules the caller has found to have a step
// recorded at P3 with outcome ok, derived from the session's step
// records, since flow code alone cannot say whether a P3 visit
// succeeded. The result is a set; the input order is not kept.
func SchedulesTerminated(terminatedInOrder []int) map[int]bool {
	set := make(map[int]bool, len(terminatedInOrder))
	for _, s := range terminatedInOrder {
		set[s] = true
	}
	return set
}

// Append returns the flow code produced by appending a single newly
// visited position to an existing code, preserving the monoid-over-
// history property (every accepted transition appends exactly one
// character's worth of process digit, plus a new "S<n>P" prefix when the
// schedule changes).
func Append(code string, p types.Position) string {
	positions, suspended, err := Parse(code)
	if err != nil {
		// Callers only append to codes they themselves produced via
		// Print/Append, so a parse failure here indicates a caller bug;
		// fall back to treating the existing code as an opaque prefix.
		return code + Print([]types.Position{p}, false)
	}
	positions = append(positions, p)
	return Print(positions, suspended)
}

// WithSuspension appends or removes the trailing "X" suspension marker.
func WithSuspension(code string, suspended bool) string {
	trimmed := strings.TrimSuffix(code, "X")
	if suspended {
		return trimmed + "X"
	}
	return trimmed
}
