// Package router implements the Intent Router (spec §2 item 2):
// classification of a user prompt into {coding, research, writing,
// vision, general} by weighted keyword scoring.
package router

import (
	"strings"

	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// weightedKeyword pairs a lowercase keyword with the score it
// contributes when found as a substring of the task text.
type weightedKeyword struct {
	keyword string
	weight  int
}

var keywordTable = map[types.Intent][]weightedKeyword{
	types.IntentCoding: {
		{"function", 3}, {"bug", 3}, {"refactor", 3}, {"implement", 3},
		{"fix", 2}, {"code", 2}, {"test", 2}, {"compile", 2}, {"api", 1},
		{"class", 1}, {"variable", 1}, {"method", 1}, {"struct", 1},
	},
	types.IntentResearch: {
		{"research", 3}, {"compare", 2}, {"investigate", 3}, {"survey", 2},
		{"evaluate", 2}, {"what is", 2}, {"explain", 1}, {"summarize", 2},
	},
	types.IntentWriting: {
		{"write a", 2}, {"draft", 3}, {"document", 2}, {"blog", 3},
		{"readme", 2}, {"essay", 3}, {"proofread", 3}, {"rewrite", 2},
	},
	types.IntentVision: {
		{"image", 3}, {"screenshot", 3}, {"diagram", 2}, {"ui", 2},
		{"photo", 3}, {"picture", 2}, {"visual", 2}, {"design mockup", 3},
	},
}

// Classify scores task against each intent's weighted keyword table and
// returns the highest-scoring intent. Ties favour IntentGeneral's
// fallback order {coding, research, writing, vision}; a task with no
// matching keyword is IntentGeneral.
func Classify(task string) types.Intent {
	lower := strings.ToLower(task)

	best := types.IntentGeneral
	bestScore := 0

	order := []types.Intent{types.IntentCoding, types.IntentResearch, types.IntentWriting, types.IntentVision}
	for _, intent := range order {
		score := 0
		for _, kw := range keywordTable[intent] {
			if strings.Contains(lower, kw.keyword) {
				score += kw.weight
			}
		}
		if score > bestScore {
			bestScore = score
			best = intent
		}
	}
	return best
}
