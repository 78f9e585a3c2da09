package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"

	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// doomLoopThreshold is the number of identical retries before a step is
// treated as stuck (spec §4.1 failure semantics, E009).
const doomLoopThreshold = 3

// doomLoopDetector tracks repeated (position, prompt) pairs per session
// to catch a step retrying itself without making progress. It is
// grounded on internal/permission/doom_loop.go's DoomLoopDetector,
// hashing (position, prompt) here instead of (toolName, input) since the
// orchestrator's retry unit is a step, not a tool call.
type doomLoopDetector struct {
	mu      sync.Mutex
	history map[string][]string
}

func newDoomLoopDetector() *doomLoopDetector {
	return &doomLoopDetector{history: make(map[string][]string)}
}

func (d *doomLoopDetector) hash(pos types.Position, prompt string) string {
	h := sha256.Sum256([]byte(fmtPosition(pos) + "\x00" + prompt))
	return hex.EncodeToString(h[:])
}

func fmtPosition(p types.Position) string {
	return "S" + strconv.Itoa(p.Schedule) + "P" + strconv.Itoa(p.Process)
}

// Check reports whether this (pos, prompt) call is the doomLoopThreshold-th
// consecutive repeat for sessionID, and records the call regardless.
func (d *doomLoopDetector) Check(sessionID string, pos types.Position, prompt string) bool {
	hash := d.hash(pos, prompt)

	d.mu.Lock()
	defer d.mu.Unlock()

	history := d.history[sessionID]
	isLoop := false
	if len(history) >= doomLoopThreshold-1 {
		allSame := true
		start := len(history) - (doomLoopThreshold - 1)
		for i := start; i < len(history); i++ {
			if history[i] != hash {
				allSame = false
				break
			}
		}
		isLoop = allSame
	}

	history = append(history, hash)
	if len(history) > 10 {
		history = history[len(history)-10:]
	}
	d.history[sessionID] = history
	return isLoop
}

// Reset clears retry history for a session, e.g. after it advances past
// the position that was being retried.
func (d *doomLoopDetector) Reset(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.history, sessionID)
}
