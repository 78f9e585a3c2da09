package main

import (
	"fmt"
	"sync"

	"github.com/cadenroberts/OllamaBot-sub010/internal/orchestrator"
)

// runRegistry tracks the RunHandles of runs started through this server
// process. A Session Store persists a run's committed state across
// process restarts, but a live RunHandle — its event channel, its
// in-flight suspension box — only exists in memory, so the server keeps
// its own registry the way the teacher's Server keeps a sessionService
// in memory alongside the on-disk store.
type runRegistry struct {
	mu   sync.RWMutex
	byID map[string]*orchestrator.RunHandle
}

func newRunRegistry() *runRegistry {
	return &runRegistry{byID: make(map[string]*orchestrator.RunHandle)}
}

func (r *runRegistry) put(id string, h *orchestrator.RunHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = h
}

func (r *runRegistry) get(id string) (*orchestrator.RunHandle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("run %s is not active in this server process", id)
	}
	return h, nil
}

func (r *runRegistry) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}
