// Package toolregistry implements the Tool Registry (spec §4.8): a
// static, catalogue-only validation surface for tool calls emitted by
// the LM during step execution. It is generalized from the teacher's
// deleted internal/tool/registry.go (Register/Get/List/IDs over a
// mutex-protected map), trimmed to catalogue entries with no executable
// body, since tool *execution* is a named Non-goal — only legacy-alias
// resolution and availability validation survive.
package toolregistry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Tier distinguishes always-available tools (1) from optional/extended
// ones (2).
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
)

// Entry is one catalogued tool.
type Entry struct {
	ID        string
	Category  string
	Tier      Tier
	CLIAlias  string
	IDEAlias  string
	Available bool
}

// Registry is the static catalogue plus legacy alias index.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	aliases map[string]string // alias (cli or ide) -> canonical id
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
		aliases: make(map[string]string),
	}
}

// Register adds or replaces a catalogue entry and indexes its aliases.
func (r *Registry) Register(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.ID] = e
	if e.CLIAlias != "" {
		r.aliases[e.CLIAlias] = e.ID
	}
	if e.IDEAlias != "" {
		r.aliases[e.IDEAlias] = e.ID
	}
}

// Get returns the canonical entry for id, or ok=false if unknown.
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Resolve maps a tool call's id — which may be a canonical id or a
// legacy CLI/IDE alias — to its canonical Entry. It fails validation if
// the id is unknown or the resolved entry is unavailable.
func (r *Registry) Resolve(idOrAlias string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id := idOrAlias
	if canonical, ok := r.aliases[idOrAlias]; ok {
		id = canonical
	}
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("toolregistry: unknown tool id or alias %q", idOrAlias)
	}
	if !e.Available {
		return Entry{}, fmt.Errorf("toolregistry: tool %q is not available in this configuration", e.ID)
	}
	return e, nil
}

// List returns every catalogued entry, sorted by ID for deterministic
// output.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns every canonical id, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ValidateGlobPattern reports whether pattern is a syntactically valid
// doublestar glob, the same matcher the teacher's repository indexer
// used for file-pattern tool arguments (glob_files / "glob" / "fs.glob"),
// before that indexer itself was dropped as a named Non-goal. The Tool
// Registry is a catalogue-only validation surface, so this stops short of
// matching against a filesystem — it only rejects malformed patterns a
// tool call should never have been allowed to carry.
func ValidateGlobPattern(pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("toolregistry: %q is not a valid glob pattern", pattern)
	}
	return nil
}

// Default returns the catalogue described in the reference
// configuration: the tier-1 and tier-2 operations a coding-oriented
// front-end (CLI or IDE) commonly exposes, carried here as metadata
// only — the orchestrator validates against this catalogue but never
// executes a tool body itself.
func Default() *Registry {
	r := New()
	for _, e := range []Entry{
		{ID: "read_file", Category: "filesystem", Tier: Tier1, CLIAlias: "read", IDEAlias: "fs.read", Available: true},
		{ID: "write_file", Category: "filesystem", Tier: Tier1, CLIAlias: "write", IDEAlias: "fs.write", Available: true},
		{ID: "edit_file", Category: "filesystem", Tier: Tier1, CLIAlias: "edit", IDEAlias: "fs.edit", Available: true},
		{ID: "list_directory", Category: "filesystem", Tier: Tier1, CLIAlias: "ls", IDEAlias: "fs.list", Available: true},
		{ID: "search_text", Category: "filesystem", Tier: Tier1, CLIAlias: "grep", IDEAlias: "fs.grep", Available: true},
		{ID: "glob_files", Category: "filesystem", Tier: Tier1, CLIAlias: "glob", IDEAlias: "fs.glob", Available: true},
		{ID: "run_shell", Category: "execution", Tier: Tier1, CLIAlias: "bash", IDEAlias: "exec.shell", Available: true},
		{ID: "web_fetch", Category: "network", Tier: Tier2, CLIAlias: "webfetch", IDEAlias: "net.fetch", Available: true},
		{ID: "track_task", Category: "planning", Tier: Tier2, CLIAlias: "todo", IDEAlias: "plan.todo", Available: true},
	} {
		r.Register(e)
	}
	return r
}
