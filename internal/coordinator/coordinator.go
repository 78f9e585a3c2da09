// Package coordinator implements the Model Coordinator (spec §4.3): a
// role -> client map, RAM-tier-aware model selection, and a fallback
// chain. It uses the teacher's provider.Registry shape (mutex-protected
// map) but keyed by role instead of provider id, since spec.md fixes the
// backend to a single local Ollama daemon serving multiple models
// (grounded on internal/provider/registry.go).
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cadenroberts/OllamaBot-sub010/internal/errconf"
	"github.com/cadenroberts/OllamaBot-sub010/internal/ollama"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// Tier is a RAM-based capability band.
type Tier string

const (
	TierMinimal     Tier = "minimal"
	TierCompact     Tier = "compact"
	TierBalanced    Tier = "balanced"
	TierPerformance Tier = "performance"
	TierAdvanced    Tier = "advanced"
)

// LMClient is the interface the Orchestrator, Consultation Handler, and
// Judge Coordinator talk to. ollama.Client (wrapped per-model below) is
// the only production implementation; tests use a fake.
type LMClient interface {
	// Complete runs a single system+user prompt to completion, invoking
	// onToken (if non-nil) as content streams in. It returns the full
	// response text and token counts.
	Complete(ctx context.Context, systemPrompt, userPrompt string, onToken func(string)) (content string, promptTokens, completionTokens int, err error)
	// ModelName reports the backend model name this client is bound to.
	ModelName() string
}

// ollamaClient adapts ollama.Client, bound to one model name, to LMClient.
type ollamaClient struct {
	backend *ollama.Client
	model   string
}

func NewOllamaClient(backend *ollama.Client, model string) LMClient {
	return &ollamaClient{backend: backend, model: model}
}

func (c *ollamaClient) ModelName() string { return c.model }

func (c *ollamaClient) Complete(ctx context.Context, systemPrompt, userPrompt string, onToken func(string)) (string, int, int, error) {
	messages := []ollama.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	var content string
	last, err := c.backend.Chat(ctx, c.model, messages, func(chunk ollama.Chunk) error {
		if chunk.Message.Content != "" {
			content += chunk.Message.Content
			if onToken != nil {
				onToken(chunk.Message.Content)
			}
		}
		return nil
	})
	if err != nil {
		return "", 0, 0, fmt.Errorf("coordinator: completion from model %q: %w", c.model, err)
	}
	return content, last.PromptEvalCount, last.EvalCount, nil
}

// RoleConfig is one role's default model and per-tier overrides.
type RoleConfig struct {
	Default     string
	TierMapping map[Tier]string
}

// Config is the coordinator's view of models.* from the typed config
// tree.
type Config struct {
	Tier   Tier
	Roles  map[types.Role]RoleConfig
}

// fallbackChain is walked on client failure (spec §4.3).
var fallbackChain = []types.Role{types.RoleVision, types.RoleCoder, types.RoleResearcher, types.RoleCoder, types.RoleOrchestrator}

// Coordinator owns per-role client handles for a run's lifetime.
type Coordinator struct {
	backend *ollama.Client

	mu      sync.RWMutex
	clients map[types.Role]LMClient
	config  Config

	tokenCounters map[types.Role]*atomic.Int64
	tokenMu       sync.Mutex
}

// New builds a Coordinator. cfg.Tier selects each role's tier_mapping
// override, falling back to Default when no override exists for the
// tier.
func New(backend *ollama.Client, cfg Config) *Coordinator {
	c := &Coordinator{
		backend:       backend,
		clients:       make(map[types.Role]LMClient),
		config:        cfg,
		tokenCounters: make(map[types.Role]*atomic.Int64),
	}
	for role, roleCfg := range cfg.Roles {
		model := roleCfg.Default
		if override, ok := roleCfg.TierMapping[cfg.Tier]; ok && override != "" {
			model = override
		}
		c.clients[role] = NewOllamaClient(backend, model)
		c.tokenCounters[role] = &atomic.Int64{}
	}
	return c
}

// NewWithClients builds a Coordinator directly from pre-built clients,
// bypassing the config-driven wiring New uses. Exported so tests in
// other packages (orchestrator, suspension, judge) can exercise a full
// run against a fake LMClient without standing up an ollama.Client.
func NewWithClients(clients map[types.Role]LMClient, tier Tier) *Coordinator {
	c := &Coordinator{
		clients:       clients,
		config:        Config{Tier: tier},
		tokenCounters: make(map[types.Role]*atomic.Int64),
	}
	for role := range clients {
		c.tokenCounters[role] = &atomic.Int64{}
	}
	return c
}

// Reload swaps in a freshly built role->client map and tier, for a
// long-running process (cmd/ollamabot-server) that watches config.yaml
// for edits rather than requiring a restart to pick up a changed model
// mapping. Existing token counters are preserved across reload.
func (c *Coordinator) Reload(cfg Config) {
	clients := make(map[types.Role]LMClient, len(cfg.Roles))
	for role, roleCfg := range cfg.Roles {
		model := roleCfg.Default
		if override, ok := roleCfg.TierMapping[cfg.Tier]; ok && override != "" {
			model = override
		}
		clients[role] = NewOllamaClient(c.backend, model)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = cfg
	c.clients = clients
	for role := range clients {
		if _, ok := c.tokenCounters[role]; !ok {
			c.tokenCounters[role] = &atomic.Int64{}
		}
	}
}

// ClientFor returns the client bound to role.
func (c *Coordinator) ClientFor(role types.Role) (LMClient, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	client, ok := c.clients[role]
	if !ok {
		return nil, fmt.Errorf("coordinator: no client configured for role %q", role)
	}
	return client, nil
}

// Select implements spec §4.3's rule table: Knowledge -> researcher;
// Production.P3 -> vision; otherwise role derived from intent,
// defaulting to coder. In reduced-memory tiers the coder role falls
// back to orchestrator and vision falls back to coder.
func (c *Coordinator) Select(scheduleID, processID int, intent types.Intent) types.Role {
	var role types.Role
	switch {
	case scheduleID == 1: // Knowledge
		role = types.RoleResearcher
	case scheduleID == 5 && processID == 3: // Production.P3
		role = types.RoleVision
	default:
		role = intentRole(intent)
	}

	c.mu.RLock()
	tier := c.config.Tier
	c.mu.RUnlock()

	if tier == TierMinimal || tier == TierCompact {
		if role == types.RoleVision {
			role = types.RoleCoder
		} else if role == types.RoleCoder {
			role = types.RoleOrchestrator
		}
	}
	return role
}

func intentRole(intent types.Intent) types.Role {
	switch intent {
	case types.IntentResearch:
		return types.RoleResearcher
	case types.IntentVision:
		return types.RoleVision
	default:
		return types.RoleCoder
	}
}

// RecordTokens adds n to role's running token counter using an atomic
// increment (spec §5 "Token counters use atomic increments").
func (c *Coordinator) RecordTokens(role types.Role, n int) {
	c.mu.RLock()
	counter, ok := c.tokenCounters[role]
	c.mu.RUnlock()
	if !ok {
		return
	}
	counter.Add(int64(n))
}

// TokensFor returns role's cumulative recorded token count.
func (c *Coordinator) TokensFor(role types.Role) int64 {
	c.mu.RLock()
	counter, ok := c.tokenCounters[role]
	c.mu.RUnlock()
	if !ok {
		return 0
	}
	return counter.Load()
}

// Validate probes the backend for the existence of every configured
// model, failing fast with an E011 (model not found) OperationalError
// naming the model and role, or an E010 (Ollama unavailable) one when
// the probe itself fails. A Coordinator built via
// NewWithClients (tests, which inject fakes with no real backend) has
// no backend to probe and always validates successfully.
func (c *Coordinator) Validate(ctx context.Context) error {
	if c.backend == nil {
		return nil
	}

	c.mu.RLock()
	clients := make(map[types.Role]LMClient, len(c.clients))
	for role, client := range c.clients {
		clients[role] = client
	}
	c.mu.RUnlock()

	for role, client := range clients {
		ok, err := c.backend.Probe(ctx, client.ModelName())
		if err != nil {
			return errconf.NewOperational(errconf.EOllamaUnavailable, "probing ollama backend failed", "start the ollama daemon", true, err)
		}
		if !ok {
			return errconf.NewOperational(errconf.EModelNotFound, fmt.Sprintf("model %q configured for role %q not found", client.ModelName(), role), "pull the model or adjust config.yaml", false, nil)
		}
	}
	return nil
}

// WithFallback calls fn(client) for role, and on failure walks the fixed
// fallback chain vision->coder->researcher->coder->orchestrator starting
// just after role, returning the first successful result. If the
// orchestrator role itself fails, the caller must suspend the run.
func (c *Coordinator) WithFallback(ctx context.Context, role types.Role, fn func(LMClient) error) error {
	client, err := c.ClientFor(role)
	if err == nil {
		if callErr := fn(client); callErr == nil {
			return nil
		}
	}

	start := 0
	for i, r := range fallbackChain {
		if r == role {
			start = i + 1
			break
		}
	}
	for _, r := range fallbackChain[start:] {
		client, err := c.ClientFor(r)
		if err != nil {
			continue
		}
		if callErr := fn(client); callErr == nil {
			return nil
		}
	}
	return fmt.Errorf("coordinator: all clients in fallback chain failed starting from role %q", role)
}

// DetectTier maps system memory in GB to a Tier per spec §4.3's
// thresholds {minimal:<16, compact:16-23, balanced:24-31,
// performance:32-63, advanced:>=64}.
func DetectTier(totalMemGB float64) Tier {
	switch {
	case totalMemGB < 16:
		return TierMinimal
	case totalMemGB < 24:
		return TierCompact
	case totalMemGB < 32:
		return TierBalanced
	case totalMemGB < 64:
		return TierPerformance
	default:
		return TierAdvanced
	}
}
