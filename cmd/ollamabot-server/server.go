package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cadenroberts/OllamaBot-sub010/internal/config"
	"github.com/cadenroberts/OllamaBot-sub010/internal/consultation"
	"github.com/cadenroberts/OllamaBot-sub010/internal/coordinator"
	"github.com/cadenroberts/OllamaBot-sub010/internal/judge"
	"github.com/cadenroberts/OllamaBot-sub010/internal/ollama"
	"github.com/cadenroberts/OllamaBot-sub010/internal/orchestrator"
	"github.com/cadenroberts/OllamaBot-sub010/internal/session"
	"github.com/cadenroberts/OllamaBot-sub010/internal/suspension"
	"github.com/cadenroberts/OllamaBot-sub010/internal/telemetry"
	"github.com/cadenroberts/OllamaBot-sub010/internal/toolregistry"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// Config holds server configuration, grounded on the teacher's
// internal/server.Config.
type Config struct {
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func defaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // no write timeout, the event stream is long-lived SSE
	}
}

// Server is the thin HTTP surface SPEC_FULL.md §2 calls for: it exposes
// the Orchestrator's Start/Step/Resume/Events operations to an external
// front-end over HTTP+SSE rather than embedding any orchestration logic
// of its own.
type Server struct {
	cfg     *Config
	router  *chi.Mux
	httpSrv *http.Server

	orch  *orchestrator.Orchestrator
	store *session.Store
	runs  *runRegistry
}

func newServer(cfg *Config, orch *orchestrator.Orchestrator, store *session.Store) *Server {
	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		orch:   orch,
		store:  store,
		runs:   newRunRegistry(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)
	if s.cfg.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

func (s *Server) Router() *chi.Mux { return s.router }

func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// bootstrap wires an Orchestrator and its Session Store the same way the
// CLI's commands.bootstrap does (see cmd/ollamabot/commands/root.go),
// duplicated here rather than imported since cmd/ollamabot-server is a
// separate, independently deployable binary.
func bootstrap(ctx context.Context) (*orchestrator.Orchestrator, *session.Store, *config.Watcher, error) {
	if err := config.EnsureDir(); err != nil {
		return nil, nil, nil, fmt.Errorf("ollamabot-server: preparing config directory: %w", err)
	}
	cfg, err := config.Load(config.Dir())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ollamabot-server: loading config: %w", err)
	}

	tier := coordinator.Tier("")
	if cfg.Models.TierDetection.Auto {
		if totalGB, memErr := config.DetectTotalMemGB(); memErr == nil {
			tier = coordinator.DetectTier(totalGB)
		}
	}

	backend := ollama.New(cfg.Ollama.URL)
	models := coordinator.New(backend, coordinator.Config{Tier: tier, Roles: roleConfigs(cfg)})

	store := session.New(config.SessionsDir())
	judgeCoord := judge.New(models, nil)
	suspend := suspension.New(models)
	tools := toolregistry.Default()
	tele := telemetry.New(config.TelemetryDir())
	consult := consultation.New(func(ctx context.Context, req consultation.Request) (string, error) {
		return "", fmt.Errorf("ollamabot-server: no remote answer submitted before the deadline")
	})

	// The server is long-running, unlike the CLI's one-shot invocations,
	// so it is worth watching config.yaml and reloading the Model
	// Coordinator's role mapping in place rather than requiring a
	// restart to pick up an edited model or tier override.
	watcher, err := config.NewWatcher(func(newCfg *types.Config) {
		newTier := tier
		if newCfg.Models.TierDetection.Auto {
			if totalGB, memErr := config.DetectTotalMemGB(); memErr == nil {
				newTier = coordinator.DetectTier(totalGB)
			}
		}
		models.Reload(coordinator.Config{Tier: newTier, Roles: roleConfigs(newCfg)})
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ollamabot-server: starting config watcher: %w", err)
	}

	return orchestrator.New(models, store, consult, judgeCoord, suspend, tools, tele), store, watcher, nil
}

func roleConfigs(cfg *types.Config) map[types.Role]coordinator.RoleConfig {
	tierMapping := func(m map[string]string) map[coordinator.Tier]string {
		if len(m) == 0 {
			return nil
		}
		out := make(map[coordinator.Tier]string, len(m))
		for k, v := range m {
			out[coordinator.Tier(k)] = v
		}
		return out
	}
	return map[types.Role]coordinator.RoleConfig{
		types.RoleOrchestrator: {Default: cfg.Models.Orchestrator.Default, TierMapping: tierMapping(cfg.Models.Orchestrator.TierMapping)},
		types.RoleCoder:        {Default: cfg.Models.Coder.Default, TierMapping: tierMapping(cfg.Models.Coder.TierMapping)},
		types.RoleResearcher:   {Default: cfg.Models.Researcher.Default, TierMapping: tierMapping(cfg.Models.Researcher.TierMapping)},
		types.RoleVision:       {Default: cfg.Models.Vision.Default, TierMapping: tierMapping(cfg.Models.Vision.TierMapping)},
	}
}
