// Package commands provides the CLI commands for OllamaBot.
package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cadenroberts/OllamaBot-sub010/internal/config"
	"github.com/cadenroberts/OllamaBot-sub010/internal/consultation"
	"github.com/cadenroberts/OllamaBot-sub010/internal/coordinator"
	"github.com/cadenroberts/OllamaBot-sub010/internal/event"
	"github.com/cadenroberts/OllamaBot-sub010/internal/judge"
	"github.com/cadenroberts/OllamaBot-sub010/internal/logging"
	"github.com/cadenroberts/OllamaBot-sub010/internal/ollama"
	"github.com/cadenroberts/OllamaBot-sub010/internal/orchestrator"
	"github.com/cadenroberts/OllamaBot-sub010/internal/session"
	"github.com/cadenroberts/OllamaBot-sub010/internal/suspension"
	"github.com/cadenroberts/OllamaBot-sub010/internal/telemetry"
	"github.com/cadenroberts/OllamaBot-sub010/internal/toolregistry"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

var (
	// Version information set at build time.
	Version   = "0.1.0"
	BuildTime = "dev"
)

var (
	printLogs bool
	logLevel  string
	logFile   bool
)

var rootCmd = &cobra.Command{
	Use:   "ollamabot",
	Short: "OllamaBot - a local-first agentic coding assistant",
	Long: `OllamaBot drives a disciplined, multi-phase coding assistant against a
local Ollama daemon. It sequences work through five schedules
(Knowledge, Plan, Implement, Scale, Production), each split into three
processes, consulting you only when a process calls for it.

Run 'ollamabot run "<task>"' to start a new run.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logCfg := logging.Config{
			Level:     logging.ParseLevel(logLevel),
			Output:    os.Stderr,
			Pretty:    printLogs,
			LogToFile: logFile,
		}
		if !printLogs && !logFile {
			logCfg.Level = logging.FatalLevel
		}
		logging.Init(logCfg)

		if logFile {
			logging.Info().Str("version", Version).Str("logFile", logging.GetLogFilePath()).Msg("ollamabot started with file logging")
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "Write logs to /tmp/ollamabot-YYYYMMDD-HHMMSS.log")

	rootCmd.SetVersionTemplate(fmt.Sprintf("ollamabot %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// bootstrap loads configuration and wires every Orchestrator
// collaborator exactly once per CLI invocation, following the teacher's
// root.go convention of one config.Load + registry-construction
// sequence. It also returns the loaded config tree; run, its only
// caller, uses just the Orchestrator.
func bootstrap(ctx context.Context) (*orchestrator.Orchestrator, *types.Config, error) {
	if err := config.EnsureDir(); err != nil {
		return nil, nil, fmt.Errorf("ollamabot: preparing config directory: %w", err)
	}

	cfg, err := config.Load(config.Dir())
	if err != nil {
		return nil, nil, fmt.Errorf("ollamabot: loading config: %w", err)
	}

	tier := coordinator.Tier("")
	if cfg.Models.TierDetection.Auto {
		if totalGB, memErr := config.DetectTotalMemGB(); memErr == nil {
			tier = coordinator.DetectTier(totalGB)
		}
	}

	backend := ollama.New(cfg.Ollama.URL)
	models := coordinator.New(backend, coordinator.Config{
		Tier:  tier,
		Roles: roleConfigs(cfg),
	})

	store := session.New(config.SessionsDir())
	judgeCoord := judge.New(models, nil)
	suspend := suspension.New(models)
	tools := toolregistry.Default()
	tele := telemetry.New(config.TelemetryDir())

	consult := consultation.New(cliSubstitute)
	event.Subscribe(event.ConsultationRequested, printConsultationPrompt)

	return orchestrator.New(models, store, consult, judgeCoord, suspend, tools, tele), cfg, nil
}

// roleConfigs converts the typed config tree's per-role model settings
// into the Model Coordinator's Config.Roles map (spec §4.3).
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

// cliSubstitute is the Consultation Handler's fallback when no human
// answers before the countdown elapses. It reads no input: it always
// returns an error, so the handler uses its own canned per-type answer.
func cliSubstitute(ctx context.Context, req consultation.Request) (string, error) {
	return "", fmt.Errorf("ollamabot: no interactive answer available, falling back to canned response")
}

// printConsultationPrompt renders a consultation request to stdout so a
// user watching the CLI knows a question is pending.
func printConsultationPrompt(evt event.Event) {
	data, ok := evt.Data.(event.ConsultationRequestedData)
	if !ok {
		return
	}
	fmt.Printf("\n--- consultation requested (%s) ---\n%s\n", data.Type, data.Question)
}

// readLine reads a single line of interactive input from stdin. No
// subcommand calls it.
func readLine() string {
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}
