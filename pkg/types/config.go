package types

// Config is the typed configuration tree loaded from config.yaml
// (legacy config.json is migrated into this shape on first read).
type Config struct {
	Version       string              `yaml:"version" json:"version"`
	Models        ModelsConfig        `yaml:"models" json:"models"`
	Orchestration OrchestrationConfig `yaml:"orchestration" json:"orchestration"`
	Context       ContextConfig       `yaml:"context" json:"context"`
	Quality       QualityConfig       `yaml:"quality" json:"quality"`
	Platforms     PlatformsConfig     `yaml:"platforms" json:"platforms"`
	Ollama        OllamaConfig        `yaml:"ollama" json:"ollama"`
}

// ModelsConfig holds per-role model selection and RAM-tier detection.
type ModelsConfig struct {
	TierDetection TierDetectionConfig `yaml:"tier_detection" json:"tier_detection"`
	Orchestrator  RoleModelConfig     `yaml:"orchestrator" json:"orchestrator"`
	Coder         RoleModelConfig     `yaml:"coder" json:"coder"`
	Researcher    RoleModelConfig     `yaml:"researcher" json:"researcher"`
	Vision        RoleModelConfig     `yaml:"vision" json:"vision"`
}

// TierDetectionConfig controls RAM-tier auto-detection.
type TierDetectionConfig struct {
	Auto       bool                  `yaml:"auto" json:"auto"`
	Thresholds map[string][2]float64 `yaml:"thresholds" json:"thresholds"`
}

// RoleModelConfig is a role's default model plus per-tier overrides.
type RoleModelConfig struct {
	Default     string            `yaml:"default" json:"default"`
	TierMapping map[string]string `yaml:"tier_mapping" json:"tier_mapping"`
}

// OrchestrationConfig holds schedule/process customisation.
type OrchestrationConfig struct {
	DefaultMode string                   `yaml:"default_mode" json:"default_mode"`
	Schedules   []ScheduleConfigOverride `yaml:"schedules" json:"schedules"`
}

// ScheduleConfigOverride lets a project override consultation semantics
// for a schedule's processes without recompiling the Schedule Factory.
type ScheduleConfigOverride struct {
	ID           int                              `yaml:"id" json:"id"`
	Processes    []string                         `yaml:"processes" json:"processes"`
	Model        string                           `yaml:"model" json:"model"`
	Consultation map[string]ConsultationOverride  `yaml:"consultation" json:"consultation"`
}

// ConsultationOverride overrides a single process's consultation
// requirement and timeout.
type ConsultationOverride struct {
	Type    string `yaml:"type" json:"type"`
	Timeout int    `yaml:"timeout" json:"timeout"`
}

// ContextConfig governs the Orchestrator's context-window budget and
// compaction behaviour.
type ContextConfig struct {
	MaxTokens        int               `yaml:"max_tokens" json:"max_tokens"`
	BudgetAllocation BudgetAllocation  `yaml:"budget_allocation" json:"budget_allocation"`
	Compression      CompressionConfig `yaml:"compression" json:"compression"`
}

// BudgetAllocation splits the context window by fraction across the
// named concerns.
type BudgetAllocation struct {
	Task    float64 `yaml:"task" json:"task"`
	Files   float64 `yaml:"files" json:"files"`
	Project float64 `yaml:"project" json:"project"`
	History float64 `yaml:"history" json:"history"`
	Memory  float64 `yaml:"memory" json:"memory"`
	Errors  float64 `yaml:"errors" json:"errors"`
	Reserve float64 `yaml:"reserve" json:"reserve"`
}

// CompressionConfig governs context compaction.
type CompressionConfig struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Strategy string   `yaml:"strategy" json:"strategy"`
	Preserve []string `yaml:"preserve" json:"preserve"`
}

// QualityConfig holds the three named presets.
type QualityConfig struct {
	Fast     QualityPreset `yaml:"fast" json:"fast"`
	Balanced QualityPreset `yaml:"balanced" json:"balanced"`
	Thorough QualityPreset `yaml:"thorough" json:"thorough"`
}

// QualityPreset controls review-stage iteration depth, independent of
// step-level retries (see spec Open Question i).
type QualityPreset struct {
	Iterations   int    `yaml:"iterations" json:"iterations"`
	Verification string `yaml:"verification" json:"verification"`
}

// PlatformsConfig holds front-end display preferences the core stores
// but never interprets.
type PlatformsConfig struct {
	CLI CLIPlatformConfig `yaml:"cli" json:"cli"`
	IDE IDEPlatformConfig `yaml:"ide" json:"ide"`
}

// CLIPlatformConfig is CLI-specific display preference.
type CLIPlatformConfig struct {
	Verbose     bool `yaml:"verbose" json:"verbose"`
	MemGraph    bool `yaml:"mem_graph" json:"mem_graph"`
	ColorOutput bool `yaml:"color_output" json:"color_output"`
}

// IDEPlatformConfig is IDE-specific display preference.
type IDEPlatformConfig struct {
	Theme          string `yaml:"theme" json:"theme"`
	FontSize       int    `yaml:"font_size" json:"font_size"`
	ShowTokenUsage bool   `yaml:"show_token_usage" json:"show_token_usage"`
}

// OllamaConfig points the ollama package at the local daemon.
type OllamaConfig struct {
	URL            string `yaml:"url" json:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Model describes one model the ollama backend reports via /api/tags.
type Model struct {
	Name           string `json:"name"`
	ParameterSize  string `json:"parameter_size,omitempty"`
	ContextLength  int    `json:"context_length,omitempty"`
	SupportsTools  bool   `json:"supports_tools,omitempty"`
	SupportsVision bool   `json:"supports_vision,omitempty"`
}
