// Package config implements the Config component (spec §4.11/§6): a
// typed YAML configuration tree with transparent legacy-JSON migration,
// simplified from the teacher's XDG-split paths.go (Data/Config/Cache/
// State) to the single OLLAMABOT_CONFIG_DIR root spec §6 calls for —
// one directory holding config.yaml, sessions/, and telemetry/.
package config

import (
	"os"
	"path/filepath"
)

// Dir returns the config root, honouring OLLAMABOT_CONFIG_DIR, falling
// back to ~/.config/ollamabot.
func Dir() string {
	if dir := os.Getenv("OLLAMABOT_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ollamabot"
	}
	return filepath.Join(home, ".config", "ollamabot")
}

// Path returns <config_dir>/config.yaml.
func Path() string { return filepath.Join(Dir(), "config.yaml") }

// LegacyPath returns <config_dir>/config.json, the pre-migration format.
func LegacyPath() string { return filepath.Join(Dir(), "config.json") }

// SessionsDir returns <config_dir>/sessions.
func SessionsDir() string { return filepath.Join(Dir(), "sessions") }

// TelemetryDir returns <config_dir>/telemetry.
func TelemetryDir() string { return filepath.Join(Dir(), "telemetry") }

// EnsureDir creates the config root and its standard subdirectories if
// absent.
func EnsureDir() error {
	for _, d := range []string{Dir(), SessionsDir(), TelemetryDir()} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}
