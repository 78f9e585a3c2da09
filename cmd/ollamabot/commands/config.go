package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cadenroberts/OllamaBot-sub010/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and migrate OllamaBot configuration",
}

func init() {
	configCmd.AddCommand(configMigrateCmd)
}

var configMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate a legacy config.json into config.yaml",
	Long: `Load() already migrates a legacy config on first encounter, so this
command exists for operators who want to trigger and confirm the
migration explicitly rather than relying on it happening implicitly
the first time any other command runs.`,
	RunE: runConfigMigrate,
}

func runConfigMigrate(cmd *cobra.Command, args []string) error {
	if err := config.EnsureDir(); err != nil {
		return exitError{code: ExitConfigError, err: err}
	}

	if _, err := os.Stat(config.Path()); err == nil {
		fmt.Printf("%s already exists, nothing to migrate\n", config.Path())
		return nil
	}
	if _, err := os.Stat(config.LegacyPath()); os.IsNotExist(err) {
		fmt.Printf("no legacy config found at %s\n", config.LegacyPath())
		return nil
	}

	if _, err := config.Load(config.Dir()); err != nil {
		return exitError{code: ExitConfigError, err: err}
	}
	fmt.Printf("Migrated %s to %s\n", config.LegacyPath()+".bak", config.Path())
	return nil
}
