package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sqlift-labs/sqlift/internal/cli/config"
	"github.com/sqlift-labs/sqlift/internal/cli/output"
	intconfig "github.com/sqlift-labs/sqlift/internal/config"
	"github.com/sqlift-labs/sqlift/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.ParseMode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	// Fallback: read from environment with defaults
	ddlDir := getEnvOrDefault("SQLIFT_DDL_DIR", intconfig.DefaultDDLDir)
	proceduresDir := getEnvOrDefault("SQLIFT_PROCEDURES_DIR", intconfig.DefaultProceduresDir)
	statePath := getEnvOrDefault("SQLIFT_STATE_PATH", config.DefaultStateFile)
	environment := getEnvOrDefault("SQLIFT_ENVIRONMENT", config.DefaultEnv)
	verbose := os.Getenv("SQLIFT_VERBOSE") == "true"
	outputFormat := os.Getenv("SQLIFT_OUTPUT")

	return &config.Config{
		DDLDir:        ddlDir,
		ProceduresDir: proceduresDir,
		StatePath:     statePath,
		TokenBudget:   config.DefaultTokenBudget,
		Environment:   environment,
		Verbose:       verbose,
		OutputFormat:  outputFormat,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// openStore opens the state database, creating its directory and running
// migrations as needed. The caller must Close the returned store.
func openStore(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}
	return store, nil
}
