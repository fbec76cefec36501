// Package config provides configuration management for the sqlift CLI.
//
// This package extends the shared configuration types from internal/config
// with CLI-specific fields: output format, verbosity, state path and
// per-environment overrides.
package config

import (
	sharedcfg "github.com/sqlift-labs/sqlift/internal/config"
)

// SourceConfig is an alias for the shared source database configuration.
type SourceConfig = sharedcfg.SourceConfig

// Config holds all CLI configuration options.
type Config struct {
	DDLDir        string               `koanf:"ddl_dir"`
	ProceduresDir string               `koanf:"procedures_dir"`
	StatePath     string               `koanf:"state_path"`
	TokenBudget   int                  `koanf:"token_budget"`
	Environment   string               `koanf:"environment"`
	Verbose       bool                 `koanf:"verbose"`
	OutputFormat  string               `koanf:"output"`
	Source        *SourceConfig        `koanf:"source"`
	Environments  map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the resolved project directory. Set by LoadConfig,
	// never read from the config file.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	DDLDir        string        `koanf:"ddl_dir"`
	ProceduresDir string        `koanf:"procedures_dir"`
	Source        *SourceConfig `koanf:"source"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultDDLDir        = sharedcfg.DefaultDDLDir
	DefaultProceduresDir = sharedcfg.DefaultProceduresDir
	DefaultTokenBudget   = sharedcfg.DefaultTokenBudget
	DefaultStateFile     = ".sqlift/state.db"
	DefaultEnv           = "dev"
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)
