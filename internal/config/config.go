// Package config provides shared configuration types and defaults for
// sqlift. It is decoupled from CLI concerns so other tools can load project
// configuration without pulling in cobra.
package config

import "fmt"

// Default configuration values.
const (
	DefaultDDLDir        = "ddl"
	DefaultProceduresDir = "procedures"
	DefaultTokenBudget   = 1500
)

// SourceConfig holds connection settings for a live source database used by
// catalog discovery.
type SourceConfig struct {
	Type string `koanf:"type"` // postgres

	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Schema   string `koanf:"schema"`

	// Additional driver-specific options (e.g. sslmode)
	Options map[string]string `koanf:"options"`
}

// ApplySourceDefaults applies default values to a SourceConfig based on its
// type.
func ApplySourceDefaults(s *SourceConfig) {
	if s == nil {
		return
	}
	if s.Type == "" {
		s.Type = "postgres"
	}
	if s.Type == "postgres" {
		if s.Port == 0 {
			s.Port = 5432
		}
		if s.Schema == "" {
			s.Schema = "public"
		}
	}
}

// Validate checks if the source configuration is usable.
func (s *SourceConfig) Validate() error {
	if s.Type != "postgres" {
		return fmt.Errorf("unsupported source type: %q", s.Type)
	}
	if s.Database == "" {
		return fmt.Errorf("source database is required")
	}
	return nil
}

// ProjectConfig holds the minimal project configuration shared by tools.
type ProjectConfig struct {
	DDLDir        string        `koanf:"ddl_dir"`
	ProceduresDir string        `koanf:"procedures_dir"`
	TokenBudget   int           `koanf:"token_budget"`
	Source        *SourceConfig `koanf:"source"`
}

// ApplyDefaults applies default values to a ProjectConfig.
func ApplyDefaults(c *ProjectConfig) {
	if c == nil {
		return
	}
	if c.DDLDir == "" {
		c.DDLDir = DefaultDDLDir
	}
	if c.ProceduresDir == "" {
		c.ProceduresDir = DefaultProceduresDir
	}
	if c.TokenBudget == 0 {
		c.TokenBudget = DefaultTokenBudget
	}
}
