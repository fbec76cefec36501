package config

import "fmt"

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DDLDir == "" {
		return fmt.Errorf("ddl_dir is required")
	}
	if c.ProceduresDir == "" {
		return fmt.Errorf("procedures_dir is required")
	}
	if c.TokenBudget < 0 {
		return fmt.Errorf("token_budget must not be negative, got %d", c.TokenBudget)
	}
	if c.Source != nil {
		if err := c.Source.Validate(); err != nil {
			return fmt.Errorf("invalid source configuration: %w", err)
		}
	}
	return nil
}
