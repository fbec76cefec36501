package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqlift-labs/sqlift/internal/ddl"
	"github.com/sqlift-labs/sqlift/internal/discover"
)

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand() *cobra.Command {
	var (
		schemaFlag string
		stdout     bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Dump the catalog of a live database as DDL",
		Long: `Connect to the configured source database and dump its catalog as
DDL text in the statement shapes the extractor consumes.

The dump is written to <schema>.sql inside the configured DDL
directory, so a subsequent extract run picks it up without further
arguments.`,
		Example: `  # Dump the configured source schema into the DDL directory
  sqlift discover

  # Dump a specific schema to stdout
  sqlift discover --schema billing --stdout`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiscoverCatalog(cmd, schemaFlag, stdout)
		},
	}

	cmd.Flags().StringVar(&schemaFlag, "schema", "", "Schema to dump (default from source config)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Write the dump to stdout instead of the DDL directory")

	return cmd
}

func runDiscoverCatalog(cmd *cobra.Command, schemaFlag string, stdout bool) error {
	cc := NewCommandContext(cmd)

	src := cc.Cfg.Source
	if src == nil {
		return fmt.Errorf("no source configured; add a source section to sqlift.yaml")
	}
	if err := src.Validate(); err != nil {
		return err
	}

	schema := schemaFlag
	if schema == "" {
		schema = src.Schema
	}

	d := discover.New(cc.Logger)
	if err := d.Connect(cmd.Context(), src); err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	tables, err := d.ReadSchema(cmd.Context(), schema)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		return fmt.Errorf("no tables found in schema %q", schema)
	}

	if stdout {
		return discover.Render(cmd.OutOrStdout(), tables)
	}

	if err := os.MkdirAll(cc.Cfg.DDLDir, 0750); err != nil {
		return fmt.Errorf("failed to create DDL directory: %w", err)
	}
	path := filepath.Join(cc.Cfg.DDLDir, schema+".sql")

	var buf strings.Builder
	if err := discover.Render(&buf, tables); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	// Round-trip through the extractor to confirm the dump is consumable
	extracted := ddl.NewParser().Parse(buf.String())
	if extracted.Len() != len(tables) {
		cc.Logger.Warn("dump round-trip mismatch",
			"discovered", len(tables), "extracted", extracted.Len())
	}

	cc.Renderer.Printf("Dumped %d tables from %s to %s\n", len(tables), schema, path)
	return nil
}
