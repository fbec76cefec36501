package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sqlift-labs/sqlift/internal/cli/output"
	"github.com/sqlift-labs/sqlift/internal/ddl"
	"github.com/sqlift-labs/sqlift/internal/state"
)

// NewExtractCommand creates the extract command.
func NewExtractCommand() *cobra.Command {
	var (
		writePath string
		save      bool
	)

	cmd := &cobra.Command{
		Use:   "extract [path...]",
		Short: "Extract table structure from DDL files",
		Long: `Extract table structure from SQL DDL files.

Recognized statements are CREATE TABLE, COMMENT ON TABLE, COMMENT ON
COLUMN, and ALTER TABLE ... ADD PRIMARY KEY / FOREIGN KEY. Anything
else, including malformed statements, is skipped.

Paths may be files or directories; directories are scanned for .sql
files. Without arguments the configured DDL directory is used. Files
are parsed independently and merged in sorted path order, so a table
redefined in a later file overwrites the earlier definition.`,
		Example: `  # Extract from the configured DDL directory
  sqlift extract

  # Extract specific files
  sqlift extract schema/tables.sql schema/constraints.sql

  # Write the catalog to a YAML file
  sqlift extract --write catalog.yaml

  # Record the extraction in the state database
  sqlift extract --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args, writePath, save)
		},
	}

	cmd.Flags().StringVar(&writePath, "write", "", "Write extracted catalog to a YAML file")
	cmd.Flags().BoolVar(&save, "save", false, "Record the extraction in the state database")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string, writePath string, save bool) error {
	cc := NewCommandContext(cmd)

	paths := args
	if len(paths) == 0 {
		paths = []string{cc.Cfg.DDLDir}
	}

	files, err := collectSQLFiles(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .sql files found in %s", strings.Join(paths, ", "))
	}

	cc.Logger.Debug("extracting DDL", "files", len(files))

	result, err := parseFiles(cmd, files)
	if err != nil {
		return err
	}

	if save {
		if err := saveExtraction(cc, files, result); err != nil {
			return err
		}
	}

	if writePath != "" {
		if err := writeCatalog(writePath, result); err != nil {
			return err
		}
		cc.Renderer.Printf("Wrote %d tables to %s\n", result.Len(), writePath)
	}

	return renderExtraction(cc, result)
}

// collectSQLFiles expands files and directories into a sorted list of .sql files.
func collectSQLFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".sql") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

// parseFiles parses each file independently in parallel, then merges the
// results in sorted file order.
func parseFiles(cmd *cobra.Command, files []string) (*ddl.Result, error) {
	results := make([]*ddl.Result, len(files))

	g, _ := errgroup.WithContext(cmd.Context())
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			results[i] = ddl.NewParser().Parse(string(data))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := ddl.NewResult()
	for _, r := range results {
		merged.Merge(r)
	}
	return merged, nil
}

func saveExtraction(cc *CommandContext, files []string, result *ddl.Result) error {
	store, err := openStore(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.CreateRun(cc.Cfg.Environment, strings.Join(files, ","))
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	if err := store.SaveExtraction(run.ID, result); err != nil {
		_ = store.CompleteRun(run.ID, state.RunStatusFailed, err.Error())
		return fmt.Errorf("failed to save extraction: %w", err)
	}
	if err := store.CompleteRun(run.ID, state.RunStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	cc.Renderer.Printf("Saved extraction as run %s\n", run.ID)
	return nil
}

func writeCatalog(path string, result *ddl.Result) error {
	data, err := yaml.Marshal(result.Entries())
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func renderExtraction(cc *CommandContext, result *ddl.Result) error {
	entries := result.Entries()

	if cc.Renderer.Mode() == output.ModeJSON {
		return cc.Renderer.JSON(entries)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Table.Schema,
			e.Table.Name,
			strconv.Itoa(len(e.Columns)),
			strings.Join(e.PrimaryKey, ", "),
			strconv.Itoa(len(e.ForeignKeys)),
			e.Table.Comment,
		})
	}
	return cc.Renderer.Table([]string{"Schema", "Table", "Columns", "Primary Key", "FKs", "Comment"}, rows)
}
