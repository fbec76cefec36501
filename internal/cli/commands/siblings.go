package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqlift-labs/sqlift/internal/cli/output"
	"github.com/sqlift-labs/sqlift/internal/siblings"
)

// NewSiblingsCommand creates the siblings command.
func NewSiblingsCommand() *cobra.Command {
	var inPlace bool

	cmd := &cobra.Command{
		Use:   "siblings [file]",
		Short: "Synthesize sibling ordering statements for a graph batch",
		Long: `Synthesize NEXTSIBLING ordering statements from a batch of graph
creation statements.

The batch is scanned for PARENTOF edge statements whose child carries
an inline type and id literal. For every parent with two or more such
children, one NEXTSIBLING statement is emitted per adjacent child
pair, preserving the order the edges appear in the batch. Edges whose
child is referenced only by variable are skipped.

Reads from stdin when no file is given.`,
		Example: `  # Print ordering statements for a batch
  sqlift siblings batch.cypher

  # Append them to the batch file itself
  sqlift siblings batch.cypher --in-place

  # Pipe a batch through
  cat batch.cypher | sqlift siblings`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runSiblings(cmd, path, inPlace)
		},
	}

	cmd.Flags().BoolVar(&inPlace, "in-place", false, "Append ordering statements to the input file")

	return cmd
}

func runSiblings(cmd *cobra.Command, path string, inPlace bool) error {
	cc := NewCommandContext(cmd)

	if inPlace && path == "" {
		return fmt.Errorf("--in-place requires a file argument")
	}

	var data []byte
	var err error
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	lines := strings.Split(string(data), "\n")
	statements := siblings.Synthesize(lines)

	cc.Logger.Debug("synthesized sibling ordering", "statements", len(statements))

	if inPlace {
		return appendStatements(path, data, statements)
	}

	if cc.Renderer.Mode() == output.ModeJSON {
		return cc.Renderer.JSON(statements)
	}
	for _, stmt := range statements {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), stmt); err != nil {
			return err
		}
	}
	return nil
}

// appendStatements appends the ordering statements to the batch file,
// separated from the existing content by a single newline.
func appendStatements(path string, original []byte, statements []string) error {
	if len(statements) == 0 {
		return nil
	}

	var b strings.Builder
	b.Write(original)
	if len(original) > 0 && original[len(original)-1] != '\n' {
		b.WriteString("\n")
	}
	for _, stmt := range statements {
		b.WriteString(stmt)
		b.WriteString("\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0600)
}
