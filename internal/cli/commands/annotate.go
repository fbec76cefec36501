package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqlift-labs/sqlift/internal/cli/output"
	"github.com/sqlift-labs/sqlift/internal/proctree"
	"github.com/sqlift-labs/sqlift/internal/state"
	"github.com/sqlift-labs/sqlift/internal/tokenize"
)

// NewAnnotateCommand creates the annotate command.
func NewAnnotateCommand() *cobra.Command {
	var (
		budget int
		save   bool
	)

	cmd := &cobra.Command{
		Use:   "annotate <tree.json> <source.sql>",
		Short: "Annotate a procedure tree with token weights",
		Long: `Annotate a procedure tree with per-node token weights and scan for
chunk boundaries.

The tree is a JSON document of nested nodes with line ranges into the
source file. Each node's weight is the token count of its own lines,
excluding the lines covered by its children. The boundary scan then
walks the tree in document order, accumulating weights, and records a
boundary at each node whose weight pushes the running total over the
budget.

A budget of zero or less disables the boundary scan.`,
		Example: `  # Annotate with the configured token budget
  sqlift annotate proc.json proc.sql

  # Use an explicit budget
  sqlift annotate proc.json proc.sql --budget 800

  # Record boundaries in the state database
  sqlift annotate proc.json proc.sql --save`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("budget") {
				budget = getConfig().TokenBudget
			}
			return runAnnotate(cmd, args[0], args[1], budget, save)
		},
	}

	cmd.Flags().IntVar(&budget, "budget", 0, "Token budget per chunk (default from config)")
	cmd.Flags().BoolVar(&save, "save", false, "Record boundaries in the state database")

	return cmd
}

func runAnnotate(cmd *cobra.Command, treePath, sourcePath string, budget int, save bool) error {
	cc := NewCommandContext(cmd)

	treeData, err := os.ReadFile(treePath)
	if err != nil {
		return fmt.Errorf("failed to read tree: %w", err)
	}
	root, err := proctree.Decode(treeData)
	if err != nil {
		return fmt.Errorf("failed to decode tree: %w", err)
	}

	sourceData, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}
	lines := strings.Split(string(sourceData), "\n")

	if err := proctree.Annotate(root, lines, tokenize.Estimate); err != nil {
		return err
	}

	var bounds []int
	if budget > 0 {
		bounds = proctree.Boundaries(root, budget)
	}

	cc.Logger.Debug("annotated tree",
		"tree", treePath, "budget", budget, "boundaries", len(bounds))

	if save {
		if err := saveBoundaries(cc, treePath, sourcePath, bounds); err != nil {
			return err
		}
	}

	return renderAnnotation(cc, root, bounds, budget)
}

func saveBoundaries(cc *CommandContext, treePath, sourcePath string, bounds []int) error {
	store, err := openStore(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.CreateRun(cc.Cfg.Environment, sourcePath)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	procedure := strings.TrimSuffix(filepath.Base(treePath), filepath.Ext(treePath))
	if err := store.SaveBoundaries(run.ID, procedure, bounds); err != nil {
		_ = store.CompleteRun(run.ID, state.RunStatusFailed, err.Error())
		return fmt.Errorf("failed to save boundaries: %w", err)
	}
	if err := store.CompleteRun(run.ID, state.RunStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	cc.Renderer.Printf("Saved boundaries as run %s\n", run.ID)
	return nil
}

type annotationOutput struct {
	Tree       *proctree.Node `json:"tree"`
	Budget     int            `json:"budget"`
	Boundaries []int          `json:"boundaries"`
}

func renderAnnotation(cc *CommandContext, root *proctree.Node, bounds []int, budget int) error {
	if cc.Renderer.Mode() == output.ModeJSON {
		return cc.Renderer.JSON(annotationOutput{
			Tree:       root,
			Budget:     budget,
			Boundaries: bounds,
		})
	}

	var rows [][]string
	var appendNode func(n *proctree.Node, depth int)
	appendNode = func(n *proctree.Node, depth int) {
		name := strings.Repeat("  ", depth) + n.Name
		rows = append(rows, []string{
			name,
			n.Type,
			fmt.Sprintf("%d-%d", n.StartLine, n.EndLine),
			strconv.Itoa(n.Tokens),
		})
		for _, c := range n.Children {
			appendNode(c, depth+1)
		}
	}
	appendNode(root, 0)

	if err := cc.Renderer.Table([]string{"Node", "Type", "Lines", "Tokens"}, rows); err != nil {
		return err
	}

	if budget > 0 {
		if len(bounds) == 0 {
			cc.Renderer.Printf("\nNo boundaries needed within budget %d\n", budget)
		} else {
			parts := make([]string, len(bounds))
			for i, b := range bounds {
				parts[i] = strconv.Itoa(b)
			}
			cc.Renderer.Printf("\nBoundaries after lines: %s (budget %d)\n", strings.Join(parts, ", "), budget)
		}
	}
	return nil
}
