package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sqlift-labs/sqlift/internal/cli/output"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded extraction and annotation runs",
		Long: `List runs recorded in the state database, most recent first.

Runs are created by extract --save and annotate --save.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRuns(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}

func runRuns(cmd *cobra.Command, limit int) error {
	cc := NewCommandContext(cmd)

	store, err := openStore(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}

	if cc.Renderer.Mode() == output.ModeJSON {
		return cc.Renderer.JSON(runs)
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		completed := ""
		if r.CompletedAt != nil {
			completed = r.CompletedAt.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			r.ID,
			r.Environment,
			string(r.Status),
			r.StartedAt.Format(time.RFC3339),
			completed,
			r.Source,
		})
	}
	return cc.Renderer.Table([]string{"ID", "Env", "Status", "Started", "Completed", "Source"}, rows)
}
