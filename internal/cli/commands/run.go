package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdwh/internal/pipeline"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	return newPipelineCommand(pipeline.ModeLoad, "load",
		"Drop and recreate every table, then bulk load the staging tables",
		`Drop and recreate every table, then copy the raw event logs and song
catalog from object storage into the staging tables.

The star schema is left empty. Run 'leapdwh transform' afterwards, or use
'leapdwh run' to do both.`,
		`  # Load staging tables on the configured cluster
  leapdwh load

  # Load with each stage in one transaction
  leapdwh load --atomic-stages`)
}

// NewTransformCommand creates the transform command.
func NewTransformCommand() *cobra.Command {
	return newPipelineCommand(pipeline.ModeTransform, "transform",
		"Populate the star schema from the staging tables",
		`Populate songplays, users, songs, artists and time from the staging
tables filled by a previous load.`,
		`  # Populate the star schema
  leapdwh transform

  # Emit progress as JSON lines
  leapdwh transform --output json`)
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := newPipelineCommand(pipeline.ModeFull, "run",
		"Rebuild the warehouse: reset, load and transform",
		`Rebuild the warehouse end to end: drop and recreate every table, load
the staging tables, then populate the star schema.

Output adapts to environment:
  - Terminal: one progress line per statement
  - Piped/Scripted: Markdown
  - --output json: JSON lines (run_start, statement_complete, run_complete)`,
		`  # Rebuild against the configured target
  leapdwh run

  # Rebuild locally with DuckDB
  leapdwh run --target-type duckdb`)
	cmd.Aliases = []string{"etl"}
	return cmd
}

func newPipelineCommand(mode pipeline.Mode, use, short, long, example string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Long:    long,
		Example: example,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, mode)
		},
	}
	cmd.Flags().Bool("atomic-stages", false, "Run each stage in a single transaction")
	cmd.Flags().Bool("preflight", true, "Check sources before anything is dropped")
	return cmd
}

func runPipeline(cmd *cobra.Command, mode pipeline.Mode) error {
	cc := NewCommandContext(cmd)
	if mode != pipeline.ModeTransform {
		if err := cc.Cfg.ValidateSources(); err != nil {
			return fmt.Errorf("invalid sources configuration: %w", err)
		}
	}

	w, err := openWarehouse(cmd.Context(), cc, progressObserver(cc.Renderer))
	if err != nil {
		return err
	}
	defer w.Close()

	_, err = w.pipeline.Run(cmd.Context(), mode)
	return err
}
