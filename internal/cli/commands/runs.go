package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdwh/internal/cli/output"
	"github.com/leapstack-labs/leapdwh/internal/state"
	"github.com/leapstack-labs/leapdwh/pkg/core"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show recorded pipeline runs",
		Long: `List runs recorded in the local run history, most recent first, or
show every statement of one run.

Run history is kept only when state_path is configured (or --state is set).`,
		Example: `  # List the last 10 runs
  leapdwh runs --state .leapdwh/state.db

  # Show the statements of one run
  leapdwh runs 3f6c... --state .leapdwh/state.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			if cc.Cfg.StatePath == "" {
				return errors.New("no run history configured\nHint: set state_path in leapdwh.yaml or pass --state")
			}
			store, err := openStateStore(cc.Cfg.StatePath, cc.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if len(args) == 1 {
				return showRun(cc.Renderer, store, args[0])
			}
			return listRuns(cc.Renderer, store, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to list (0 for all)")
	return cmd
}

func listRuns(r *output.Renderer, store core.Store, limit int) error {
	runs, err := store.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if r.EffectiveMode() == output.ModeJSON {
		infos := make([]output.RunInfo, len(runs))
		for i, run := range runs {
			infos[i] = runInfo(run)
		}
		return r.JSON(infos)
	}

	if len(runs) == 0 {
		r.Muted("No runs recorded")
		return nil
	}

	r.Header(1, fmt.Sprintf("Runs (%d shown)", len(runs)))
	rows := make([][]any, len(runs))
	for i, run := range runs {
		info := runInfo(run)
		rows[i] = []any{info.ID, info.Mode, info.Status, info.State, info.StartedAt, info.Error}
	}
	r.Table([]string{"ID", "Mode", "Status", "State", "Started", "Error"}, rows)
	return nil
}

func showRun(r *output.Renderer, store core.Store, id string) error {
	run, err := store.GetRun(id)
	if errors.Is(err, state.ErrRunNotFound) {
		return fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return err
	}
	stmts, err := store.GetStatementRuns(id)
	if err != nil {
		return fmt.Errorf("failed to load statements of run %s: %w", id, err)
	}

	info := runInfo(run)
	for _, s := range stmts {
		info.Statements = append(info.Statements, output.StatementInfo{
			Seq:        s.Seq,
			Stage:      string(s.Stage),
			Name:       s.Name,
			Status:     string(s.Status),
			Rows:       s.RowsAffected,
			DurationMS: s.Duration.Milliseconds(),
			Error:      s.Error,
		})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(info)
	}

	r.Header(1, "Run "+info.ID)
	r.KeyValue("Mode", info.Mode)
	r.KeyValue("Target", info.Target)
	r.KeyValue("Status", info.Status)
	r.KeyValue("State", info.State)
	r.KeyValue("Started", info.StartedAt)
	if info.CompletedAt != "" {
		r.KeyValue("Completed", info.CompletedAt)
	}
	if info.Error != "" {
		r.KeyValue("Error", info.Error)
	}
	r.Println("")

	rows := make([][]any, len(info.Statements))
	for i, s := range info.Statements {
		rows[i] = []any{s.Seq, s.Stage, s.Name, s.Status, s.Rows, fmt.Sprintf("%dms", s.DurationMS)}
	}
	r.Table([]string{"#", "Stage", "Statement", "Status", "Rows", "Duration"}, rows)
	return nil
}

func runInfo(run *core.Run) output.RunInfo {
	info := output.RunInfo{
		ID:        run.ID,
		Mode:      run.Mode,
		Target:    run.Target,
		Status:    string(run.Status),
		State:     run.State,
		StartedAt: run.StartedAt.UTC().Format(time.RFC3339),
		Error:     run.Error,
	}
	if run.CompletedAt != nil {
		info.CompletedAt = run.CompletedAt.UTC().Format(time.RFC3339)
	}
	return info
}
