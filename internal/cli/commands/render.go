package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdwh/internal/cli/output"
	"github.com/leapstack-labs/leapdwh/internal/objectstore"
	"github.com/leapstack-labs/leapdwh/pkg/catalog"
	"github.com/leapstack-labs/leapdwh/pkg/core"
	"github.com/leapstack-labs/leapdwh/pkg/dialect"
)

// RenderOptions holds options for the render command.
type RenderOptions struct {
	Stage   string
	Dialect string
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the SQL a run would execute",
		Long: `Render every statement of a run without connecting to the warehouse.

This is useful for reviewing the exact DDL, COPY and INSERT statements
before running them, or for running them by hand.

Output adapts to environment:
  - Terminal: Plain SQL
  - Piped/Scripted: Markdown with code blocks`,
		Example: `  # Render all statements for the configured target
  leapdwh render

  # Render only the transforms for DuckDB
  leapdwh render --stage transform --dialect duckdb

  # Save the load script
  leapdwh render --stage load --output text > load.sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Stage, "stage", "", "Only render one stage (reset|load|transform)")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect (default: the target's)")

	_ = cmd.RegisterFlagCompletionFunc("stage", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"reset", "load", "transform"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return dialect.List(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runRender(cmd *cobra.Command, opts *RenderOptions) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	name := opts.Dialect
	if name == "" {
		name = cc.Cfg.Target.Type
	}
	d, err := dialect.Lookup(name)
	if err != nil {
		return err
	}

	stmts, err := renderStatements(cmd, cc, d, core.Stage(opts.Stage))
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		out := output.RenderOutput{Dialect: d.Name, Statements: make([]output.RenderedStatement, len(stmts))}
		for i, s := range stmts {
			out.Statements[i] = output.RenderedStatement{Stage: string(s.Stage), Name: s.Name, SQL: s.SQL}
		}
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Rendered SQL (%s)", d.Name)))
		for _, s := range stmts {
			r.Println("")
			r.Println(output.FormatHeader(2, s.Name))
			r.Println("")
			r.Println(output.FormatCodeBlock("sql", s.SQL+";"))
		}
	default:
		for _, s := range stmts {
			r.Println("-- " + s.Name)
			r.Println(s.SQL + ";")
			r.Println("")
		}
	}
	return nil
}

func renderStatements(cmd *cobra.Command, cc *CommandContext, d *dialect.Dialect, stage core.Stage) ([]core.Statement, error) {
	switch stage {
	case "", core.StageReset, core.StageLoad, core.StageTransform:
	default:
		return nil, fmt.Errorf("unknown stage %q (expected reset, load or transform)", stage)
	}

	cat := catalog.New()
	loader, transforms := planners(cc.Cfg, d, cat, objectstore.New(cc.Cfg.Sources.Region, cc.Logger))

	var stmts []core.Statement
	if stage == "" || stage == core.StageReset {
		stmts = append(stmts, cat.ResetPlan(d)...)
	}
	if stage == "" || stage == core.StageLoad {
		copies, err := loader.Plan(cmd.Context())
		if err != nil {
			return nil, fmt.Errorf("failed to plan load: %w", err)
		}
		stmts = append(stmts, copies...)
	}
	if stage == "" || stage == core.StageTransform {
		inserts, err := transforms.Plan()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, inserts...)
	}
	return stmts, nil
}
