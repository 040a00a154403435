package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdwh/internal/cli/output"
	"github.com/leapstack-labs/leapdwh/pkg/catalog"
	"github.com/leapstack-labs/leapdwh/pkg/core"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the warehouse tables",
		Long: `List the staging tables and the star schema in creation order, with
their keys and layout hints.`,
		Example: `  # List tables
  leapdwh tables

  # List tables as JSON
  leapdwh tables --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTables(NewCommandContext(cmd).Renderer)
		},
	}
}

func runTables(r *output.Renderer) error {
	tables := catalog.New().Tables()

	if r.EffectiveMode() == output.ModeJSON {
		infos := make([]output.TableInfo, len(tables))
		for i, t := range tables {
			infos[i] = tableInfo(t)
		}
		return r.JSON(infos)
	}

	r.Header(1, fmt.Sprintf("Tables (%d total)", len(tables)))
	rows := make([][]any, len(tables))
	for i, t := range tables {
		info := tableInfo(t)
		rows[i] = []any{info.Name, info.Kind, len(info.Columns), info.Key, info.SortKey, info.DistStyle}
	}
	r.Table([]string{"Table", "Kind", "Columns", "Primary Key", "Sort Key", "Dist Style"}, rows)

	if r.EffectiveMode() == output.ModeMarkdown {
		for _, t := range tables {
			r.Println("")
			r.Println(output.FormatHeader(2, t.Name))
			r.Println(output.FormatKeyValue("Columns", strings.Join(t.ColumnNames(), ", ")))
		}
	}
	return nil
}

func tableInfo(t *core.TableDef) output.TableInfo {
	return output.TableInfo{
		Name:      t.Name,
		Kind:      string(t.Kind),
		Columns:   t.ColumnNames(),
		Key:       t.PrimaryKey(),
		SortKey:   t.SortKey(),
		DistStyle: string(t.DistStyle),
	}
}
