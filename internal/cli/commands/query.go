package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/leapdwh/internal/cli/output"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Input string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run SQL against the warehouse",
		Long: `Run an ad-hoc SQL statement against the configured target and print
the result set.

SQL is taken from the arguments, from --input, or from piped stdin.
Useful for inspecting the star schema after a run.`,
		Example: `  # Most active users
  leapdwh query "SELECT user_id, COUNT(*) AS plays FROM songplays GROUP BY 1 ORDER BY 2 DESC LIMIT 5"

  # From a file, as JSON
  leapdwh query --input analysis.sql --output json

  # Columns and row count of a table
  leapdwh query schema songplays`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlQuery, err := readQuery(cmd, args, opts)
			if err != nil {
				return err
			}
			return runQuery(cmd, sqlQuery)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.AddCommand(newQuerySchemaCommand())

	return cmd
}

// readQuery picks the SQL source: arguments, then --input, then piped stdin.
func readQuery(cmd *cobra.Command, args []string, opts *QueryOptions) (string, error) {
	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isInteractive(cmd.InOrStdin()):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	}

	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return "", fmt.Errorf("no SQL given (pass it as an argument, with --input, or on stdin)")
	}
	return sqlQuery, nil
}

func isInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runQuery(cmd *cobra.Command, sqlQuery string) error {
	ctx := cmd.Context()
	cc := NewCommandContext(cmd)

	adp, _, err := connectTarget(ctx, cc)
	if err != nil {
		return err
	}
	defer func() { _ = adp.Close() }()

	rows, err := adp.Query(ctx, sqlQuery)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result, err := collectRows(rows.Rows)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return renderResult(cc.Renderer, result)
}

// newQuerySchemaCommand creates the schema subcommand.
func newQuerySchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show the columns and row count of a warehouse table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuerySchema(cmd, args[0])
		},
	}
}

func runQuerySchema(cmd *cobra.Command, table string) error {
	ctx := cmd.Context()
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	adp, _, err := connectTarget(ctx, cc)
	if err != nil {
		return err
	}
	defer func() { _ = adp.Close() }()

	meta, err := adp.GetTableMetadata(ctx, table)
	if err != nil {
		return err
	}

	info := output.TableSchema{Schema: meta.Schema, Name: meta.Name, RowCount: meta.RowCount}
	for _, c := range meta.Columns {
		info.Columns = append(info.Columns, output.ColumnInfo{
			Name:     c.Name,
			Type:     c.Type,
			Nullable: c.Nullable,
			Position: c.Position,
		})
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(info)
	}

	r.Header(1, fmt.Sprintf("%s.%s", meta.Schema, meta.Name))
	rows := make([][]any, len(info.Columns))
	for i, c := range info.Columns {
		nullable := "NO"
		if c.Nullable {
			nullable = "YES"
		}
		rows[i] = []any{c.Position, c.Name, c.Type, nullable}
	}
	r.Table([]string{"#", "Column", "Type", "Nullable"}, rows)
	r.KeyValue("Rows", fmt.Sprintf("%d", meta.RowCount))
	return nil
}
