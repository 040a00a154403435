package commands

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapdwh/internal/cli/output"
)

// queryResult is a fully read result set.
type queryResult struct {
	Columns []string
	Rows    [][]any
}

func collectRows(rows *sql.Rows) (*queryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &queryResult{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			// []byte reads better as text
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func renderResult(r *output.Renderer, result *queryResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		records := make([]map[string]any, len(result.Rows))
		for i, row := range result.Rows {
			rec := make(map[string]any, len(result.Columns))
			for j, col := range result.Columns {
				rec[col] = row[j]
			}
			records[i] = rec
		}
		return r.JSON(records)
	}

	if len(result.Rows) == 0 {
		r.Muted("(0 rows)")
		return nil
	}

	rows := make([][]any, len(result.Rows))
	for i, row := range result.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = formatValue(v)
		}
		rows[i] = cells
	}
	r.Table(result.Columns, rows)
	r.Muted(fmt.Sprintf("(%d rows)", len(result.Rows)))
	return nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return v.UTC().Format("2006-01-02 15:04:05.000")
	default:
		return fmt.Sprintf("%v", v)
	}
}
