// Package dialect provides the DuckDB SQL dialect definition.
// This package is lightweight and has no database driver dependencies.
package dialect

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdwh/pkg/core"
	"github.com/leapstack-labs/leapdwh/pkg/dialect"
)

func init() {
	dialect.Register(DuckDB)
}

var duckdbReservedWords = []string{
	"all", "analyse", "analyze", "and", "any", "array", "as", "asc",
	"asymmetric", "both", "case", "cast", "check", "collate", "column",
	"constraint", "create", "default", "deferrable", "desc", "describe",
	"distinct", "do", "else", "end", "except", "false", "fetch", "for",
	"foreign", "from", "grant", "group", "having", "in", "initially",
	"intersect", "into", "lateral", "leading", "limit", "not", "null",
	"offset", "on", "only", "or", "order", "pivot", "primary", "qualify",
	"references", "returning", "select", "show", "some", "summarize",
	"symmetric", "table", "then", "time", "to", "trailing", "true", "union",
	"unique", "unpivot", "user", "using", "variadic", "when", "where",
	"window", "with",
}

// DuckDB is the DuckDB dialect configuration.
var DuckDB = dialect.NewDialect("duckdb").
	Identifiers(`"`, `"`, `""`).
	DefaultSchema("main").
	PlaceholderStyle(dialect.PlaceholderQuestion).
	WithReservedWords(duckdbReservedWords...).
	Type(core.TypeChar, "VARCHAR").
	Type(core.TypeFloat, "DOUBLE").
	Identity(dialect.IdentitySequence).
	EpochMillis(func(arg string) string {
		return "epoch_ms(" + arg + ")"
	}).
	Copy(renderCopy, true).
	Build()

// renderCopy loads JSON documents with read_json_objects, extracting one
// path per column. Empty strings in non-text columns load as NULL.
func renderCopy(d *dialect.Dialect, src core.CopySource, table *core.TableDef) (string, error) {
	if len(src.Paths) != len(table.Columns) {
		return "", fmt.Errorf("copy %s: %d json paths for %d columns of %s",
			src.Name, len(src.Paths), len(table.Columns), table.Name)
	}

	cols := make([]string, len(table.Columns))
	exprs := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		cols[i] = d.QuoteIdentifierIfNeeded(c.Name)
		exprs[i] = extract(d, c, src.Paths[i])
	}

	return fmt.Sprintf("INSERT INTO %s (%s)\nSELECT\n    %s\nFROM read_json_objects(%s, format = 'auto')",
		d.QuoteIdentifierIfNeeded(table.Name),
		strings.Join(cols, ", "),
		strings.Join(exprs, ",\n    "),
		d.Literal(Glob(src.Location)),
	), nil
}

func extract(d *dialect.Dialect, c core.ColumnDef, path string) string {
	raw := fmt.Sprintf("json_extract_string(json, %s)", d.Literal(path))
	switch {
	case c.Type.IsText():
		return raw
	case c.Type.IsWhole():
		// integral JSON numbers may be written in exponent form
		return fmt.Sprintf("CAST(CAST(NULLIF(%s, '') AS DOUBLE) AS %s)", raw, d.TypeName(c))
	default:
		return fmt.Sprintf("CAST(NULLIF(%s, '') AS %s)", raw, d.TypeName(c))
	}
}

// Glob turns a source location into a file glob. A location naming a
// directory or key prefix matches every .json file beneath it.
func Glob(location string) string {
	if strings.ContainsAny(location, "*?[") || strings.HasSuffix(location, ".json") {
		return location
	}
	return strings.TrimSuffix(location, "/") + "/**/*.json"
}
