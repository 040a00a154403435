// Package dialect provides the Amazon Redshift SQL dialect definition.
// This package is lightweight and has no database driver dependencies,
// so plans can be rendered without a warehouse connection.
package dialect

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdwh/pkg/core"
	"github.com/leapstack-labs/leapdwh/pkg/dialect"
)

func init() {
	dialect.Register(Redshift)
}

// redshiftReservedWords contains the Redshift reserved words likely to
// collide with warehouse column and table names.
var redshiftReservedWords = []string{
	"all", "and", "any", "as", "asc", "between", "both", "case", "cast",
	"check", "column", "constraint", "create", "cross", "current_date",
	"current_time", "current_timestamp", "current_user", "default", "desc",
	"distinct", "do", "else", "end", "except", "false", "for", "foreign",
	"from", "full", "grant", "group", "having", "in", "inner", "intersect",
	"into", "is", "join", "leading", "left", "like", "limit", "localtime",
	"new", "not", "null", "off", "offset", "old", "on", "only", "or",
	"order", "outer", "primary", "references", "right", "select",
	"session_user", "similar", "table", "then", "time", "to", "trailing",
	"true", "union", "unique", "user", "using", "when", "where", "with",
}

// Redshift is the Amazon Redshift dialect configuration.
var Redshift = dialect.NewDialect("redshift").
	Identifiers(`"`, `"`, `""`).
	DefaultSchema("public").
	PlaceholderStyle(dialect.PlaceholderDollar).
	WithReservedWords(redshiftReservedWords...).
	SizedText(true).
	LayoutHints(true).
	Identity(dialect.IdentityClause).
	EpochMillis(func(arg string) string {
		return "TIMESTAMP 'epoch' + " + arg + " / 1000.0 * INTERVAL '1 second'"
	}).
	Copy(renderCopy, false).
	Build()

// renderCopy renders COPY ... FORMAT AS JSON. Redshift reads the JSON-path
// mapping file from S3 itself.
func renderCopy(d *dialect.Dialect, src core.CopySource, table *core.TableDef) (string, error) {
	if src.Credential == "" {
		return "", fmt.Errorf("copy %s: missing IAM role credential", src.Name)
	}

	format := "'auto'"
	if !src.Format.Auto() {
		format = d.Literal(src.Format.PathsFile)
	}

	lines := []string{
		"COPY " + d.QuoteIdentifierIfNeeded(table.Name),
		"FROM " + d.Literal(src.Location),
		"CREDENTIALS " + d.Literal("aws_iam_role="+src.Credential),
		"FORMAT AS JSON " + format,
	}
	if src.Region != "" {
		lines = append(lines, "REGION "+d.Literal(src.Region))
	}
	return strings.Join(lines, "\n"), nil
}
