// Package dialect renders schema, load and transform descriptors into the
// SQL of a concrete warehouse backend.
//
// Dialects are pure data plus a few rendering hooks; they carry no driver
// dependencies. Concrete dialects live in pkg/adapters/<name>/dialect and register
// themselves in init().
package dialect

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapdwh/pkg/core"
)

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

// Placeholder styles.
const (
	PlaceholderQuestion PlaceholderStyle = iota // ?
	PlaceholderDollar                           // $1, $2
)

// IdentityStyle defines how auto-incrementing surrogate keys are declared.
type IdentityStyle int

// Identity styles.
const (
	// IdentityClause declares the column with an inline IDENTITY(seed, step).
	IdentityClause IdentityStyle = iota
	// IdentitySequence backs the column with a separate sequence object.
	IdentitySequence
)

// CopyFunc renders a bulk copy of src into table.
type CopyFunc func(d *Dialect, src core.CopySource, table *core.TableDef) (string, error)

// Dialect represents a warehouse SQL dialect.
type Dialect struct {
	Name string

	// Identifier quoting
	Quote    string
	QuoteEnd string
	Escape   string

	DefaultSchema string
	Placeholder   PlaceholderStyle

	reservedWords map[string]struct{}
	types         map[core.ColumnType]string
	sizedText     bool

	// layoutHints enables SORTKEY and DISTSTYLE clauses.
	layoutHints bool
	identity    IdentityStyle

	epochMillis func(arg string) string
	copyFn      CopyFunc

	// resolvePaths is set when the backend cannot read a JSON-path
	// mapping file itself.
	resolvePaths bool
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default:
		return "?"
	}
}

// IsReservedWord returns true if the word needs quoting when used as an identifier.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reservedWords[strings.ToLower(word)]
	return ok
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.QuoteEnd, d.Escape)
	return d.Quote + escaped + d.QuoteEnd
}

// QuoteIdentifierIfNeeded quotes an identifier only if it's a reserved word.
func (d *Dialect) QuoteIdentifierIfNeeded(name string) string {
	if d.IsReservedWord(name) {
		return d.QuoteIdentifier(name)
	}
	return name
}

// Literal renders a string literal.
func (d *Dialect) Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// TypeName returns the column type as declared in DDL.
func (d *Dialect) TypeName(col core.ColumnDef) string {
	name := d.types[col.Type]
	if d.sizedText && col.Type.IsText() && col.Length > 0 {
		return name + "(" + strconv.Itoa(col.Length) + ")"
	}
	return name
}

// ResolvesPaths reports whether the loader must resolve JSON paths for
// this dialect before rendering a copy.
func (d *Dialect) ResolvesPaths() bool {
	return d.resolvePaths
}

// SequenceName returns the name of the sequence backing an identity column.
func SequenceName(table, column string) string {
	return table + "_" + column + "_seq"
}

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with the given name.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name:          name,
			Quote:         `"`,
			QuoteEnd:      `"`,
			Escape:        `""`,
			reservedWords: make(map[string]struct{}),
			types: map[core.ColumnType]string{
				core.TypeString:    "VARCHAR",
				core.TypeChar:      "CHAR",
				core.TypeFloat:     "FLOAT",
				core.TypeInteger:   "INTEGER",
				core.TypeBigInt:    "BIGINT",
				core.TypeTimestamp: "TIMESTAMP",
			},
			epochMillis: func(arg string) string {
				return "TIMESTAMP 'epoch' + " + arg + " / 1000.0 * INTERVAL '1 second'"
			},
		},
	}
}

// Identifiers configures identifier quoting.
func (b *Builder) Identifiers(quote, quoteEnd, escape string) *Builder {
	b.dialect.Quote = quote
	b.dialect.QuoteEnd = quoteEnd
	b.dialect.Escape = escape
	return b
}

// DefaultSchema sets the default schema name.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets how query parameters are formatted.
func (b *Builder) PlaceholderStyle(style PlaceholderStyle) *Builder {
	b.dialect.Placeholder = style
	return b
}

// WithReservedWords registers words that need quoting when used as identifiers.
func (b *Builder) WithReservedWords(words ...string) *Builder {
	for _, w := range words {
		b.dialect.reservedWords[strings.ToLower(w)] = struct{}{}
	}
	return b
}

// Type overrides the DDL name of a semantic type.
func (b *Builder) Type(t core.ColumnType, name string) *Builder {
	b.dialect.types[t] = name
	return b
}

// SizedText appends declared lengths to text types, e.g. CHAR(1).
func (b *Builder) SizedText(enabled bool) *Builder {
	b.dialect.sizedText = enabled
	return b
}

// LayoutHints enables SORTKEY and DISTSTYLE clauses in DDL.
func (b *Builder) LayoutHints(enabled bool) *Builder {
	b.dialect.layoutHints = enabled
	return b
}

// Identity sets how surrogate keys are declared.
func (b *Builder) Identity(style IdentityStyle) *Builder {
	b.dialect.identity = style
	return b
}

// EpochMillis sets the expression converting millisecond epochs to timestamps.
func (b *Builder) EpochMillis(fn func(arg string) string) *Builder {
	b.dialect.epochMillis = fn
	return b
}

// Copy sets the bulk copy renderer. resolvePaths asks the loader to resolve
// JSON-path mapping files into CopySource.Paths before rendering.
func (b *Builder) Copy(fn CopyFunc, resolvePaths bool) *Builder {
	b.dialect.copyFn = fn
	b.dialect.resolvePaths = resolvePaths
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
