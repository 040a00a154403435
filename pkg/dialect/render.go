package dialect

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdwh/pkg/core"
)

const indent = "    "

// DropTable renders the statements removing a table and anything created
// alongside it. Missing objects are not an error.
func (d *Dialect) DropTable(t *core.TableDef) []string {
	stmts := []string{"DROP TABLE IF EXISTS " + d.QuoteIdentifierIfNeeded(t.Name)}
	if d.identity == IdentitySequence {
		for _, c := range t.Columns {
			if c.Identity {
				stmts = append(stmts, "DROP SEQUENCE IF EXISTS "+SequenceName(t.Name, c.Name))
			}
		}
	}
	return stmts
}

// CreateTable renders the statements creating a table.
func (d *Dialect) CreateTable(t *core.TableDef) []string {
	var stmts []string

	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if c.Identity && d.identity == IdentitySequence {
			stmts = append(stmts, fmt.Sprintf("CREATE SEQUENCE %s MINVALUE 0 START 0", SequenceName(t.Name, c.Name)))
		}
		cols[i] = indent + d.columnDef(t.Name, c)
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(d.QuoteIdentifierIfNeeded(t.Name))
	sb.WriteString(" (\n")
	sb.WriteString(strings.Join(cols, ",\n"))
	sb.WriteString("\n)")
	if d.layoutHints && t.DistStyle != core.DistDefault {
		sb.WriteString(" DISTSTYLE ")
		sb.WriteString(string(t.DistStyle))
	}

	return append(stmts, sb.String())
}

func (d *Dialect) columnDef(table string, c core.ColumnDef) string {
	parts := []string{d.QuoteIdentifierIfNeeded(c.Name), d.TypeName(c)}
	if c.Identity && d.identity == IdentityClause {
		parts = append(parts, "IDENTITY(0, 1)")
	}
	if c.NotNull && !c.PrimaryKey {
		parts = append(parts, "NOT NULL")
	}
	if c.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	if c.Identity && d.identity == IdentitySequence {
		parts = append(parts, fmt.Sprintf("DEFAULT nextval('%s')", SequenceName(table, c.Name)))
	}
	if c.SortKey && d.layoutHints {
		parts = append(parts, "SORTKEY")
	}
	return strings.Join(parts, " ")
}

// Copy renders a bulk copy of src into table.
func (d *Dialect) Copy(src core.CopySource, table *core.TableDef) (string, error) {
	if d.copyFn == nil {
		return "", fmt.Errorf("dialect %s does not support bulk copy", d.Name)
	}
	if src.Location == "" {
		return "", fmt.Errorf("copy %s: source location is empty", src.Name)
	}
	return d.copyFn(d, src, table)
}

// Insert renders a transform as INSERT ... SELECT.
func (d *Dialect) Insert(tr *core.Transform, schema core.SchemaLookup) (string, error) {
	target, ok := schema.Lookup(tr.Target)
	if !ok {
		return "", fmt.Errorf("transform %s: unknown target table %s", tr.Name, tr.Target)
	}
	r := &insertRenderer{d: d, tr: tr, schema: schema, rels: tr.Relations()}

	exprs := make([]string, len(tr.Select))
	for i, p := range tr.Select {
		col, ok := target.Column(p.Column)
		if !ok {
			return "", fmt.Errorf("transform %s: unknown column %s.%s", tr.Name, tr.Target, p.Column)
		}
		e, err := r.projection(p.Expr, col)
		if err != nil {
			return "", fmt.Errorf("transform %s: column %s: %w", tr.Name, p.Column, err)
		}
		exprs[i] = e
	}

	from, err := r.from()
	if err != nil {
		return "", fmt.Errorf("transform %s: %w", tr.Name, err)
	}

	cols := make([]string, len(tr.Select))
	for i, p := range tr.Select {
		cols[i] = d.QuoteIdentifierIfNeeded(p.Column)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s)\n", d.QuoteIdentifierIfNeeded(target.Name), strings.Join(cols, ", "))

	if tr.Dedupe == nil {
		sb.WriteString("SELECT")
		if tr.Distinct {
			sb.WriteString(" DISTINCT")
		}
		sb.WriteString("\n")
		sb.WriteString(indent + strings.Join(exprs, ",\n"+indent))
		sb.WriteString("\n")
		sb.WriteString(from)
		return sb.String(), nil
	}

	window, err := r.window(tr.Dedupe)
	if err != nil {
		return "", fmt.Errorf("transform %s: %w", tr.Name, err)
	}
	inner := make([]string, 0, len(exprs)+1)
	for i, e := range exprs {
		inner = append(inner, e+" AS "+cols[i])
	}
	inner = append(inner, window+" AS row_rank")

	fmt.Fprintf(&sb, "SELECT %s\nFROM (\n", strings.Join(cols, ", "))
	sb.WriteString(indent + "SELECT\n")
	sb.WriteString(indent + indent + strings.Join(inner, ",\n"+indent+indent))
	sb.WriteString("\n")
	for _, line := range strings.Split(from, "\n") {
		sb.WriteString(indent + line + "\n")
	}
	sb.WriteString(") ranked\nWHERE row_rank = 1")
	return sb.String(), nil
}

type insertRenderer struct {
	d      *Dialect
	tr     *core.Transform
	schema core.SchemaLookup
	rels   map[string]core.Relation
}

func (r *insertRenderer) from() (string, error) {
	if _, ok := r.schema.Lookup(r.tr.From.Table); !ok {
		return "", fmt.Errorf("unknown source table %s", r.tr.From.Table)
	}

	lines := []string{"FROM " + r.relation(r.tr.From)}
	for _, j := range r.tr.Joins {
		if _, ok := r.schema.Lookup(j.Relation.Table); !ok {
			return "", fmt.Errorf("unknown source table %s", j.Relation.Table)
		}
		conds := make([]string, len(j.On))
		for i, on := range j.On {
			left, err := r.expr(on.Left)
			if err != nil {
				return "", err
			}
			right, err := r.expr(on.Right)
			if err != nil {
				return "", err
			}
			conds[i] = left + " = " + right
		}
		lines = append(lines, fmt.Sprintf("%s JOIN %s ON %s", j.Kind, r.relation(j.Relation), strings.Join(conds, " AND ")))
	}

	for i, p := range r.tr.Where {
		cond, err := r.predicate(p)
		if err != nil {
			return "", err
		}
		kw := "WHERE "
		if i > 0 {
			kw = indent + "AND "
		}
		lines = append(lines, kw+cond)
	}
	return strings.Join(lines, "\n"), nil
}

func (r *insertRenderer) relation(rel core.Relation) string {
	name := r.d.QuoteIdentifierIfNeeded(rel.Table)
	if rel.Alias == "" || rel.Alias == rel.Table {
		return name
	}
	return name + " " + rel.Alias
}

func (r *insertRenderer) window(dd *core.Dedupe) (string, error) {
	if len(dd.Key) == 0 {
		return "", fmt.Errorf("dedupe needs at least one key")
	}
	keys := make([]string, len(dd.Key))
	for i, k := range dd.Key {
		e, err := r.expr(k)
		if err != nil {
			return "", err
		}
		keys[i] = e
	}

	// ORDER BY is mandatory for ROW_NUMBER on some backends.
	order := keys
	if len(dd.Prefer) > 0 {
		order = make([]string, len(dd.Prefer))
		for i, o := range dd.Prefer {
			e, err := r.expr(o.Expr)
			if err != nil {
				return "", err
			}
			if o.Desc {
				e += " DESC"
			}
			order[i] = e
		}
	}
	return fmt.Sprintf("ROW_NUMBER() OVER (PARTITION BY %s ORDER BY %s)",
		strings.Join(keys, ", "), strings.Join(order, ", ")), nil
}

func (r *insertRenderer) predicate(p core.Predicate) (string, error) {
	switch p := p.(type) {
	case core.Equals:
		left, err := r.expr(p.Left)
		if err != nil {
			return "", err
		}
		return left + " = " + r.d.Literal(p.Value), nil
	case core.Present:
		col, err := r.expr(p.Arg)
		if err != nil {
			return "", err
		}
		typ, err := r.typeOf(p.Arg)
		if err != nil {
			return "", err
		}
		if typ.IsText() {
			return col + " IS NOT NULL AND " + col + " <> ''", nil
		}
		return col + " IS NOT NULL", nil
	default:
		return "", fmt.Errorf("unsupported predicate %T", p)
	}
}

// projection renders e converted to the type of the target column.
func (r *insertRenderer) projection(e core.Expr, target core.ColumnDef) (string, error) {
	sql, err := r.expr(e)
	if err != nil {
		return "", err
	}
	from, err := r.typeOf(e)
	if err != nil {
		return "", err
	}
	to := target.Type

	switch {
	case from == to, from.IsText() && to.IsText(), from.IsWhole() && to.IsWhole():
		return sql, nil
	case from == core.TypeFloat && to.IsWhole():
		// truncate toward zero; a plain cast rounds on most backends
		return fmt.Sprintf("CAST(TRUNC(%s) AS %s)", sql, r.d.TypeName(target)), nil
	default:
		return fmt.Sprintf("CAST(%s AS %s)", sql, r.d.TypeName(core.ColumnDef{Type: to})), nil
	}
}

func (r *insertRenderer) expr(e core.Expr) (string, error) {
	switch e := e.(type) {
	case core.Ref:
		if _, err := r.typeOf(e); err != nil {
			return "", err
		}
		col := r.d.QuoteIdentifierIfNeeded(e.Column)
		if e.Alias == "" {
			return col, nil
		}
		return e.Alias + "." + col, nil
	case core.EpochMillis:
		arg, err := r.expr(e.Arg)
		if err != nil {
			return "", err
		}
		return r.d.epochMillis(arg), nil
	case core.Extract:
		arg, err := r.expr(e.Arg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("EXTRACT(%s FROM %s)", e.Field, arg), nil
	default:
		return "", fmt.Errorf("unsupported expression %T", e)
	}
}

func (r *insertRenderer) typeOf(e core.Expr) (core.ColumnType, error) {
	switch e := e.(type) {
	case core.Ref:
		rel, ok := r.rels[e.Alias]
		if !ok {
			return 0, fmt.Errorf("unknown relation alias %q", e.Alias)
		}
		t, ok := r.schema.Lookup(rel.Table)
		if !ok {
			return 0, fmt.Errorf("unknown source table %s", rel.Table)
		}
		col, ok := t.Column(e.Column)
		if !ok {
			return 0, fmt.Errorf("unknown column %s.%s", rel.Table, e.Column)
		}
		return col.Type, nil
	case core.EpochMillis:
		return core.TypeTimestamp, nil
	case core.Extract:
		return core.TypeInteger, nil
	default:
		return 0, fmt.Errorf("unsupported expression %T", e)
	}
}
