// Package catalog declares the warehouse tables: two staging tables that
// mirror the raw JSON sources and the star schema built from them.
package catalog

import (
	"github.com/leapstack-labs/leapdwh/pkg/core"
	"github.com/leapstack-labs/leapdwh/pkg/dialect"
)

// Catalog is an ordered set of table definitions.
type Catalog struct {
	tables []*core.TableDef
	byName map[string]*core.TableDef
}

// New returns the catalog of the seven warehouse tables.
func New() *Catalog {
	c := &Catalog{byName: make(map[string]*core.TableDef, len(tables))}
	for _, t := range tables {
		cp := *t
		cp.Columns = append([]core.ColumnDef(nil), t.Columns...)
		c.tables = append(c.tables, &cp)
		c.byName[cp.Name] = &cp
	}
	return c
}

// Tables returns every table in creation order.
func (c *Catalog) Tables() []*core.TableDef {
	return c.tables
}

// Lookup returns the named table.
func (c *Catalog) Lookup(name string) (*core.TableDef, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// Staging returns the staging tables.
func (c *Catalog) Staging() []*core.TableDef {
	return c.filter(func(t *core.TableDef) bool { return t.Kind == core.KindStaging })
}

// Dimensional returns the fact and dimension tables.
func (c *Catalog) Dimensional() []*core.TableDef {
	return c.filter(func(t *core.TableDef) bool { return t.Kind != core.KindStaging })
}

func (c *Catalog) filter(keep func(*core.TableDef) bool) []*core.TableDef {
	var out []*core.TableDef
	for _, t := range c.tables {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// DropPlan renders "drop if exists" statements for every table.
func (c *Catalog) DropPlan(d *dialect.Dialect) []core.Statement {
	var stmts []core.Statement
	for _, t := range c.tables {
		for _, sql := range d.DropTable(t) {
			stmts = append(stmts, core.Statement{
				Stage: core.StageReset,
				Kind:  core.StatementDrop,
				Name:  "drop " + t.Name,
				Table: t.Name,
				SQL:   sql,
			})
		}
	}
	return stmts
}

// CreatePlan renders create statements for every table.
func (c *Catalog) CreatePlan(d *dialect.Dialect) []core.Statement {
	var stmts []core.Statement
	for _, t := range c.tables {
		for _, sql := range d.CreateTable(t) {
			stmts = append(stmts, core.Statement{
				Stage: core.StageReset,
				Kind:  core.StatementCreate,
				Name:  "create " + t.Name,
				Table: t.Name,
				SQL:   sql,
			})
		}
	}
	return stmts
}

// ResetPlan renders every drop followed by every create.
func (c *Catalog) ResetPlan(d *dialect.Dialect) []core.Statement {
	return append(c.DropPlan(d), c.CreatePlan(d)...)
}
