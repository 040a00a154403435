// Package transform holds the rules that populate the star schema from the
// staging tables, and renders them for a backend.
package transform

import (
	"fmt"

	"github.com/leapstack-labs/leapdwh/pkg/core"
	"github.com/leapstack-labs/leapdwh/pkg/dialect"
)

// Engine renders the transform rules against a schema.
type Engine struct {
	schema  core.SchemaLookup
	dialect *dialect.Dialect
	rules   []core.Transform
}

// New creates an engine over the built-in rules.
func New(schema core.SchemaLookup, d *dialect.Dialect) *Engine {
	return &Engine{
		schema:  schema,
		dialect: d,
		rules:   Rules(),
	}
}

// Rules returns a copy of the built-in transform rules in execution order.
func Rules() []core.Transform {
	return append([]core.Transform(nil), rules...)
}

// Plan renders one INSERT ... SELECT per rule.
func (e *Engine) Plan() ([]core.Statement, error) {
	stmts := make([]core.Statement, 0, len(e.rules))
	for i := range e.rules {
		tr := &e.rules[i]
		sql, err := e.dialect.Insert(tr, e.schema)
		if err != nil {
			return nil, fmt.Errorf("failed to render transform: %w", err)
		}
		stmts = append(stmts, core.Statement{
			Stage: core.StageTransform,
			Kind:  core.StatementInsert,
			Name:  "insert " + tr.Target,
			Table: tr.Target,
			SQL:   sql,
		})
	}
	return stmts, nil
}
