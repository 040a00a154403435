// Package pipeline runs the warehouse rebuild: drop and recreate every
// table, bulk load the staging tables, then populate the star schema.
//
// Statements run one at a time and each is committed before the next
// starts. The first failure stops the run; statements already committed
// stay committed and everything not reached is reported as skipped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/leapdwh/pkg/catalog"
	"github.com/leapstack-labs/leapdwh/pkg/core"
	"github.com/leapstack-labs/leapdwh/pkg/dialect"
)

// Mode selects which stages a run executes.
type Mode string

// Run modes.
const (
	// ModeLoad resets every table and fills the staging tables.
	ModeLoad Mode = "load"
	// ModeTransform populates the star schema from existing staging data.
	ModeTransform Mode = "transform"
	// ModeFull runs load then transform.
	ModeFull Mode = "full"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeLoad, ModeTransform, ModeFull:
		return m, nil
	}
	return "", fmt.Errorf("unknown run mode %q (expected load, transform or full)", s)
}

func (m Mode) loads() bool      { return m == ModeLoad || m == ModeFull }
func (m Mode) transforms() bool { return m == ModeTransform || m == ModeFull }

// ErrAlreadyTransformed is returned by a transform-only run when the star
// schema already holds rows. Inserting again would duplicate primary keys.
var ErrAlreadyTransformed = errors.New("dimensional tables already populated; run `load` first")

// LoadPlanner renders the bulk copies into the staging tables.
type LoadPlanner interface {
	Sources() []core.CopySource
	Plan(ctx context.Context) ([]core.Statement, error)
}

// TransformPlanner renders the inserts into the star schema.
type TransformPlanner interface {
	Plan() ([]core.Statement, error)
}

// Config holds everything a pipeline needs. It is built once by the
// caller and never consulted globally.
type Config struct {
	Adapter    core.Adapter
	Dialect    *dialect.Dialect
	Catalog    *catalog.Catalog
	Loader     LoadPlanner
	Transforms TransformPlanner

	// Store records run history when set.
	Store core.Store
	// Preflight checks the sources before a load when set.
	Preflight *Preflight
	// AtomicStages runs each stage in one transaction instead of
	// committing after every statement.
	AtomicStages bool
	// Observer receives progress events when set.
	Observer Observer
	// Target labels the run in history.
	Target string
	Logger *slog.Logger
}

// Pipeline executes runs against one warehouse.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Adapter == nil {
		return nil, errors.New("pipeline: adapter is required")
	}
	if cfg.Dialect == nil {
		return nil, errors.New("pipeline: dialect is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("pipeline: catalog is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{cfg: cfg, logger: logger}, nil
}

// StatementResult is the outcome of one planned statement.
type StatementResult struct {
	Seq       int
	Statement core.Statement
	Status    core.StatementStatus
	Rows      int64
	Duration  time.Duration
	Err       error

	// RolledBack marks statements that succeeded inside a stage
	// transaction that was later rolled back.
	RolledBack bool
}

// TableCount is the row count of a table after a run.
type TableCount struct {
	Table string
	Rows  int64
}

// Result describes a finished run.
type Result struct {
	RunID string
	Mode  Mode
	State State
	// Reached is the last state entered before the run failed, or Done.
	Reached    State
	Statements []StatementResult
	Counts     []TableCount
	Duration   time.Duration
	Err        error
}

// Failed returns the statement the run stopped at, if any.
func (r *Result) Failed() *StatementResult {
	for i := range r.Statements {
		if r.Statements[i].Status == core.StatementFailed {
			return &r.Statements[i]
		}
	}
	return nil
}

// Count returns the number of statements with the given status.
func (r *Result) Count(status core.StatementStatus) int {
	n := 0
	for _, s := range r.Statements {
		if s.Status == status {
			n++
		}
	}
	return n
}

// stage is a group of statements whose success moves the machine to next.
type stage struct {
	name  core.Stage
	stmts []core.Statement
	next  State
}

// Run executes a run in the given mode. The returned result is never nil;
// the error is the failure that stopped the run.
func (p *Pipeline) Run(ctx context.Context, mode Mode) (*Result, error) {
	start := time.Now()
	res := &Result{Mode: mode, State: StatePending, Reached: StatePending}

	p.logger.Info("starting run", "mode", mode, "target", p.cfg.Target)
	p.beginRecord(res)
	p.emit(Event{Kind: EventRunStart, RunID: res.RunID, Mode: mode, State: StatePending})

	m := newMachine(func(from, to State) {
		res.State = to
		if to != StateFailed {
			res.Reached = to
		}
		p.logger.Debug("state changed", "run_id", res.RunID, "from", from, "to", to)
		p.emit(Event{Kind: EventStateChange, RunID: res.RunID, Mode: mode, State: to})
	})

	err := p.run(ctx, mode, m, res)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		_ = m.advance(StateFailed)
		p.logger.Error("run failed", "run_id", res.RunID, "mode", mode, "reached", res.Reached, "error", err)
	} else {
		res.Counts = p.countTables(ctx, mode)
		p.logger.Info("run completed", "run_id", res.RunID, "mode", mode,
			"statements", len(res.Statements), "duration", res.Duration)
	}

	p.finishRecord(res)
	p.emit(Event{
		Kind:     EventRunComplete,
		RunID:    res.RunID,
		Mode:     mode,
		State:    res.State,
		Duration: res.Duration,
		Counts:   res.Counts,
		Err:      err,
	})
	return res, err
}

func (p *Pipeline) run(ctx context.Context, mode Mode, m *machine, res *Result) error {
	stages, err := p.plan(ctx, mode)
	if err != nil {
		return err
	}

	total := 0
	for _, st := range stages {
		total += len(st.stmts)
	}

	seq := 0
	if !mode.loads() {
		if err := p.checkTables(ctx); err != nil {
			for _, st := range stages {
				p.skip(st.stmts, &seq, total, res)
			}
			return err
		}
		if err := m.advance(StateLoaded); err != nil {
			return err
		}
	}

	for i, st := range stages {
		var err error
		if p.cfg.AtomicStages {
			err = p.execAtomic(ctx, st, &seq, total, res)
		} else {
			err = p.execEach(ctx, st, &seq, total, res)
		}
		if err != nil {
			for _, rest := range stages[i+1:] {
				p.skip(rest.stmts, &seq, total, res)
			}
			return err
		}
		if err := m.advance(st.next); err != nil {
			return err
		}
	}
	return m.advance(StateDone)
}

// plan renders every statement of the run before any is executed, so a
// rendering or preflight failure leaves the warehouse untouched.
func (p *Pipeline) plan(ctx context.Context, mode Mode) ([]stage, error) {
	var stages []stage

	if mode.loads() {
		if p.cfg.Loader == nil {
			return nil, errors.New("pipeline: loader is required for " + string(mode))
		}
		if p.cfg.Preflight != nil {
			if err := p.cfg.Preflight.Check(ctx, p.cfg.Loader.Sources()); err != nil {
				return nil, err
			}
		}
		loads, err := p.cfg.Loader.Plan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to plan load: %w", err)
		}
		stages = append(stages,
			stage{name: core.StageReset, stmts: p.cfg.Catalog.ResetPlan(p.cfg.Dialect), next: StateReset},
			stage{name: core.StageLoad, stmts: loads, next: StateLoaded},
		)
	}

	if mode.transforms() {
		if p.cfg.Transforms == nil {
			return nil, errors.New("pipeline: transforms are required for " + string(mode))
		}
		inserts, err := p.cfg.Transforms.Plan()
		if err != nil {
			return nil, fmt.Errorf("failed to plan transform: %w", err)
		}
		stages = append(stages, stage{name: core.StageTransform, stmts: inserts, next: StateTransformed})
	}

	return stages, nil
}

// checkTables verifies that a transform-only run has tables to read from
// and that the fact and dimension tables it writes to are still empty.
func (p *Pipeline) checkTables(ctx context.Context) error {
	var populated []string
	for _, t := range p.cfg.Catalog.Tables() {
		md, err := p.cfg.Adapter.GetTableMetadata(ctx, t.Name)
		if err != nil {
			if errors.Is(err, core.ErrTableNotFound) {
				return fmt.Errorf("transform requires a prior load: %w", err)
			}
			return fmt.Errorf("failed to inspect %s: %w", t.Name, err)
		}
		if t.Kind != core.KindStaging && md.RowCount > 0 {
			populated = append(populated, t.Name)
		}
	}
	if len(populated) > 0 {
		return fmt.Errorf("%w (%s)", ErrAlreadyTransformed, strings.Join(populated, ", "))
	}
	return nil
}

// execEach runs a stage with the adapter's autocommit.
func (p *Pipeline) execEach(ctx context.Context, st stage, seq *int, total int, res *Result) error {
	for i, stmt := range st.stmts {
		if err := p.exec(ctx, p.cfg.Adapter, stmt, seq, total, res); err != nil {
			p.skip(st.stmts[i+1:], seq, total, res)
			return err
		}
	}
	return nil
}

// execAtomic runs a stage inside a single transaction.
func (p *Pipeline) execAtomic(ctx context.Context, st stage, seq *int, total int, res *Result) error {
	tx, err := p.cfg.Adapter.Begin(ctx)
	if err != nil {
		p.skip(st.stmts, seq, total, res)
		return &core.StatementError{Stage: st.name, Name: "begin", Err: err}
	}

	first := len(res.Statements)
	for i, stmt := range st.stmts {
		if err := p.exec(ctx, tx, stmt, seq, total, res); err != nil {
			p.skip(st.stmts[i+1:], seq, total, res)
			p.rollback(tx, st.name, res.Statements[first:])
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		p.rollback(tx, st.name, res.Statements[first:])
		return &core.StatementError{Stage: st.name, Name: "commit", Err: err}
	}
	p.logger.Debug("stage committed", "stage", st.name, "statements", len(st.stmts))
	return nil
}

func (p *Pipeline) rollback(tx core.Tx, name core.Stage, results []StatementResult) {
	if err := tx.Rollback(); err != nil {
		p.logger.Warn("rollback failed", "stage", name, "error", err)
	}
	for i := range results {
		if results[i].Status == core.StatementSuccess {
			results[i].RolledBack = true
		}
	}
	p.logger.Info("stage rolled back", "stage", name)
}

func (p *Pipeline) exec(ctx context.Context, ex core.Execer, stmt core.Statement, seq *int, total int, res *Result) error {
	*seq++
	p.logger.Debug("executing statement", "stage", stmt.Stage, "name", stmt.Name, "sql", stmt.SQL)

	start := time.Now()
	rows, err := ex.Exec(ctx, stmt.SQL)
	r := StatementResult{
		Seq:       *seq,
		Statement: stmt,
		Status:    core.StatementSuccess,
		Rows:      rows,
		Duration:  time.Since(start),
	}
	if err != nil {
		r.Status = core.StatementFailed
		r.Rows = 0
		r.Err = &core.StatementError{Stage: stmt.Stage, Name: stmt.Name, Err: err}
	}
	p.complete(r, total, res)

	if err != nil {
		return r.Err
	}
	p.logger.Info("statement executed", "stage", stmt.Stage, "name", stmt.Name,
		"rows", rows, "duration", r.Duration)
	return nil
}

func (p *Pipeline) skip(stmts []core.Statement, seq *int, total int, res *Result) {
	for _, stmt := range stmts {
		*seq++
		p.complete(StatementResult{Seq: *seq, Statement: stmt, Status: core.StatementSkipped}, total, res)
	}
}

// complete records a statement outcome and reports it.
func (p *Pipeline) complete(r StatementResult, total int, res *Result) {
	res.Statements = append(res.Statements, r)
	p.recordStatement(res.RunID, r)
	p.emit(Event{
		Kind:      EventStatementComplete,
		RunID:     res.RunID,
		Mode:      res.Mode,
		State:     res.State,
		Seq:       r.Seq,
		Total:     total,
		Statement: r.Statement,
		Status:    r.Status,
		Rows:      r.Rows,
		Duration:  r.Duration,
		Err:       r.Err,
	})
}

// countTables reports row counts of the tables a run wrote to. Failures
// are logged and leave the table out.
func (p *Pipeline) countTables(ctx context.Context, mode Mode) []TableCount {
	var tables []*core.TableDef
	switch mode {
	case ModeLoad:
		tables = p.cfg.Catalog.Staging()
	case ModeTransform:
		tables = p.cfg.Catalog.Dimensional()
	default:
		tables = p.cfg.Catalog.Tables()
	}

	counts := make([]TableCount, 0, len(tables))
	for _, t := range tables {
		md, err := p.cfg.Adapter.GetTableMetadata(ctx, t.Name)
		if err != nil {
			p.logger.Warn("failed to count rows", "table", t.Name, "error", err)
			continue
		}
		counts = append(counts, TableCount{Table: t.Name, Rows: md.RowCount})
	}
	return counts
}

func (p *Pipeline) emit(ev Event) {
	if p.cfg.Observer != nil {
		p.cfg.Observer(ev)
	}
}
