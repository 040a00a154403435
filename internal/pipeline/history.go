package pipeline

import (
	"time"

	"github.com/leapstack-labs/leapdwh/pkg/core"
)

// History writes are best effort: a broken store never fails a run.

func (p *Pipeline) beginRecord(res *Result) {
	if p.cfg.Store == nil {
		return
	}
	run, err := p.cfg.Store.CreateRun(string(res.Mode), p.cfg.Target)
	if err != nil {
		p.logger.Warn("failed to record run", "error", err)
		return
	}
	res.RunID = run.ID
	p.logger.Debug("created run", "run_id", run.ID)
}

func (p *Pipeline) recordStatement(runID string, r StatementResult) {
	if p.cfg.Store == nil || runID == "" {
		return
	}
	sr := &core.StatementRun{
		RunID:        runID,
		Stage:        r.Statement.Stage,
		Seq:          r.Seq,
		Name:         r.Statement.Name,
		Status:       r.Status,
		RowsAffected: r.Rows,
		Duration:     r.Duration,
		StartedAt:    time.Now().UTC().Add(-r.Duration),
	}
	if r.Err != nil {
		sr.Error = r.Err.Error()
	}
	if err := p.cfg.Store.RecordStatement(sr); err != nil {
		p.logger.Warn("failed to record statement", "run_id", runID, "name", r.Statement.Name, "error", err)
	}
}

func (p *Pipeline) finishRecord(res *Result) {
	if p.cfg.Store == nil || res.RunID == "" {
		return
	}
	status := core.RunStatusCompleted
	errMsg := ""
	if res.Err != nil {
		status = core.RunStatusFailed
		errMsg = res.Err.Error()
	}
	if err := p.cfg.Store.CompleteRun(res.RunID, status, string(res.State), errMsg); err != nil {
		p.logger.Warn("failed to complete run record", "run_id", res.RunID, "error", err)
	}
}
