package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapdwh/pkg/core"
)

// RecordStatement stores the outcome of one statement. An empty ID is
// filled in.
func (s *SQLiteStore) RecordStatement(sr *core.StatementRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if sr.ID == "" {
		sr.ID = generateID()
	}
	if sr.StartedAt.IsZero() {
		sr.StartedAt = time.Now().UTC()
	}

	var errVal sql.NullString
	if sr.Error != "" {
		errVal = sql.NullString{String: sr.Error, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO statement_runs
			(id, run_id, stage, seq, name, status, rows_affected, duration_ms, error, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.ID, sr.RunID, string(sr.Stage), sr.Seq, sr.Name, string(sr.Status),
		sr.RowsAffected, sr.Duration.Milliseconds(), errVal, sr.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record statement: %w", err)
	}
	return nil
}

// GetStatementRuns returns the statements of a run in execution order.
func (s *SQLiteStore) GetStatementRuns(runID string) ([]*core.StatementRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, stage, seq, name, status, rows_affected, duration_ms, error, started_at
		FROM statement_runs WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get statement runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.StatementRun
	for rows.Next() {
		sr := &core.StatementRun{}
		var stage, status string
		var durationMS int64
		var errMsg sql.NullString
		if err := rows.Scan(&sr.ID, &sr.RunID, &stage, &sr.Seq, &sr.Name, &status,
			&sr.RowsAffected, &durationMS, &errMsg, &sr.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan statement run: %w", err)
		}
		sr.Stage = core.Stage(stage)
		sr.Status = core.StatementStatus(status)
		sr.Duration = time.Duration(durationMS) * time.Millisecond
		sr.Error = errMsg.String
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statement runs: %w", err)
	}
	return out, nil
}
