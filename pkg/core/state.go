package core

import "time"

// Store records pipeline runs and the outcome of each statement.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(mode, target string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, state, errMsg string) error
	GetLatestRun() (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	// Statement operations
	RecordStatement(sr *StatementRun) error
	GetStatementRuns(runID string) ([]*StatementRun, error)
}

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents a pipeline execution.
type Run struct {
	ID          string
	Mode        string
	Target      string
	Status      RunStatus
	State       string
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// StatementStatus represents the outcome of a single statement.
type StatementStatus string

// Statement statuses.
const (
	StatementSuccess StatementStatus = "success"
	StatementFailed  StatementStatus = "failed"
	StatementSkipped StatementStatus = "skipped"
)

// StatementRun records one statement of a run.
type StatementRun struct {
	ID           string
	RunID        string
	Stage        Stage
	Seq          int
	Name         string
	Status       StatementStatus
	RowsAffected int64
	Duration     time.Duration
	Error        string
	StartedAt    time.Time
}
