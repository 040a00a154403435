package core

import "fmt"

// Stage is a phase of a pipeline run.
type Stage string

// Pipeline stages.
const (
	StageReset     Stage = "reset"
	StageLoad      Stage = "load"
	StageTransform Stage = "transform"
)

// StatementKind classifies an executable statement.
type StatementKind string

// Statement kinds.
const (
	StatementDrop   StatementKind = "drop"
	StatementCreate StatementKind = "create"
	StatementCopy   StatementKind = "copy"
	StatementInsert StatementKind = "insert"
)

// Statement is a single rendered SQL statement and where it came from.
type Statement struct {
	Stage Stage
	Kind  StatementKind

	// Name is a short human label, e.g. "create songplays".
	Name  string
	Table string
	SQL   string
}

// StatementError reports the statement a run stopped at.
type StatementError struct {
	Stage Stage
	Name  string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Name, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}
