package pipeline

import (
	"time"

	"github.com/leapstack-labs/leapdwh/pkg/core"
)

// EventKind identifies a progress event.
type EventKind string

// Progress events, in the order a run emits them.
const (
	EventRunStart          EventKind = "run_start"
	EventStateChange       EventKind = "state_change"
	EventStatementComplete EventKind = "statement_complete"
	EventRunComplete       EventKind = "run_complete"
)

// Event reports run progress. Fields not meaningful for a kind are zero.
type Event struct {
	Kind  EventKind
	RunID string
	Mode  Mode
	State State

	// statement_complete
	Seq       int
	Total     int
	Statement core.Statement
	Status    core.StatementStatus
	Rows      int64

	Duration time.Duration
	Counts   []TableCount
	Err      error
}

// Observer receives progress events synchronously, in order.
type Observer func(Event)
