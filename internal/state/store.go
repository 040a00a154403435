// Package state records pipeline run history in a local SQLite database.
// The history lives outside the warehouse and is never used to resume a run.
package state

import (
	"errors"

	"github.com/leapstack-labs/leapdwh/pkg/core"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Type aliases for the store contract defined in pkg/core.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// Run is an alias for core.Run.
	Run = core.Run

	// StatementRun is an alias for core.StatementRun.
	StatementRun = core.StatementRun
)
