// Package duckdb provides a DuckDB warehouse adapter.
//
// This file registers the DuckDB adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/leapdwh/pkg/adapters/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/leapdwh/pkg/adapter"
)

func init() {
	adapter.Register(adapter.Target{
		Type: "duckdb",
		New:  func(logger *slog.Logger) adapter.Adapter { return New(logger) },
	})
}
