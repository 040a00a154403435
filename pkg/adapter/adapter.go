// Package adapter provides the warehouse adapter contract and the shared
// database/sql plumbing concrete adapters embed.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves with Register in init().
package adapter

import "github.com/leapstack-labs/leapdwh/pkg/core"

// Type aliases for the adapter contract defined in pkg/core.
type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Tx is an alias for core.Tx.
	Tx = core.Tx

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)
