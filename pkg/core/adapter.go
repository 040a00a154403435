package core

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotConnected is returned by adapters used before Connect.
var ErrNotConnected = errors.New("database connection not established")

// ErrTableNotFound is returned when a table has no columns in the catalog.
var ErrTableNotFound = errors.New("table not found")

// Execer executes statements that don't return rows.
type Execer interface {
	// Exec executes a statement and returns the number of rows affected.
	Exec(ctx context.Context, sql string) (int64, error)
}

// Tx is a backend transaction.
type Tx interface {
	Execer
	Commit() error
	Rollback() error
}

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	Execer

	// Connect establishes a connection to the database.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the database connection.
	Close() error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// Begin starts a transaction.
	Begin(ctx context.Context) (Tx, error)

	// GetTableMetadata retrieves metadata for a table.
	GetTableMetadata(ctx context.Context, table string) (*TableMetadata, error)

	// DialectName returns the name of the SQL dialect the backend speaks.
	DialectName() string
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// Column represents a column in a database table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// TableMetadata holds metadata about a database table.
type TableMetadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
