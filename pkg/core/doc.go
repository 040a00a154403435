// Package core defines the shared language of the leapdwh system.
//
// This package contains:
//   - Schema descriptors (TableDef, ColumnDef)
//   - Load and transform descriptors (CopySource, Transform)
//   - Executable statements and their errors (Statement, StatementError)
//   - Service interfaces (Adapter, Store)
//   - Configuration types (TargetConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
