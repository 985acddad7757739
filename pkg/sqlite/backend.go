// Package sqlite provides the public API for the SQLite registry store.
// This package exposes the factory function for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import (
	"github.com/baedrik/skulls2/internal/sqlite"
	"github.com/baedrik/skulls2/pkg/types"
)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".skulls-db",
//	})
//	defer backend.Detach()
func NewBackend() types.Store {
	return sqlite.NewBackend()
}

// ExportJSONL writes snap to path as a JSONL snapshot, atomically.
func ExportJSONL(path string, snap *types.Snapshot) error {
	return sqlite.ExportJSONL(path, snap)
}

// ImportJSONL reads a JSONL snapshot written by ExportJSONL.
func ImportJSONL(path string) (*types.Snapshot, error) {
	return sqlite.ImportJSONL(path)
}
