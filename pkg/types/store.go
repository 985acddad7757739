package types

import "errors"

// Store defines the interface for backend-agnostic persistence of the
// registry state. Callers attach to a backend, load or save whole snapshots,
// and detach when done.
type Store interface {
	// Attach connects the Store to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, Load and Save return ErrStoreDetached.
	Detach() error

	// Load returns the persisted snapshot. A backend that has never been
	// saved to returns an empty snapshot, not an error.
	Load() (*Snapshot, error)

	// Save replaces the persisted state with snap. Either the whole snapshot
	// is written or nothing is.
	Save(snap *Snapshot) error
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
