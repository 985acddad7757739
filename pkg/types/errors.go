package types

import "errors"

// Registry and engine errors. Every failed operation wraps exactly one of
// these so callers can branch with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicate             = errors.New("duplicate name")
	ErrOverflow              = errors.New("index capacity exceeded")
	ErrInvalidComposition    = errors.New("invalid composition")
	ErrConflictingDependency = errors.New("conflicting dependency")
	ErrUnauthorized          = errors.New("unauthorized")
)

// Request validation errors.
var (
	ErrInvalidName    = errors.New("invalid name")
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidData    = errors.New("invalid data")
)
