package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a unique field already holds the value being written.
	ErrDuplicate = errors.New("repository: duplicate key")
	// ErrEmptyUpdate rejects an update that carries no fields.
	ErrEmptyUpdate = errors.New("repository: empty update")
	// ErrProtectedField rejects an update touching a server-managed field.
	ErrProtectedField = errors.New("repository: protected field")
	// ErrInvalidTransition rejects a status move absent from the transition table.
	ErrInvalidTransition = errors.New("repository: invalid status transition")
	// ErrStatusMismatch indicates the entity's current status differs from the expected one.
	ErrStatusMismatch = errors.New("repository: status mismatch")
	// ErrNotStatusBearing signals a transition was requested on an entity without a status field.
	ErrNotStatusBearing = errors.New("repository: entity has no status")
	// ErrInvalidDocument indicates a stored or patched document could not be decoded.
	ErrInvalidDocument = errors.New("repository: invalid document")
)
