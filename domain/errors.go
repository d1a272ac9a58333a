package domain

import "errors"

// Domain-level errors shared across the command, projection and analysis paths.
var (
	// ErrInvalidTransition means an event is not a legal next step for the
	// aggregate's current status.
	ErrInvalidTransition = errors.New("invalid conversation transition")

	// ErrOwnershipViolation means an event names a conversation or actor that
	// does not match the aggregate it is applied to.
	ErrOwnershipViolation = errors.New("conversation ownership violation")

	// ErrUnknownEventKind means an event carries a type the aggregate does not
	// recognize. This is a programming or data error, not a user error.
	ErrUnknownEventKind = errors.New("unknown event type")

	// ErrConcurrencyConflict means another command persisted the same version
	// first. Callers should reload and retry.
	ErrConcurrencyConflict = errors.New("conversation version conflict")

	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists means a row with the same natural key already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrAnalysisUnavailable means the AI analyzer failed for the whole retry
	// budget.
	ErrAnalysisUnavailable = errors.New("risk analysis unavailable")
)
