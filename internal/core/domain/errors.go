package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStatusTimeout indicates a remote job stayed in progress for the
	// whole poll budget.
	ErrStatusTimeout = errors.New("status did not complete in time")

	// ErrUnexpectedStatus indicates a remote job reached a state other than
	// in progress or completed. It is never retried.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrUnknownStatus indicates the backend returned a status string with
	// no mapping. This is a protocol defect and is never retried.
	ErrUnknownStatus = errors.New("unknown status")

	// ErrRetriesExhausted indicates an action never produced an acceptable
	// result within its retry budget.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrMailboxClosed indicates a message was sent to a stopped actor.
	ErrMailboxClosed = errors.New("mailbox closed")

	// ErrLoadInProgress indicates a load is already running for the tenant.
	ErrLoadInProgress = errors.New("load in progress")

	// ErrUnsupportedStrategy indicates an unknown sync strategy name.
	ErrUnsupportedStrategy = errors.New("unsupported strategy")
)
