// Package apperr defines the sentinel errors shared across the service.
package apperr

import "errors"

var (
	// ErrNotFound is returned when a work or derivative edge does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateWork is returned when a work identifier is already registered.
	ErrDuplicateWork = errors.New("work already registered")
	// ErrDuplicateDerivative is returned when a child work already owns an edge.
	ErrDuplicateDerivative = errors.New("derivative already recorded")
	// ErrParentNotFound is returned when a derivative references an unregistered parent.
	ErrParentNotFound = errors.New("parent work not found")
	// ErrUpstream marks any collaborator call failure. Match with errors.Is;
	// the original cause stays reachable through Unwrap.
	ErrUpstream = errors.New("upstream failure")
	// ErrReentrancy is returned when a mutating entry point is re-entered
	// before the outer call has finished.
	ErrReentrancy = errors.New("reentrant call rejected")
	// ErrUnauthorized is returned when a capability check fails.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidConfig is returned when a runtime setting violates its bound.
	ErrInvalidConfig = errors.New("invalid configuration")

	// Batch distribution input errors.
	ErrLengthMismatch    = errors.New("recipients and amounts length mismatch")
	ErrEmptyBatch        = errors.New("empty batch")
	ErrBatchTooLarge     = errors.New("batch too large")
	ErrInvalidRecipient  = errors.New("invalid recipient")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSupplyCap is returned when a deposit would exceed the maximum supply.
	ErrSupplyCap = errors.New("supply cap exceeded")
)

// UpstreamError wraps a collaborator failure with the operation that failed.
// errors.Is reports true for ErrUpstream and for anything in the wrapped
// chain, so callers can match either the category or the root cause.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return "upstream " + e.Op + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }
