package engine

import "fmt"

// ValidationError is a malformed-input rejection: unknown symbol,
// non-positive quantity, missing limit price, scale violation, duplicate
// id. It never mutates a book.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid order: " + e.Reason
}

// InvariantViolation is a fatal, non-recoverable condition - a crossed
// book after a mutation, negative remaining, a duplicate trade id. It is
// carried as the payload of a panic rather than returned, since the
// specification treats it as a bug, not a runtime condition.
type InvariantViolation struct {
	Reason string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s (%s)", e.Reason, e.Detail)
}
