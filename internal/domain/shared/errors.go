// Package shared contains common domain types and errors that are used
// across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrExpired         = errors.New("expired")

	// Invariant violations: fatal for the entity being processed,
	// must never crash a whole scan batch.
	ErrInvariantViolation = errors.New("invariant violation")

	// External service / persistence errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "event", "category", "user"
	Op      string // Operation that failed, e.g., "Enroll", "FormQueue"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Event domain errors
var (
	ErrEventNotFound        = NewDomainError("event", "Find", ErrNotFound, "event not found")
	ErrEventAlreadyFormed   = NewDomainError("event", "Mutate", ErrInvalidState, "queue is already formed")
	ErrParticipantEnrolled  = NewDomainError("event", "Enroll", ErrAlreadyExists, "participant already enrolled")
	ErrParticipantNotInList = NewDomainError("event", "Withdraw", ErrNotFound, "participant is not enrolled")
	ErrNotGroupMember       = NewDomainError("event", "Enroll", ErrValidation, "participant does not belong to the event group")
	ErrPhaseTransition      = NewDomainError("event", "Transition", ErrStateTransition, "illegal event phase transition")
)

// Category domain errors
var (
	ErrCategoryNotFound   = NewDomainError("category", "Find", ErrNotFound, "event category not found")
	ErrCategoryMissing    = NewDomainError("category", "FormQueue", ErrInvariantViolation, "event references a missing category")
	ErrDuplicateCarryOver = NewDomainError("category", "Validate", ErrInvariantViolation, "carry-over list contains duplicates")
	ErrInvalidCutoff      = NewDomainError("category", "MarkUnfinished", ErrValueOutOfRange, "cutoff position must be a positive integer")
)

// User domain errors
var (
	ErrUserNotFound = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrInvalidUser  = NewDomainError("user", "Validate", ErrInvalidEntity, "invalid user")
)

// Group domain errors
var (
	ErrGroupNotFound    = NewDomainError("group", "Find", ErrNotFound, "group not found")
	ErrSubgroupNotFound = NewDomainError("group", "Find", ErrNotFound, "subgroup not found")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
// Validation errors are surfaced to the caller and never retried.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsInvariantViolation checks if the error marks broken data that needs
// operator attention. The offending entity is skipped, not retried.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

// IsRetryable checks if the operation can be retried on the next scan cycle.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrTimeout)
}
