package shared

import (
	"errors"
	"fmt"
)

// Error codes shared across the engine
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeConsistencyFailure  = "CONSISTENCY_FAILURE"
	CodeInvalidState        = "INVALID_STATE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so callers can write
// errors.Is(err, shared.ErrNotFound) against a more specific message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrConsistencyFailure  = NewDomainError(CodeConsistencyFailure, "Operation failed part way and was rolled back")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
)

// NewValidationError creates a validation error with a formatted reason
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError creates a not-found error naming the missing resource
func NewNotFoundError(resource, ref string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %q not found", resource, ref))
}

// ConsistencyError reports that a multi-step operation failed after it started
// mutating state. The transaction has been rolled back; the caller must inspect
// the ledger before retrying.
type ConsistencyError struct {
	Operation string
	Reference string
	Cause     error
}

// NewConsistencyError wraps cause as a consistency failure of operation
func NewConsistencyError(operation, reference string, cause error) *ConsistencyError {
	return &ConsistencyError{Operation: operation, Reference: reference, Cause: cause}
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s %s failed and was rolled back: %v", e.Operation, e.Reference, e.Cause)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrConsistencyFailure) match
func (e *ConsistencyError) Is(target error) bool {
	return target == ErrConsistencyFailure
}

// IsDomainError reports whether err is a validation, not-found or conflict
// error that callers should see verbatim.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// Warning codes
const (
	WarnUnresolvedItem = "UNRESOLVED_ITEM"
	WarnSkippedLine    = "SKIPPED_LINE"
	WarnManualReturn   = "MANUAL_RETURN"
)

// Warning is a non-fatal degradation of accuracy reported alongside a result
type Warning struct {
	Code    string `json:"code"`
	Line    int    `json:"line"`
	Item    string `json:"item,omitempty"`
	Message string `json:"message"`
}
