package chain

import (
	"errors"
	"fmt"
)

// LedgerError is an error surfaced by append or read operations.
//
// Ledger errors include:
//   - Validation: payload out of domain (percent range, future date, blanks)
//   - Duplicate record: a progress report already exists for that date
//   - Scope not found: the referenced project is not registered
//   - Storage: the persistence layer failed
//
// Verification problems are deliberately NOT errors; they are Findings on a
// VerificationResult.
type LedgerError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Scope identifies the affected chain, when known.
	Scope string

	// Details contains additional context.
	Details map[string]string

	// cause is the wrapped underlying error (storage failures).
	cause error
}

// ErrorCode categorizes ledger errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates a malformed or out-of-range payload.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeDuplicateRecord indicates a progress report already exists
	// for the same project and report date.
	ErrCodeDuplicateRecord ErrorCode = "DUPLICATE_RECORD"

	// ErrCodeScopeNotFound indicates the referenced project is absent.
	ErrCodeScopeNotFound ErrorCode = "SCOPE_NOT_FOUND"

	// ErrCodeStorage indicates a persistence failure.
	ErrCodeStorage ErrorCode = "STORAGE"
)

// Error implements the error interface.
func (e *LedgerError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("%s: %s (scope=%s)", e.Code, e.Message, e.Scope)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *LedgerError) Unwrap() error {
	return e.cause
}

// IsValidationError reports whether err is a validation error.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsDuplicateRecordError reports whether err is a duplicate-record error.
func IsDuplicateRecordError(err error) bool {
	return hasCode(err, ErrCodeDuplicateRecord)
}

// IsScopeNotFoundError reports whether err is a scope-not-found error.
func IsScopeNotFoundError(err error) bool {
	return hasCode(err, ErrCodeScopeNotFound)
}

// IsStorageError reports whether err is a storage error.
func IsStorageError(err error) bool {
	return hasCode(err, ErrCodeStorage)
}

func hasCode(err error, code ErrorCode) bool {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// NewValidationError creates a LedgerError for an out-of-domain payload.
func NewValidationError(scope Scope, message string) *LedgerError {
	return &LedgerError{
		Code:    ErrCodeValidation,
		Message: message,
		Scope:   scope.String(),
	}
}

// NewDuplicateRecordError creates a LedgerError for an already-reported
// project and date pair.
func NewDuplicateRecordError(scope Scope, reportDate string) *LedgerError {
	return &LedgerError{
		Code:    ErrCodeDuplicateRecord,
		Message: fmt.Sprintf("progress already reported for %s", reportDate),
		Scope:   scope.String(),
		Details: map[string]string{"report_date": reportDate},
	}
}

// NewScopeNotFoundError creates a LedgerError for an unregistered project.
func NewScopeNotFoundError(scope Scope) *LedgerError {
	return &LedgerError{
		Code:    ErrCodeScopeNotFound,
		Message: "project is not registered",
		Scope:   scope.String(),
	}
}

// NewStorageError wraps a persistence failure.
func NewStorageError(scope Scope, op string, cause error) *LedgerError {
	return &LedgerError{
		Code:    ErrCodeStorage,
		Message: fmt.Sprintf("%s failed: %v", op, cause),
		Scope:   scope.String(),
		cause:   cause,
	}
}
