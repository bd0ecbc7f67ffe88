package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code and message so wrapped sentinels compare equal.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeSynthesisFailure = "SYNTHESIS_FAILURE"
	ErrCodeExecutionFailure = "EXECUTION_FAILURE"
	ErrCodeConfiguration    = "CONFIGURATION_FAILURE"
)

// Validation errors
var (
	ErrEmptyQuestion   = NewDomainError(ErrCodeValidation, "question is required")
	ErrQuestionTooLong = NewDomainError(ErrCodeValidation, "question is too long")
)

// Not found errors
var (
	ErrConceptNotFound = NewDomainError(ErrCodeNotFound, "concept not found")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Pipeline errors. These are recorded on results and logged, never returned to callers of Ask.
var (
	ErrSynthesisFailure = NewDomainError(ErrCodeSynthesisFailure, "generative step failed")
	ErrExecutionFailure = NewDomainError(ErrCodeExecutionFailure, "graph query failed")
	ErrGraphNotLoaded   = NewDomainError(ErrCodeUnavailable, "curriculum graph is not loaded")
)
