package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation  ErrorCategory = "validation"  // Invalid input or configuration
	ErrCatRateLimit   ErrorCategory = "rate_limit"  // Backend rate limited
	ErrCatNetwork     ErrorCategory = "network"     // Network connectivity
	ErrCatTimeout     ErrorCategory = "timeout"     // Operation timed out
	ErrCatUnparseable ErrorCategory = "unparseable" // Model output could not be parsed
	ErrCatCoverage    ErrorCategory = "coverage"    // Merged fragments omit or duplicate input ids
	ErrCatGeneration  ErrorCategory = "generation"  // Generation/dedup contract violated
	ErrCatPipeline    ErrorCategory = "pipeline"    // Whole-pipeline failure
	ErrCatStorage     ErrorCategory = "storage"     // Persistence collaborator failure
	ErrCatInternal    ErrorCategory = "internal"    // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatRateLimit,
		Code:      "RATE_LIMITED",
		Message:   message,
		Retryable: true,
	}
}

// ErrNetwork creates a network error.
func ErrNetwork(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatNetwork,
		Code:      "NETWORK",
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrUnparseable creates an unparseable-output error. The raw text is kept
// truncated in Details for diagnostics.
func ErrUnparseable(message, raw string) *DomainError {
	e := &DomainError{
		Category:  ErrCatUnparseable,
		Code:      "UNPARSEABLE",
		Message:   message,
		Retryable: false,
	}
	if raw != "" {
		e.WithDetail("raw", Truncate(raw, 500))
	}
	return e
}

// ErrCoverage creates a coverage error: the merged fragment set omits or
// duplicates input record ids.
func ErrCoverage(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatCoverage,
		Code:      "COVERAGE_GAP",
		Message:   message,
		Retryable: false,
	}
}

// ErrGeneration creates a generation/dedup contract error.
func ErrGeneration(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatGeneration,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrPipeline creates a whole-pipeline error.
func ErrPipeline(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatPipeline,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrStorage creates a persistence error.
func ErrStorage(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatStorage,
		Code:      "STORAGE",
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Truncate shortens a string to max bytes, marking the cut.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...[truncated]"
}

// Predefined error codes
const (
	CodeAllChunksFailed   = "ALL_CHUNKS_FAILED"
	CodeAllDuplicates     = "ALL_DUPLICATES"
	CodePhaseFailed       = "PHASE_FAILED"
	CodeNoTasks           = "NO_TASKS"
	CodeNoRecords         = "NO_RECORDS"
	CodeInvalidChunkSize  = "INVALID_CHUNK_SIZE"
	CodeEmptyCandidates   = "EMPTY_CANDIDATES"
	CodeInvalidScenario   = "INVALID_SCENARIO"
	CodeMissingPhaseInput = "MISSING_PHASE_INPUT"
)
