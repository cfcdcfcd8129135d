package errors

import (
	stderrors "errors"
	"fmt"
)

// PantryError is the structured error type for pantry.
type PantryError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried by the caller.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *PantryError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *PantryError) Unwrap() error {
	return e.Cause
}

// Is matches another PantryError by code, so sentinel errors work with errors.Is.
func (e *PantryError) Is(target error) bool {
	if t, ok := target.(*PantryError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *PantryError) WithDetail(key, value string) *PantryError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *PantryError) WithSuggestion(suggestion string) *PantryError {
	e.Suggestion = suggestion
	return e
}

// New creates a new PantryError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *PantryError {
	return &PantryError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a PantryError from an existing error.
func Wrap(code string, err error) *PantryError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *PantryError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *PantryError {
	return New(ErrCodeFileNotFound, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *PantryError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *PantryError {
	return New(ErrCodeInternal, message, cause)
}

// As finds the first PantryError in err's chain.
func As(err error) (*PantryError, bool) {
	var pe *PantryError
	if stderrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if pe, ok := As(err); ok {
		return pe.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if pe, ok := As(err); ok {
		return pe.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a PantryError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	if pe, ok := As(err); ok {
		return pe.Code
	}
	return ""
}

// GetCategory extracts the category from a PantryError.
func GetCategory(err error) Category {
	if pe, ok := As(err); ok {
		return pe.Category
	}
	return ""
}
