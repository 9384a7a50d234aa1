package errors

import (
	"errors"
	"fmt"
)

// ObserverError is the structured error type for folder-observer.
// It carries enough context to decide whether the watch loop may continue
// and to render a useful message on the CLI.
type ObserverError struct {
	// Code is the unique error code (e.g., "ERR_203_RENAME_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *ObserverError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ObserverError) Unwrap() error {
	return e.Cause
}

// Is matches by code so that errors.Is(err, &ObserverError{Code: ...}) works.
func (e *ObserverError) Is(target error) bool {
	if t, ok := target.(*ObserverError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *ObserverError) WithDetail(key, value string) *ObserverError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *ObserverError) WithSuggestion(suggestion string) *ObserverError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ObserverError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *ObserverError {
	return &ObserverError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an ObserverError from an existing error.
func Wrap(code string, err error) *ObserverError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error. Configuration errors are fatal.
func ConfigError(message string, cause error) *ObserverError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation error.
func ValidationError(message string, cause error) *ObserverError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *ObserverError {
	return New(ErrCodeInternal, message, cause)
}

// As finds the first ObserverError in err's chain.
func As(err error) (*ObserverError, bool) {
	var oe *ObserverError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

// HasCode reports whether any ObserverError in err's chain has the given code.
func HasCode(err error, code string) bool {
	return errors.Is(err, &ObserverError{Code: code})
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if oe, ok := As(err); ok {
		return oe.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if oe, ok := As(err); ok {
		return oe.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code, or "" if err is not an ObserverError.
func GetCode(err error) string {
	if oe, ok := As(err); ok {
		return oe.Code
	}
	return ""
}

// GetCategory extracts the category, or "" if err is not an ObserverError.
func GetCategory(err error) Category {
	if oe, ok := As(err); ok {
		return oe.Category
	}
	return ""
}
