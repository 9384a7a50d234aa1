// Package errors provides structured error handling for folder-observer.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Filesystem and relocation errors
//   - 3XX: Category lookup (network) errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates filesystem and relocation errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates category lookup errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates an unrecoverable error, the process must stop.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the watch loop continues.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound  = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid   = "ERR_102_CONFIG_INVALID"
	ErrCodeDestinationLoop = "ERR_103_DESTINATION_LOOP"
	ErrCodeSourceLocked    = "ERR_104_SOURCE_LOCKED"

	// Filesystem errors (200-299)
	ErrCodeSourceMissing = "ERR_201_SOURCE_MISSING"
	ErrCodeMkdirFailed   = "ERR_202_MKDIR_FAILED"
	ErrCodeRenameFailed  = "ERR_203_RENAME_FAILED"
	ErrCodeLinkFailed    = "ERR_204_LINK_FAILED"
	ErrCodeJournalFailed = "ERR_205_JOURNAL_FAILED"

	// Lookup errors (300-399)
	ErrCodeLookupTransport   = "ERR_301_LOOKUP_TRANSPORT"
	ErrCodeLookupStatus      = "ERR_302_LOOKUP_STATUS"
	ErrCodeLookupNoMatch     = "ERR_303_LOOKUP_NO_MATCH"
	ErrCodeLookupCircuitOpen = "ERR_304_LOOKUP_CIRCUIT_OPEN"

	// Validation errors (400-499)
	ErrCodeInvalidInput   = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidPattern = "ERR_402_INVALID_PATTERN"
	ErrCodeInvalidPath    = "ERR_403_INVALID_PATH"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig, CategoryValidation:
		// Only ever raised at startup, before watching begins.
		return SeverityFatal
	case CategoryNetwork:
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeLookupTransport, ErrCodeLookupStatus:
		return true
	default:
		return false
	}
}
