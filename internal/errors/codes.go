// Package errors provides structured error handling for pantry.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (recipe files, directories)
//   - 3XX: Network errors (recipe import)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
//   - 6XX: Index actor errors
package errors

// Category defines error categories for classification.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryIO         Category = "IO"
	CategoryNetwork    Category = "NETWORK"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
	// CategoryIndex covers failures talking to the index worker.
	CategoryIndex Category = "INDEX"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound     = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission   = "ERR_202_FILE_PERMISSION"
	ErrCodeRecipeDirMissing = "ERR_203_RECIPE_DIR_MISSING"
	ErrCodeLocked           = "ERR_204_INSTANCE_LOCKED"
	ErrCodeFileCorrupt      = "ERR_206_FILE_CORRUPT"

	// Network errors (300-399)
	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"
	ErrCodeImportFailed       = "ERR_303_IMPORT_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidQuery = "ERR_403_INVALID_QUERY"
	ErrCodeNotFound     = "ERR_404_NOT_FOUND"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_503_SEARCH_FAILED"
	ErrCodeIndexFailed  = "ERR_505_INDEX_FAILED"

	// Index actor errors (600-699)
	ErrCodeShuttingDown      = "ERR_601_INDEX_SHUTTING_DOWN"
	ErrCodeProtocolViolation = "ERR_602_PROTOCOL_VIOLATION"
	ErrCodeIndexTimeout      = "ERR_603_INDEX_TIMEOUT"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
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
	case '6':
		return CategoryIndex
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeShuttingDown, ErrCodeProtocolViolation, ErrCodeLocked:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports whether a caller may reasonably try again.
// The reloader retries these; everywhere else the flag is advisory.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable, ErrCodeIndexTimeout:
		return true
	default:
		return false
	}
}
