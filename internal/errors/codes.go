// Package errors provides structured error handling for corpus.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Store and IO errors
//   - 3XX: Network errors (embedding gateway, remote reranker)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStore indicates chunk store and disk I/O errors.
	CategoryStore Category = "STORE"
	// CategoryNetwork indicates network-related errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort the request.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but processing can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Store errors (200-299)
	ErrCodeStoreUnavailable  = "ERR_201_STORE_UNAVAILABLE"
	ErrCodeStoreQuery        = "ERR_202_STORE_QUERY"
	ErrCodeDimensionMismatch = "ERR_203_DIMENSION_MISMATCH"
	ErrCodeIndexLocked       = "ERR_204_INDEX_LOCKED"

	// Network errors (300-399)
	ErrCodeEmbeddingFailed = "ERR_301_EMBEDDING_FAILED"
	ErrCodeRerankerFailed  = "ERR_302_RERANKER_FAILED"
	ErrCodeNetworkTimeout  = "ERR_303_NETWORK_TIMEOUT"

	// Validation errors (400-499)
	ErrCodeEmptyQuery    = "ERR_401_EMPTY_QUERY"
	ErrCodeInvalidLimit  = "ERR_402_INVALID_LIMIT"
	ErrCodeEmptyDocument = "ERR_403_EMPTY_DOCUMENT"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode derives the category from the numeric range of a code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStore
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity. Store and embedding failures abort the
// request; reranker failures degrade.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeStoreUnavailable, ErrCodeStoreQuery, ErrCodeEmbeddingFailed:
		return SeverityFatal
	case ErrCodeRerankerFailed, ErrCodeNetworkTimeout:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether the operation behind the code may succeed
// on retry.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeRerankerFailed, ErrCodeEmbeddingFailed, ErrCodeIndexLocked:
		return true
	default:
		return false
	}
}
