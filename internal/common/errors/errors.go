// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Analytics errors. The first three are returned in-band on AnalyticsResult.
const (
	ErrCodeUnknownMetric     ErrorCode = "UNKNOWN_METRIC"
	ErrCodeNoRowsMatched     ErrorCode = "NO_ROWS_MATCHED"
	ErrCodeComputationFailed ErrorCode = "COMPUTATION_FAILED"

	ErrCodeInvalidQuery       ErrorCode = "INVALID_QUERY"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeDatasetUnavailable ErrorCode = "DATASET_UNAVAILABLE"
	ErrCodeDatasetLoadFailed  ErrorCode = "DATASET_LOAD_FAILED"
)

// Infrastructure errors.
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeCacheFailed              ErrorCode = "CACHE_ERROR"
	ErrCodeAlertPublishFailed       ErrorCode = "ALERT_PUBLISH_FAILED"
	ErrCodeJobTimeout               ErrorCode = "JOB_TIMEOUT"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// AsStandardError extracts a StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewUnknownMetricError lists the supported metrics in its message.
func NewUnknownMetricError(metric string, supported []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownMetric,
		Message:   fmt.Sprintf("Unknown metric '%s'. Supported: [%s]", metric, strings.Join(supported, " ")),
		Details:   fmt.Sprintf("metric: %s", metric),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoRowsMatchedError carries the user-facing message for an empty selection.
func NewNoRowsMatchedError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoRowsMatched,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewComputationError wraps an unexpected aggregation failure.
func NewComputationError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeComputationFailed,
		Message:   fmt.Sprintf("Computation error: %s", err.Error()),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidQueryError reports a structured query that failed schema validation.
func NewInvalidQueryError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidQuery,
		Message:   "Structured query failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidInputError reports malformed job variables.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid job input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatasetUnavailableError is returned while no dataset is loaded.
func NewDatasetUnavailableError() *StandardError {
	return &StandardError{
		Code:      ErrCodeDatasetUnavailable,
		Message:   "Transaction dataset is not loaded",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatasetLoadFailedError wraps a failed dataset ingest.
func NewDatasetLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatasetLoadFailed,
		Message:   "Transaction dataset could not be loaded",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheError wraps a failed cache operation.
func NewCacheError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheFailed,
		Message:   fmt.Sprintf("Result cache %s failed", op),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlertPublishFailedError wraps a failed risk alert delivery.
func NewAlertPublishFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlertPublishFailed,
		Message:   "Risk alert delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobTimeoutError reports a job that exceeded its configured timeout.
func NewJobTimeoutError(taskType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobTimeout,
		Message:   "Job exceeded its timeout",
		Details:   fmt.Sprintf("taskType: %s", taskType),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps anything without a more specific code.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDatasetLoadFailed,
		ErrCodeAlertPublishFailed:
		return 3

	case ErrCodeDatasetUnavailable,
		ErrCodeJobTimeout,
		ErrCodeCacheFailed:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
// BPMN codes are identical to internal codes.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeUnknownMetric, ErrCodeNoRowsMatched, ErrCodeComputationFailed:
		return "ANALYTICS"
	case ErrCodeDatasetUnavailable, ErrCodeDatasetLoadFailed, ErrCodeDatabaseConnectionFailed:
		return "DATA"
	case ErrCodeCacheFailed:
		return "CACHE"
	case ErrCodeAlertPublishFailed:
		return "NOTIFICATION"
	}
	codeStr := string(code)
	if strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") {
		return "VALIDATION"
	}
	return "OTHER"
}
