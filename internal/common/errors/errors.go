// Package errors provides the standardized error taxonomy of the federation gateway.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeMetadataFetchFailed      ErrorCode = "METADATA_FETCH_FAILED"
	ErrCodeMetadataValidationFailed ErrorCode = "METADATA_VALIDATION_FAILED"

	ErrCodeRoutingMiss ErrorCode = "ROUTING_MISS"

	ErrCodeBackendTransportError ErrorCode = "BACKEND_TRANSPORT_ERROR"
	ErrCodeBackendTimeout        ErrorCode = "BACKEND_TIMEOUT"

	ErrCodeTokenExchangeFailed ErrorCode = "TOKEN_EXCHANGE_FAILED"

	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
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
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns the error with an extra metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewMetadataFetchFailedError records a network or HTTP failure fetching a metadata document.
func NewMetadataFetchFailedError(endpoint string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMetadataFetchFailed,
		Message:   "Failed to fetch backend metadata",
		Details:   fmt.Sprintf("endpoint: %s, error: %s", endpoint, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"endpoint": endpoint},
		Timestamp: time.Now().UTC(),
	}
}

// NewMetadataValidationFailedError records schema violations on a metadata document.
func NewMetadataValidationFailedError(endpoint string, violations int) *StandardError {
	return &StandardError{
		Code:      ErrCodeMetadataValidationFailed,
		Message:   "Backend metadata failed schema validation",
		Details:   fmt.Sprintf("endpoint: %s, violations: %d", endpoint, violations),
		Retryable: false,
		Metadata:  map[string]interface{}{"endpoint": endpoint},
		Timestamp: time.Now().UTC(),
	}
}

// NewRoutingMissError is returned when no backend template matches the inbound path.
func NewRoutingMissError(path string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRoutingMiss,
		Message:   "No backend serves the requested resource",
		Details:   fmt.Sprintf("path: %s", path),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewBackendTransportError(beaconID string, status int, message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendTransportError,
		Message:   message,
		Details:   fmt.Sprintf("beaconId: %s, status: %d", beaconID, status),
		Retryable: false,
		Metadata:  map[string]interface{}{"beaconId": beaconID, "status": status},
		Timestamp: time.Now().UTC(),
	}
}

func NewBackendTimeoutError(beaconID, template string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendTimeout,
		Message:   fmt.Sprintf("request timeout '%s'", template),
		Details:   fmt.Sprintf("beaconId: %s", beaconID),
		Retryable: false,
		Metadata:  map[string]interface{}{"beaconId": beaconID},
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenExchangeFailedError is logged only; the original header is forwarded.
func NewTokenExchangeFailedError(step string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenExchangeFailed,
		Message:   "Token exchange failed",
		Details:   fmt.Sprintf("step: %s, error: %s", step, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

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
// 3. Classification
// ==========================

// HTTPStatus maps an error code to the status returned to network clients.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeRoutingMiss:
		return http.StatusNotFound
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeBackendTimeout:
		return http.StatusRequestTimeout
	case ErrCodeTokenExchangeFailed:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeMetadataFetchFailed, ErrCodeTokenExchangeFailed:
		return true
	default:
		return false
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "METADATA"):
		return "METADATA"
	case strings.HasPrefix(codeStr, "ROUTING"):
		return "ROUTING"
	case strings.HasPrefix(codeStr, "BACKEND"):
		return "BACKEND"
	case strings.Contains(codeStr, "TOKEN"):
		return "AUTH"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
