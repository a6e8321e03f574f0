// internal/network/dispatch/models.go
package dispatch

import (
	"fmt"
	"net/http"
	"time"

	apperrors "beacon-network/internal/common/errors"
	"beacon-network/internal/common/validation"
	"beacon-network/internal/models"
	"beacon-network/internal/network/endpoints"
)

const (
	msgBackendStatus = "error getting response from backend"
	msgUndecodable   = "failed to deserialize valid document"
)

// Request is the inbound call every matched backend receives a copy of.
type Request struct {
	Method        string
	Path          string
	RawQuery      string
	Body          []byte
	Authorization []string
	TestMode      bool
	CorrelationID string
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeValidationError
	OutcomeTransportError
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeValidationError:
		return "validation_error"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Result is the terminal classification of one backend call.
type Result struct {
	BeaconID string
	Key      string
	Template string
	URL      string

	Outcome Outcome
	// Status is the HTTP status, the backend's own error code, or 0.
	Status  int
	Message string

	Response   *models.BeaconResponse
	Violations []validation.ValidationError

	// Unreachable is set when no HTTP exchange took place at all.
	Unreachable bool

	// Body is the raw response, kept for diagnostics and audit.
	Body    []byte
	Elapsed time.Duration
}

func newResult(tpl endpoints.Template, url string) *Result {
	return &Result{BeaconID: tpl.BeaconID, Key: tpl.Key, Template: tpl.URL, URL: url}
}

func (r *Result) IsSuccess() bool {
	return r.Outcome == OutcomeSuccess
}

func (r *Result) transportError(status int, message string) {
	r.Outcome = OutcomeTransportError
	r.Status = status
	r.Message = message
}

func (r *Result) timeout() {
	r.Outcome = OutcomeTimeout
	r.Status = http.StatusRequestTimeout
	r.Message = fmt.Sprintf("request timeout '%s'", r.Template)
}

// Failure describes a failed call in the gateway error taxonomy; nil on success.
// Validation errors are reported as transport errors carrying the joined violations.
func (r *Result) Failure() *apperrors.StandardError {
	switch r.Outcome {
	case OutcomeSuccess:
		return nil
	case OutcomeTimeout:
		return apperrors.NewBackendTimeoutError(r.BeaconID, r.Template)
	default:
		return apperrors.NewBackendTransportError(r.BeaconID, r.Status, r.Message).
			WithMetadata("outcome", r.Outcome.String())
	}
}

// Error is the error object placed in a placeholder record for a failed call.
func (r *Result) Error() *models.BeaconError {
	if r.IsSuccess() {
		return nil
	}
	return &models.BeaconError{ErrorCode: r.Status, ErrorMessage: r.Message}
}
