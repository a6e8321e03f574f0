// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"
)

// ErrorHandler turns errors into Beacon error responses.
type ErrorHandler struct {
	logger     Logger
	beaconID   string
	apiVersion string
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger, beaconID, apiVersion string) *ErrorHandler {
	return &ErrorHandler{logger: logger, beaconID: beaconID, apiVersion: apiVersion}
}

type errorBody struct {
	Meta  errorMeta   `json:"meta"`
	Error errorDetail `json:"error"`
}

type errorMeta struct {
	BeaconID   string `json:"beaconId,omitempty"`
	APIVersion string `json:"apiVersion,omitempty"`
}

type errorDetail struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// WriteHTTPError normalizes err and writes it with the mapped status.
func (h *ErrorHandler) WriteHTTPError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"errorCategory": GetErrorCategory(stdErr.Code),
		"status":        status,
	}
	if r != nil {
		fields["path"] = r.URL.Path
		fields["method"] = r.Method
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields)
	} else {
		h.logger.Warn("request rejected", fields)
	}

	message := stdErr.Message
	if stdErr.Details != "" {
		message = message + ": " + stdErr.Details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Meta:  errorMeta{BeaconID: h.beaconID, APIVersion: h.apiVersion},
		Error: errorDetail{ErrorCode: status, ErrorMessage: message},
	})
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
