package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ map[string]interface{}) {
	l.errors = append(l.errors, msg)
}
func (l *recordingLogger) Warn(msg string, _ map[string]interface{}) { l.warns = append(l.warns, msg) }

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeRoutingMiss, http.StatusNotFound},
		{ErrCodeInvalidRequest, http.StatusBadRequest},
		{ErrCodeBackendTimeout, http.StatusRequestTimeout},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeMetadataFetchFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "METADATA", GetErrorCategory(ErrCodeMetadataValidationFailed))
	assert.Equal(t, "ROUTING", GetErrorCategory(ErrCodeRoutingMiss))
	assert.Equal(t, "BACKEND", GetErrorCategory(ErrCodeBackendTimeout))
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeTokenExchangeFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidRequest))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestNormalize(t *testing.T) {
	routing := NewRoutingMissError("/unknown")
	wrapped := fmt.Errorf("route: %w", routing)

	assert.Same(t, routing, Normalize(wrapped))

	plain := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
}

func TestErrorHandler_WriteHTTPError(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log, "org.example.network", "v2.0.0")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/g_variants/unknown/path", nil)
	h.WriteHTTPError(rec, req, NewRoutingMissError("/g_variants/unknown/path"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "org.example.network", body["meta"]["beaconId"])
	assert.Equal(t, float64(404), body["error"]["errorCode"])
	assert.Contains(t, body["error"]["errorMessage"], "/g_variants/unknown/path")
	assert.Len(t, log.warns, 1)
	assert.Empty(t, log.errors)

	rec = httptest.NewRecorder()
	h.WriteHTTPError(rec, req, stderrors.New("merge exploded"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, log.errors, 1)
}

func TestStandardError_WithMetadata(t *testing.T) {
	err := NewBackendTimeoutError("b1", "https://b1.org//g_variants").WithMetadata("correlationId", "x")
	assert.Equal(t, "x", err.Metadata["correlationId"])
	assert.Equal(t, "b1", err.Metadata["beaconId"])
	assert.Contains(t, err.Error(), "request timeout 'https://b1.org//g_variants'")
}
