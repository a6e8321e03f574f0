package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestValidator(t *testing.T) *SchemaValidator {
	t.Helper()
	v, err := NewSchemaValidator()
	require.NoError(t, err)
	return v
}

func TestNewSchemaValidator_CompilesBundledSchemas(t *testing.T) {
	v := createTestValidator(t)

	for _, name := range []SchemaName{
		SchemaInfo, SchemaMap, SchemaConfiguration, SchemaEntryTypes,
		SchemaFilteringTerms, SchemaProtectedResource, SchemaResponse,
	} {
		assert.True(t, v.Has(name), "schema %s should be bundled", name)
	}
	assert.False(t, v.Has("unknown"))
}

func TestSchemaValidator_Validate(t *testing.T) {
	v := createTestValidator(t)

	tests := []struct {
		name      string
		schema    SchemaName
		doc       string
		wantValid bool
		wantField string
	}{
		{
			name:      "valid info",
			schema:    SchemaInfo,
			doc:       `{"meta":{"beaconId":"b1","apiVersion":"v2.0.0"},"response":{"id":"b1","name":"B1","apiVersion":"v2.0.0"}}`,
			wantValid: true,
		},
		{
			name:      "info missing id",
			schema:    SchemaInfo,
			doc:       `{"meta":{"beaconId":"b1","apiVersion":"v2.0.0"},"response":{"name":"B1","apiVersion":"v2.0.0"}}`,
			wantValid: false,
			wantField: "response",
		},
		{
			name:      "map endpoint without rootUrl",
			schema:    SchemaMap,
			doc:       `{"meta":{},"response":{"endpointSets":{"gv":{"entryType":"genomicVariant"}}}}`,
			wantValid: false,
			wantField: "response.endpointSets.gv",
		},
		{
			name:      "valid resultsets response",
			schema:    SchemaResponse,
			doc:       `{"meta":{"beaconId":"b1"},"responseSummary":{"exists":true,"numTotalResults":1},"response":{"resultSets":[{"exists":true}]}}`,
			wantValid: true,
		},
		{
			name:      "response with negative total",
			schema:    SchemaResponse,
			doc:       `{"meta":{},"responseSummary":{"exists":true,"numTotalResults":-1}}`,
			wantValid: false,
			wantField: "responseSummary.numTotalResults",
		},
		{
			name:      "valid error response",
			schema:    SchemaResponse,
			doc:       `{"meta":{},"error":{"errorCode":500}}`,
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.Validate(tt.schema, []byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			if tt.wantValid {
				assert.Empty(t, result.Errors)
				return
			}
			require.NotEmpty(t, result.Errors)
			fields := make([]string, 0, len(result.Errors))
			for _, e := range result.Errors {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestSchemaValidator_ParseFailure(t *testing.T) {
	v := createTestValidator(t)

	result, err := v.Validate(SchemaResponse, []byte(`<html>502 Bad Gateway</html>`))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "PARSE_ERROR", result.Errors[0].Code)
}

func TestSchemaValidator_UnknownSchema(t *testing.T) {
	v := createTestValidator(t)

	_, err := v.Validate("missing", []byte(`{}`))
	assert.True(t, errors.Is(err, ErrSchemaNotFound))
}

func TestSchemaValidator_Register(t *testing.T) {
	v := createTestValidator(t)

	require.NoError(t, v.Register("custom", []byte(`{"type":"object","required":["x"]}`)))
	result, err := v.Validate("custom", []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"(root): x is required"}, result.Messages())

	assert.Error(t, v.Register("broken", []byte(`{"type":`)))
}
