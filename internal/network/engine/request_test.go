package engine

import (
	"net/http"
	"testing"

	"beacon-network/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestAnalyzeRequest_Get(t *testing.T) {
	yes := true
	tests := []struct {
		name  string
		query string
		want  models.RequestQuery
	}{
		{
			name:  "defaults",
			query: "",
			want:  models.RequestQuery{IncludeResultsetResponses: "ALL"},
		},
		{
			name:  "policy and granularity",
			query: "includeResultsetResponses=hit&requestedGranularity=count",
			want:  models.RequestQuery{IncludeResultsetResponses: "HIT", RequestedGranularity: "count"},
		},
		{
			name:  "invalid policy falls back",
			query: "includeResultsetResponses=SOME",
			want:  models.RequestQuery{IncludeResultsetResponses: "ALL"},
		},
		{
			name:  "pagination reads each parameter",
			query: "skip=20&limit=5",
			want: models.RequestQuery{
				IncludeResultsetResponses: "ALL",
				Pagination:                &models.Pagination{Skip: intPtr(20), Limit: intPtr(5)},
			},
		},
		{
			name:  "unparsable limit",
			query: "limit=many",
			want: models.RequestQuery{
				IncludeResultsetResponses: "ALL",
				Pagination:                &models.Pagination{},
			},
		},
		{
			name:  "filters and test mode",
			query: "filters=NCIT:C20197,%20NCIT:C16576&testMode=true",
			want: models.RequestQuery{
				IncludeResultsetResponses: "ALL",
				Filters:                   []models.Filter{{ID: "NCIT:C20197"}, {ID: "NCIT:C16576"}},
				TestMode:                  &yes,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := AnalyzeRequest(&Inbound{Method: http.MethodGet, RawQuery: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.want, body.Query)
		})
	}
}

func TestAnalyzeRequest_Post(t *testing.T) {
	body, err := AnalyzeRequest(&Inbound{
		Method: http.MethodPost,
		Body: []byte(`{"meta":{"apiVersion":"v2.0.0"},"query":{"includeResultsetResponses":"NONE",
			"filters":[{"id":"NCIT:C20197"}],"pagination":{"skip":0,"limit":10},"testMode":true}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0", body.Meta.APIVersion)
	assert.Equal(t, "NONE", body.Query.IncludeResultsetResponses)
	assert.Equal(t, 10, *body.Query.Pagination.Limit)
	assert.True(t, body.IsTestMode())
}

func TestAnalyzeRequest_PostInvalid(t *testing.T) {
	body, err := AnalyzeRequest(&Inbound{Method: http.MethodPost, Body: []byte(`{not json`)})
	assert.Error(t, err)
	require.NotNil(t, body)
	assert.False(t, body.IsTestMode())

	body, err = AnalyzeRequest(&Inbound{Method: http.MethodPost})
	assert.NoError(t, err)
	assert.NotNil(t, body)
}
