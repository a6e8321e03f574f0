// internal/network/merge/merger.go
package merge

import (
	"beacon-network/internal/models"
	"beacon-network/internal/network/dispatch"
)

type Merger struct {
	identity Identity
}

func NewMerger(identity Identity) *Merger {
	return &Merger{identity: identity}
}

// Merge combines every result of one inbound request. The inclusion policy
// comes from the request's includeResultsetResponses.
func (m *Merger) Merge(body *models.RequestBody, results []*dispatch.Result) *models.BeaconResponse {
	if body == nil {
		body = &models.RequestBody{}
	}
	acc := NewAccumulator(ParsePolicy(body.Query.IncludeResultsetResponses))
	acc.Append(results...)
	return acc.Response(m.Meta(body))
}

// Meta is the network's response meta with the request echoed back.
func (m *Merger) Meta(body *models.RequestBody) models.ResponseMeta {
	if body == nil {
		body = &models.RequestBody{}
	}
	summary := ReceivedRequestSummary(body)
	if summary.APIVersion == "" {
		summary.APIVersion = m.identity.APIVersion
	}
	return models.ResponseMeta{
		BeaconID:               m.identity.BeaconID,
		APIVersion:             m.identity.APIVersion,
		ReturnedGranularity:    summary.RequestedGranularity,
		ReceivedRequestSummary: summary,
	}
}

// ReceivedRequestSummary echoes the request. Absent pagination becomes an
// empty object and absent requested schemas an empty list.
func ReceivedRequestSummary(body *models.RequestBody) *models.ReceivedRequestSummary {
	q := body.Query
	s := &models.ReceivedRequestSummary{
		APIVersion:                body.Meta.APIVersion,
		RequestedSchemas:          body.Meta.RequestedSchemas,
		RequestParameters:         q.RequestParameters,
		IncludeResultsetResponses: q.IncludeResultsetResponses,
		RequestedGranularity:      q.RequestedGranularity,
		TestMode:                  q.TestMode,
	}
	if s.RequestedSchemas == nil {
		s.RequestedSchemas = []models.SchemaReference{}
	}
	if q.Pagination != nil {
		s.Pagination = *q.Pagination
	}
	for _, f := range q.Filters {
		s.Filters = append(s.Filters, f.String())
	}
	return s
}
