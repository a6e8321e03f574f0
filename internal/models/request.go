package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RequestBody is the POST body of a Beacon query.
type RequestBody struct {
	Meta  RequestMeta  `json:"meta"`
	Query RequestQuery `json:"query"`
}

type RequestMeta struct {
	APIVersion       string            `json:"apiVersion,omitempty"`
	RequestedSchemas []SchemaReference `json:"requestedSchemas,omitempty"`
}

type RequestQuery struct {
	RequestParameters         json.RawMessage `json:"requestParameters,omitempty"`
	Filters                   []Filter        `json:"filters,omitempty"`
	IncludeResultsetResponses string          `json:"includeResultsetResponses,omitempty"`
	Pagination                *Pagination     `json:"pagination,omitempty"`
	RequestedGranularity      string          `json:"requestedGranularity,omitempty"`
	TestMode                  *bool           `json:"testMode,omitempty"`
}

// Filter is one query filter. Ontology filters carry only an id; alphanumeric
// filters carry an operator and a value.
type Filter struct {
	ID                     string          `json:"id"`
	Operator               string          `json:"operator,omitempty"`
	Value                  json.RawMessage `json:"value,omitempty"`
	Scope                  string          `json:"scope,omitempty"`
	IncludeDescendantTerms *bool           `json:"includeDescendantTerms,omitempty"`
	Similarity             string          `json:"similarity,omitempty"`
}

// String renders the canonical form echoed in the received request summary.
func (f Filter) String() string {
	var b strings.Builder
	b.WriteString(f.ID)
	if f.Operator != "" {
		b.WriteString(f.Operator)
	}
	if len(f.Value) > 0 {
		var s string
		if err := json.Unmarshal(f.Value, &s); err == nil {
			b.WriteString(s)
		} else {
			b.Write(f.Value)
		}
	}
	if f.Scope != "" {
		fmt.Fprintf(&b, "[%s]", f.Scope)
	}
	return b.String()
}

// IsTestMode reports whether the request asked for test mode.
func (b *RequestBody) IsTestMode() bool {
	return b != nil && b.Query.TestMode != nil && *b.Query.TestMode
}
