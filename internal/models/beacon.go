package models

import "encoding/json"

// SchemaReference names the schema used for one entity type.
type SchemaReference struct {
	EntityType string `json:"entityType,omitempty"`
	Schema     string `json:"schema,omitempty"`
}

type Pagination struct {
	Skip  *int `json:"skip,omitempty"`
	Limit *int `json:"limit,omitempty"`
}

type ReceivedRequestSummary struct {
	APIVersion                string            `json:"apiVersion,omitempty"`
	RequestedSchemas          []SchemaReference `json:"requestedSchemas"`
	Filters                   []string          `json:"filters,omitempty"`
	RequestParameters         json.RawMessage   `json:"requestParameters,omitempty"`
	IncludeResultsetResponses string            `json:"includeResultsetResponses,omitempty"`
	Pagination                Pagination        `json:"pagination"`
	RequestedGranularity      string            `json:"requestedGranularity,omitempty"`
	TestMode                  *bool             `json:"testMode,omitempty"`
}

type ResponseMeta struct {
	BeaconID               string                  `json:"beaconId,omitempty"`
	APIVersion             string                  `json:"apiVersion,omitempty"`
	ReturnedGranularity    string                  `json:"returnedGranularity,omitempty"`
	ReceivedRequestSummary *ReceivedRequestSummary `json:"receivedRequestSummary,omitempty"`
	ReturnedSchemas        []SchemaReference       `json:"returnedSchemas,omitempty"`
}

type ResponseSummary struct {
	Exists          bool `json:"exists"`
	NumTotalResults *int `json:"numTotalResults,omitempty"`
}

// ResultSet is one record of a record-set response.
type ResultSet struct {
	ID               string            `json:"id,omitempty"`
	SetType          string            `json:"setType,omitempty"`
	BeaconID         string            `json:"beaconId,omitempty"`
	Exists           bool              `json:"exists"`
	ResultsCount     *int              `json:"resultsCount,omitempty"`
	Results          []json.RawMessage `json:"results,omitempty"`
	ResultsHandovers json.RawMessage   `json:"resultsHandovers,omitempty"`
	Info             json.RawMessage   `json:"info,omitempty"`
}

type ResultSets struct {
	ResultSets []ResultSet `json:"resultSets"`
}

type Collections struct {
	Collections []json.RawMessage `json:"collections"`
}

type ResultsetsResponse struct {
	Meta            ResponseMeta    `json:"meta"`
	ResponseSummary ResponseSummary `json:"responseSummary"`
	Info            json.RawMessage `json:"info,omitempty"`
	BeaconHandovers json.RawMessage `json:"beaconHandovers,omitempty"`
	Response        *ResultSets     `json:"response,omitempty"`
}

type CollectionsResponse struct {
	Meta            ResponseMeta    `json:"meta"`
	ResponseSummary ResponseSummary `json:"responseSummary"`
	Info            json.RawMessage `json:"info,omitempty"`
	BeaconHandovers json.RawMessage `json:"beaconHandovers,omitempty"`
	Response        *Collections    `json:"response,omitempty"`
}

type BeaconError struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type ErrorResponse struct {
	Meta  ResponseMeta `json:"meta"`
	Error BeaconError  `json:"error"`
}
