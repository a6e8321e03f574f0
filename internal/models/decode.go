package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ResponseKind tags the variant held by a BeaconResponse.
type ResponseKind int

const (
	ResponseResultsets ResponseKind = iota + 1
	ResponseCollections
	ResponseError
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseResultsets:
		return "resultsets"
	case ResponseCollections:
		return "collections"
	case ResponseError:
		return "error"
	default:
		return "unknown"
	}
}

// BeaconResponse is the closed set of response variants a backend can return.
// Exactly one of the variant pointers is set, matching Kind.
type BeaconResponse struct {
	Kind        ResponseKind
	Resultsets  *ResultsetsResponse
	Collections *CollectionsResponse
	Error       *ErrorResponse
}

var (
	ErrUnknownShape = errors.New("document is not a beacon response")
	ErrTrailingData = errors.New("data after the response document")
)

// Meta returns the meta block of whichever variant is set.
func (r *BeaconResponse) Meta() *ResponseMeta {
	switch r.Kind {
	case ResponseResultsets:
		return &r.Resultsets.Meta
	case ResponseCollections:
		return &r.Collections.Meta
	case ResponseError:
		return &r.Error.Meta
	}
	return nil
}

// Summary returns the response summary, or nil for error responses.
func (r *BeaconResponse) Summary() *ResponseSummary {
	switch r.Kind {
	case ResponseResultsets:
		return &r.Resultsets.ResponseSummary
	case ResponseCollections:
		return &r.Collections.ResponseSummary
	}
	return nil
}

func (r BeaconResponse) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ResponseResultsets:
		return json.Marshal(r.Resultsets)
	case ResponseCollections:
		return json.Marshal(r.Collections)
	case ResponseError:
		return json.Marshal(r.Error)
	}
	return nil, fmt.Errorf("marshal beacon response: unknown kind %d", r.Kind)
}

// DecodeResponse inspects the top-level field set before selecting the variant decoder:
// responseSummary with response.collections is a collections response, responseSummary
// alone is a record-set response, and an error block without summary is an error response.
func DecodeResponse(r io.Reader) (*BeaconResponse, error) {
	dec := json.NewDecoder(r)
	var doc json.RawMessage
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	// Anything but whitespace after the document makes it undecodable, as
	// json.Unmarshal does for DecodeResponseBytes.
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode response: %w", ErrTrailingData)
	}
	return DecodeResponseBytes(doc)
}

func DecodeResponseBytes(doc []byte) (*BeaconResponse, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if fields == nil {
		return nil, ErrUnknownShape
	}

	if _, ok := fields["responseSummary"]; ok {
		if hasField(fields["response"], "collections") {
			var out CollectionsResponse
			if err := json.Unmarshal(doc, &out); err != nil {
				return nil, fmt.Errorf("decode collections response: %w", err)
			}
			return &BeaconResponse{Kind: ResponseCollections, Collections: &out}, nil
		}
		var out ResultsetsResponse
		if err := json.Unmarshal(doc, &out); err != nil {
			return nil, fmt.Errorf("decode resultsets response: %w", err)
		}
		return &BeaconResponse{Kind: ResponseResultsets, Resultsets: &out}, nil
	}

	if _, ok := fields["error"]; ok {
		var out ErrorResponse
		if err := json.Unmarshal(doc, &out); err != nil {
			return nil, fmt.Errorf("decode error response: %w", err)
		}
		return &BeaconResponse{Kind: ResponseError, Error: &out}, nil
	}

	return nil, ErrUnknownShape
}

func hasField(raw json.RawMessage, name string) bool {
	if len(raw) == 0 {
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	_, ok := obj[name]
	return ok
}
