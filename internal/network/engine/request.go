// internal/network/engine/request.go
package engine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"beacon-network/internal/models"
	"beacon-network/internal/network/merge"
)

// Inbound is one network request after the network path prefix is removed.
type Inbound struct {
	Method        string
	Path          string
	RawQuery      string
	Body          []byte
	Authorization []string
}

// AnalyzeRequest reads the Beacon request from a POST body or from GET query
// parameters. A POST body that does not parse yields an empty request and
// the parse error; the raw body is still forwarded to backends.
func AnalyzeRequest(in *Inbound) (*models.RequestBody, error) {
	if in.Method == http.MethodPost {
		body := &models.RequestBody{}
		if len(in.Body) == 0 {
			return body, nil
		}
		if err := json.Unmarshal(in.Body, body); err != nil {
			return &models.RequestBody{}, fmt.Errorf("parse request body: %w", err)
		}
		return body, nil
	}

	params, err := url.ParseQuery(in.RawQuery)
	if err != nil {
		return queryFromParams(url.Values{}), fmt.Errorf("parse query: %w", err)
	}
	return queryFromParams(params), nil
}

func queryFromParams(params url.Values) *models.RequestBody {
	q := models.RequestQuery{
		IncludeResultsetResponses: string(merge.ParsePolicy(params.Get("includeResultsetResponses"))),
		RequestedGranularity:      params.Get("requestedGranularity"),
	}

	skip, hasSkip := intParam(params, "skip")
	limit, hasLimit := intParam(params, "limit")
	if hasSkip || hasLimit {
		q.Pagination = &models.Pagination{Skip: skip, Limit: limit}
	}

	if raw := params.Get("testMode"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			q.TestMode = &v
		}
	}

	for _, raw := range params["filters"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				q.Filters = append(q.Filters, models.Filter{ID: id})
			}
		}
	}
	return &models.RequestBody{Query: q}
}

// intParam returns nil for an unparsable value; present reports whether the
// parameter was given at all.
func intParam(params url.Values, name string) (value *int, present bool) {
	raw, ok := params[name]
	if !ok || len(raw) == 0 {
		return nil, false
	}
	n, err := strconv.Atoi(raw[0])
	if err != nil {
		return nil, true
	}
	return &n, true
}
