// internal/network/merge/accumulator.go
package merge

import (
	"encoding/json"

	"beacon-network/internal/models"
	"beacon-network/internal/network/dispatch"
)

// summary accumulates the counters of one response shape.
type summary struct {
	seen    bool
	exists  bool
	total   *int
	schemas []models.SchemaReference
}

func (s *summary) add(meta *models.ResponseMeta, rs *models.ResponseSummary) {
	s.seen = true
	if meta != nil {
		s.schemas = append(s.schemas, meta.ReturnedSchemas...)
	}
	if rs == nil {
		return
	}
	if rs.NumTotalResults != nil {
		n := *rs.NumTotalResults
		if s.total == nil {
			s.total = new(int)
		}
		*s.total += n
		if n > 0 {
			s.exists = true
		}
	} else if rs.Exists {
		s.exists = true
	}
}

func (s *summary) responseSummary() models.ResponseSummary {
	return models.ResponseSummary{Exists: s.exists, NumTotalResults: s.total}
}

// Accumulator merges classified backend results incrementally. Appending in
// several batches yields the same aggregate as appending all at once.
type Accumulator struct {
	policy Policy

	records      []models.ResultSet
	collections  []json.RawMessage
	placeholders []models.ResultSet

	resultsets      summary
	collectionsSeen summary
}

func NewAccumulator(policy Policy) *Accumulator {
	return &Accumulator{policy: policy}
}

func (a *Accumulator) Append(results ...*dispatch.Result) {
	for _, r := range results {
		if r == nil {
			continue
		}
		if !r.IsSuccess() || r.Response == nil {
			a.appendFailure(r)
			continue
		}
		switch r.Response.Kind {
		case models.ResponseResultsets:
			a.appendResultsets(r.BeaconID, r.Response.Resultsets)
		case models.ResponseCollections:
			a.appendCollections(r.Response.Collections)
		}
	}
}

func (a *Accumulator) appendResultsets(beaconID string, resp *models.ResultsetsResponse) {
	a.resultsets.add(&resp.Meta, &resp.ResponseSummary)

	var sets []models.ResultSet
	if resp.Response != nil {
		sets = resp.Response.ResultSets
	}
	if len(sets) == 0 {
		// Boolean and count granularity carry no records.
		sets = []models.ResultSet{{
			Exists:       resp.ResponseSummary.Exists,
			ResultsCount: resp.ResponseSummary.NumTotalResults,
		}}
	}
	for _, rs := range sets {
		if !a.policy.admits(rs.Exists) {
			continue
		}
		if rs.BeaconID == "" {
			rs.BeaconID = beaconID
		}
		a.records = append(a.records, rs)
	}
}

func (a *Accumulator) appendCollections(resp *models.CollectionsResponse) {
	a.collectionsSeen.add(&resp.Meta, &resp.ResponseSummary)
	if resp.Response != nil {
		a.collections = append(a.collections, resp.Response.Collections...)
	}
}

// appendFailure adds an error placeholder. A failure is never a hit, so only
// policy ALL surfaces it.
func (a *Accumulator) appendFailure(r *dispatch.Result) {
	if a.policy != PolicyAll {
		return
	}
	info, err := json.Marshal(map[string]*models.BeaconError{"error": r.Error()})
	if err != nil {
		return
	}
	a.placeholders = append(a.placeholders, models.ResultSet{
		BeaconID: r.BeaconID,
		Exists:   false,
		Info:     info,
	})
}

// Response builds the aggregate. Any collections success makes the aggregate
// a collections response, in which case record-set successes are excluded.
func (a *Accumulator) Response(meta models.ResponseMeta) *models.BeaconResponse {
	if a.collectionsSeen.seen {
		meta.ReturnedSchemas = nonNil(a.collectionsSeen.schemas)
		collections := a.collections
		if collections == nil {
			collections = []json.RawMessage{}
		}
		return &models.BeaconResponse{
			Kind: models.ResponseCollections,
			Collections: &models.CollectionsResponse{
				Meta:            meta,
				ResponseSummary: a.collectionsSeen.responseSummary(),
				Response:        &models.Collections{Collections: collections},
			},
		}
	}

	meta.ReturnedSchemas = nonNil(a.resultsets.schemas)
	sets := make([]models.ResultSet, 0, len(a.records)+len(a.placeholders))
	sets = append(sets, a.records...)
	sets = append(sets, a.placeholders...)
	return &models.BeaconResponse{
		Kind: models.ResponseResultsets,
		Resultsets: &models.ResultsetsResponse{
			Meta:            meta,
			ResponseSummary: a.resultsets.responseSummary(),
			Response:        &models.ResultSets{ResultSets: sets},
		},
	}
}

func nonNil(s []models.SchemaReference) []models.SchemaReference {
	if s == nil {
		return []models.SchemaReference{}
	}
	return s
}
