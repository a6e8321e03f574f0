// internal/network/views/filteringterms.go
package views

import (
	"slices"
	"strings"

	"beacon-network/internal/models"
	"beacon-network/internal/network/metadata"
)

// buildFilteringTerms builds the global document and one document per network
// endpoint set that advertises filtering terms. Scoped documents hold the
// terms of the backends declaring that set, tagged with the set's key.
func (v *Views) buildFilteringTerms(snap *metadata.Snapshot, beacons []string, networkMap *models.MapResponse) map[string]*models.FilteringTermsResponse {
	out := map[string]*models.FilteringTermsResponse{}

	global := newTermUnion("")
	for _, id := range beacons {
		if ft, ok := snap.FilteringTerms[id]; ok {
			global.add(ft)
		}
	}
	out[filteringTermsPath] = v.filteringTermsResponse(global)

	models.Each(networkMap.Response.EndpointSets, func(key string, netEp models.Endpoint) {
		if netEp.FilteringTermsURL == "" {
			return
		}
		scoped := newTermUnion(key)
		for _, id := range beacons {
			ft, ok := snap.FilteringTerms[id]
			if !ok || !declares(snap.Maps[id], key) {
				continue
			}
			scoped.add(ft)
		}
		out[strings.TrimPrefix(netEp.FilteringTermsURL, v.config.BaseURL)] = v.filteringTermsResponse(scoped)
	})
	return out
}

func (v *Views) filteringTermsResponse(u *termUnion) *models.FilteringTermsResponse {
	return &models.FilteringTermsResponse{
		Meta: v.meta(),
		Response: models.FilteringTerms{
			FilteringTerms: u.terms,
			Resources:      u.resources,
		},
	}
}

func declares(m *models.MapResponse, key string) bool {
	if m == nil {
		return false
	}
	ep, ok := models.Lookup(m.Response.EndpointSets, key)
	return ok && ep.FilteringTermsURL != ""
}

// termUnion deduplicates terms and resources by id in first-seen order.
type termUnion struct {
	scope     string
	terms     []models.FilteringTerm
	termIndex map[string]int
	resources []models.Resource
	seenRes   map[string]bool
}

func newTermUnion(scope string) *termUnion {
	return &termUnion{
		scope:     scope,
		terms:     []models.FilteringTerm{},
		termIndex: map[string]int{},
		seenRes:   map[string]bool{},
	}
}

func (u *termUnion) add(doc *models.FilteringTermsResponse) {
	for _, r := range doc.Response.Resources {
		if r.ID == "" || u.seenRes[r.ID] {
			continue
		}
		u.seenRes[r.ID] = true
		u.resources = append(u.resources, r)
	}

	for _, term := range doc.Response.FilteringTerms {
		if term.ID == "" {
			continue
		}
		if i, ok := u.termIndex[term.ID]; ok {
			for _, s := range term.Scopes {
				if !slices.Contains(u.terms[i].Scopes, s) {
					u.terms[i].Scopes = append(u.terms[i].Scopes, s)
				}
			}
			continue
		}
		term.Scopes = slices.Clone(term.Scopes)
		if u.scope != "" && !slices.Contains(term.Scopes, u.scope) {
			term.Scopes = append(term.Scopes, u.scope)
		}
		u.termIndex[term.ID] = len(u.terms)
		u.terms = append(u.terms, term)
	}
}
