// internal/network/views/networkmap.go
package views

import (
	"beacon-network/internal/models"
	"beacon-network/internal/network/endpoints"
	"beacon-network/internal/network/metadata"
)

// buildMap re-roots every backend endpoint set under the network base URL.
// The first backend declaring a set fixes its root and single-entry URL;
// related endpoints from every backend are merged by key.
func (v *Views) buildMap(snap *metadata.Snapshot, beacons []string) *models.MapResponse {
	sets := models.NewOrderedMap[models.Endpoint]()

	for _, id := range beacons {
		m, ok := snap.Maps[id]
		if !ok {
			continue
		}
		apiRoot := snap.Endpoints[id]
		models.Each(m.Response.EndpointSets, func(key string, ep models.Endpoint) {
			parent, segment, ok := endpoints.SplitRoot(apiRoot, ep.RootURL)
			if !ok {
				return
			}

			netEp, exists := sets.Get(key)
			if !exists {
				netEp = models.Endpoint{
					EntryType: ep.EntryType,
					RootURL:   v.config.BaseURL + "/" + segment,
				}
			}
			if netEp.SingleEntryURL == "" && ep.SingleEntryURL != "" {
				if rest, ok := endpoints.Below(parent, ep.SingleEntryURL); ok {
					netEp.SingleEntryURL = v.config.BaseURL + "/" + rest
				}
			}
			if netEp.FilteringTermsURL == "" && ep.FilteringTermsURL != "" {
				netEp.FilteringTermsURL = netEp.RootURL + filteringTermsPath
			}

			related := models.NewOrderedMap[models.RelatedEndpoint]()
			models.Each(netEp.Endpoints, func(relKey string, rel models.RelatedEndpoint) {
				related.Set(relKey, rel)
			})
			models.Each(ep.Endpoints, func(relKey string, rel models.RelatedEndpoint) {
				rest, ok := endpoints.Below(parent, rel.URL)
				if !ok || rel.URL == "" {
					return
				}
				related.Set(relKey, models.RelatedEndpoint{
					ReturnedEntryType: rel.ReturnedEntryType,
					URL:               v.config.BaseURL + "/" + rest,
				})
			})
			if related.Len() > 0 {
				netEp.Endpoints = related
			}

			sets.Set(key, netEp)
		})
	}

	return &models.MapResponse{
		Meta:     v.meta(),
		Response: models.BeaconMap{EndpointSets: sets},
	}
}
