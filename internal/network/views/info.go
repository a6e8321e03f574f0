// internal/network/views/info.go
package views

import (
	"encoding/json"
	"sort"

	"beacon-network/internal/models"
	"beacon-network/internal/network/metadata"
)

// buildInfo publishes the network's own info, every backend's info and the
// metadata problems of the last refresh.
func (v *Views) buildInfo(snap *metadata.Snapshot, beacons []string) *models.NetworkInfoResponse {
	resp := &models.NetworkInfoResponse{
		Meta: v.meta(),
		Response: models.BeaconInfo{
			ID:           v.config.BeaconID,
			Name:         v.config.Name,
			APIVersion:   v.config.APIVersion,
			Environment:  v.config.Environment,
			Organization: v.organization(),
			Description:  v.config.Description,
			Version:      v.config.Version,
		},
		Responses: []json.RawMessage{},
	}

	for _, id := range beacons {
		info, ok := snap.Infos[id]
		if !ok {
			continue
		}
		raw, err := json.Marshal(info)
		if err != nil {
			continue
		}
		resp.Responses = append(resp.Responses, raw)
	}

	if errs := metadataErrors(snap); len(errs) > 0 {
		raw, err := json.Marshal(map[string][]models.MetadataError{"metadata_errors": errs})
		if err == nil {
			resp.Response.Info = raw
		}
	}
	return resp
}

func metadataErrors(snap *metadata.Snapshot) []models.MetadataError {
	endpoints := make([]string, 0, len(snap.Errors))
	for ep, errs := range snap.Errors {
		if len(errs) > 0 {
			endpoints = append(endpoints, ep)
		}
	}
	sort.Strings(endpoints)

	out := make([]models.MetadataError, 0, len(endpoints))
	for _, ep := range endpoints {
		out = append(out, models.MetadataError{Endpoint: ep, Errors: snap.Errors[ep]})
	}
	return out
}
