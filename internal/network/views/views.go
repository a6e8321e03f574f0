// internal/network/views/views.go
package views

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"

	"beacon-network/internal/common/events"
	"beacon-network/internal/common/logger"
	"beacon-network/internal/models"
	"beacon-network/internal/network/metadata"
)

const filteringTermsPath = "/filtering_terms"

type SnapshotSource interface {
	Snapshot() *metadata.Snapshot
}

// set is one generation of derived documents. Documents are never mutated
// after the set is published.
type set struct {
	version        uint64
	info           *models.NetworkInfoResponse
	networkMap     *models.MapResponse
	configuration  *models.ConfigurationResponse
	entryTypes     *models.EntryTypesResponse
	filteringTerms map[string]*models.FilteringTermsResponse
	serviceInfo    *models.ServiceInfo
}

// Views serves the network's own metadata documents, derived from the
// registry and rebuilt lazily on the first read after a metadata update.
type Views struct {
	config *Config
	source SnapshotSource
	logger logger.Logger

	mu      sync.Mutex
	current atomic.Pointer[set]
	dirty   atomic.Bool
}

func New(config *Config, source SnapshotSource, log logger.Logger) *Views {
	v := &Views{
		config: config,
		source: source,
		logger: log.WithFields(map[string]interface{}{"component": "views"}),
	}
	v.dirty.Store(true)
	return v
}

func (v *Views) OnMetadataUpdated(events.MetadataUpdated) {
	v.dirty.Store(true)
}

func (v *Views) Info() *models.NetworkInfoResponse {
	return v.load().info
}

func (v *Views) Map() *models.MapResponse {
	return v.load().networkMap
}

// NetworkMap is the network's public endpoint contract used for routing.
func (v *Views) NetworkMap() *models.BeaconMap {
	return &v.load().networkMap.Response
}

func (v *Views) Configuration() *models.ConfigurationResponse {
	return v.load().configuration
}

func (v *Views) EntryTypes() *models.EntryTypesResponse {
	return v.load().entryTypes
}

func (v *Views) ServiceInfo() *models.ServiceInfo {
	return v.load().serviceInfo
}

// FilteringTerms returns the document served at path, relative to the
// network base: "/filtering_terms" or "/<entry type root>/filtering_terms".
func (v *Views) FilteringTerms(path string) (*models.FilteringTermsResponse, bool) {
	doc, ok := v.load().filteringTerms[path]
	return doc, ok
}

func (v *Views) load() *set {
	if s := v.current.Load(); s != nil && !v.dirty.Load() {
		return s
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dirty.CompareAndSwap(true, false) || v.current.Load() == nil {
		v.current.Store(v.build(v.source.Snapshot()))
	}
	return v.current.Load()
}

func (v *Views) build(snap *metadata.Snapshot) *set {
	beacons := make([]string, 0, len(snap.Endpoints))
	for id := range snap.Endpoints {
		beacons = append(beacons, id)
	}
	sort.Strings(beacons)

	s := &set{version: snap.Version}
	s.info = v.buildInfo(snap, beacons)
	s.networkMap = v.buildMap(snap, beacons)
	s.configuration = v.buildConfiguration(snap, beacons)
	s.entryTypes = &models.EntryTypesResponse{
		Meta:     v.meta(),
		Response: models.EntryTypes{EntryTypes: s.configuration.Response.EntryTypes},
	}
	s.filteringTerms = v.buildFilteringTerms(snap, beacons, s.networkMap)
	s.serviceInfo = v.buildServiceInfo()

	v.logger.Debug("network views rebuilt", map[string]interface{}{
		"version": snap.Version,
		"beacons": len(beacons),
	})
	return s
}

func (v *Views) meta() models.InformationalMeta {
	return models.InformationalMeta{
		BeaconID:        v.config.BeaconID,
		APIVersion:      v.config.APIVersion,
		ReturnedSchemas: []models.SchemaReference{},
	}
}

func (v *Views) organization() json.RawMessage {
	org := map[string]string{"id": v.config.Organization.ID, "name": v.config.Organization.Name}
	if v.config.Organization.URL != "" {
		org["welcomeUrl"] = v.config.Organization.URL
	}
	raw, _ := json.Marshal(org)
	return raw
}

func (v *Views) buildServiceInfo() *models.ServiceInfo {
	return &models.ServiceInfo{
		ID:   v.config.BeaconID,
		Name: v.config.Name,
		Type: models.ServiceType{
			Group:    "org.ga4gh",
			Artifact: "beacon",
			Version:  v.config.APIVersion,
		},
		Description: v.config.Description,
		Organization: models.ServiceOrganization{
			Name: v.config.Organization.Name,
			URL:  v.config.Organization.URL,
		},
		Version:     v.config.APIVersion,
		Environment: v.config.Environment,
	}
}
