// internal/network/metadata/snapshot.go
package metadata

import (
	"maps"

	"beacon-network/internal/models"
)

// Snapshot is one published registry state. Published snapshots are never
// modified; callers must treat every map as read-only.
type Snapshot struct {
	Version uint64

	// Endpoints maps beaconId to the backend root URL.
	Endpoints          map[string]string
	Infos              map[string]*models.InfoResponse
	Maps               map[string]*models.MapResponse
	EntryTypes         map[string]*models.EntryTypesResponse
	Configurations     map[string]*models.ConfigurationResponse
	FilteringTerms     map[string]*models.FilteringTermsResponse
	ProtectedResources map[string]*models.ProtectedResource

	// Errors maps a backend root URL to the problems of its last refresh.
	Errors map[string][]models.MetadataErrorLocation
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Endpoints:          map[string]string{},
		Infos:              map[string]*models.InfoResponse{},
		Maps:               map[string]*models.MapResponse{},
		EntryTypes:         map[string]*models.EntryTypesResponse{},
		Configurations:     map[string]*models.ConfigurationResponse{},
		FilteringTerms:     map[string]*models.FilteringTermsResponse{},
		ProtectedResources: map[string]*models.ProtectedResource{},
		Errors:             map[string][]models.MetadataErrorLocation{},
	}
}

// clone copies the maps; documents are shared since they are never mutated.
func (s *Snapshot) clone() *Snapshot {
	return &Snapshot{
		Version:            s.Version,
		Endpoints:          maps.Clone(s.Endpoints),
		Infos:              maps.Clone(s.Infos),
		Maps:               maps.Clone(s.Maps),
		EntryTypes:         maps.Clone(s.EntryTypes),
		Configurations:     maps.Clone(s.Configurations),
		FilteringTerms:     maps.Clone(s.FilteringTerms),
		ProtectedResources: maps.Clone(s.ProtectedResources),
		Errors:             maps.Clone(s.Errors),
	}
}

// BeaconID returns the id registered for endpoint, or "".
func (s *Snapshot) BeaconID(endpoint string) string {
	for id, ep := range s.Endpoints {
		if ep == endpoint {
			return id
		}
	}
	return ""
}

func (s *Snapshot) set(kind Kind, id string, doc any) {
	switch kind {
	case KindInfo:
		s.Infos[id] = doc.(*models.InfoResponse)
	case KindMap:
		s.Maps[id] = doc.(*models.MapResponse)
	case KindEntryTypes:
		s.EntryTypes[id] = doc.(*models.EntryTypesResponse)
	case KindConfiguration:
		s.Configurations[id] = doc.(*models.ConfigurationResponse)
	case KindFilteringTerms:
		s.FilteringTerms[id] = doc.(*models.FilteringTermsResponse)
	case KindProtectedResource:
		s.ProtectedResources[id] = doc.(*models.ProtectedResource)
	}
}

func (s *Snapshot) has(kind Kind, id string) bool {
	var ok bool
	switch kind {
	case KindInfo:
		_, ok = s.Infos[id]
	case KindMap:
		_, ok = s.Maps[id]
	case KindEntryTypes:
		_, ok = s.EntryTypes[id]
	case KindConfiguration:
		_, ok = s.Configurations[id]
	case KindFilteringTerms:
		_, ok = s.FilteringTerms[id]
	case KindProtectedResource:
		_, ok = s.ProtectedResources[id]
	}
	return ok
}

func (s *Snapshot) remove(kind Kind, id string) {
	switch kind {
	case KindInfo:
		delete(s.Infos, id)
	case KindMap:
		delete(s.Maps, id)
	case KindEntryTypes:
		delete(s.EntryTypes, id)
	case KindConfiguration:
		delete(s.Configurations, id)
	case KindFilteringTerms:
		delete(s.FilteringTerms, id)
	case KindProtectedResource:
		delete(s.ProtectedResources, id)
	}
}

// purge drops every document stored under id.
func (s *Snapshot) purge(id string) {
	delete(s.Endpoints, id)
	s.remove(KindInfo, id)
	for _, k := range DependentKinds {
		s.remove(k, id)
	}
}

// relocate moves every document from one id to another.
func (s *Snapshot) relocate(from, to string) {
	moveKey(s.Endpoints, from, to)
	moveKey(s.Infos, from, to)
	moveKey(s.Maps, from, to)
	moveKey(s.EntryTypes, from, to)
	moveKey(s.Configurations, from, to)
	moveKey(s.FilteringTerms, from, to)
	moveKey(s.ProtectedResources, from, to)
}

func moveKey[V any](m map[string]V, from, to string) {
	if v, ok := m[from]; ok {
		delete(m, from)
		m[to] = v
	}
}
