// internal/network/endpoints/index.go
package endpoints

import (
	"net/url"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"beacon-network/internal/common/events"
	"beacon-network/internal/common/logger"
	"beacon-network/internal/models"
	"beacon-network/internal/network/metadata"
)

// SnapshotSource supplies the registry state the index is derived from.
type SnapshotSource interface {
	Snapshot() *metadata.Snapshot
}

type table struct {
	beacons  []string
	byBeacon map[string][]Template
}

// Index flattens every backend map into absolute templates. It is rebuilt
// lazily on the first read after Invalidate.
type Index struct {
	source SnapshotSource
	logger logger.Logger

	mu      sync.Mutex
	current atomic.Pointer[table]
	dirty   atomic.Bool
}

func NewIndex(source SnapshotSource, log logger.Logger) *Index {
	idx := &Index{
		source: source,
		logger: log.WithFields(map[string]interface{}{"component": "endpoint-index"}),
	}
	idx.current.Store(&table{byBeacon: map[string][]Template{}})
	idx.dirty.Store(true)
	return idx
}

// OnMetadataUpdated marks the index stale.
func (idx *Index) OnMetadataUpdated(events.MetadataUpdated) {
	idx.Invalidate()
}

func (idx *Index) Invalidate() {
	idx.dirty.Store(true)
}

// Lookup returns every template registered under key, ordered by beacon id.
func (idx *Index) Lookup(key string) []Template {
	t := idx.load()
	var out []Template
	for _, id := range t.beacons {
		for _, tpl := range t.byBeacon[id] {
			if tpl.Key == key {
				out = append(out, tpl)
				break
			}
		}
	}
	return out
}

// Templates returns every template, ordered by beacon id then declaration.
func (idx *Index) Templates() []Template {
	t := idx.load()
	var out []Template
	for _, id := range t.beacons {
		out = append(out, t.byBeacon[id]...)
	}
	return out
}

// RemoveEndpoint drops every template with the given URL until the next rebuild.
func (idx *Index) RemoveEndpoint(templateURL string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	t := idx.freshLocked()
	next := &table{beacons: t.beacons, byBeacon: make(map[string][]Template, len(t.byBeacon))}
	removed := false
	for id, tpls := range t.byBeacon {
		kept := slices.DeleteFunc(slices.Clone(tpls), func(tpl Template) bool { return tpl.URL == templateURL })
		removed = removed || len(kept) != len(tpls)
		next.byBeacon[id] = kept
	}
	if removed {
		idx.current.Store(next)
		idx.logger.Warn("endpoint removed", map[string]interface{}{"url": templateURL})
	}
}

func (idx *Index) load() *table {
	if !idx.dirty.Load() {
		return idx.current.Load()
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.freshLocked()
}

func (idx *Index) freshLocked() *table {
	if idx.dirty.CompareAndSwap(true, false) {
		idx.current.Store(idx.rebuild(idx.source.Snapshot()))
	}
	return idx.current.Load()
}

func (idx *Index) rebuild(snap *metadata.Snapshot) *table {
	t := &table{byBeacon: make(map[string][]Template, len(snap.Maps))}
	for id, m := range snap.Maps {
		apiRoot, ok := snap.Endpoints[id]
		if !ok {
			continue
		}
		t.byBeacon[id] = idx.buildTemplates(id, apiRoot, m)
		t.beacons = append(t.beacons, id)
	}
	sort.Strings(t.beacons)

	idx.logger.Debug("endpoint index rebuilt", map[string]interface{}{
		"version": snap.Version,
		"beacons": len(t.beacons),
	})
	return t
}

func (idx *Index) buildTemplates(beaconID, apiRoot string, m *models.MapResponse) []Template {
	var out []Template
	models.Each(m.Response.EndpointSets, func(key string, ep models.Endpoint) {
		entryType := ep.EntryType
		if entryType == "" {
			entryType = key
		}
		if ep.RootURL == "" {
			return
		}

		base, segment, ok := SplitRoot(apiRoot, ep.RootURL)
		if !ok {
			idx.logger.Warn("unusable root url", map[string]interface{}{"beaconId": beaconID, "url": ep.RootURL})
			return
		}
		out = append(out, Template{BeaconID: beaconID, Key: entryType, URL: base + Sentinel + segment})

		add := func(key, raw string) {
			if rest, ok := Below(base, raw); ok {
				out = append(out, Template{BeaconID: beaconID, Key: key, URL: base + Sentinel + rest})
				return
			}
			idx.logger.Warn("endpoint outside backend root", map[string]interface{}{
				"beaconId": beaconID, "key": key, "url": raw,
			})
		}
		if ep.SingleEntryURL != "" {
			add(SingleKey(entryType), ep.SingleEntryURL)
		}
		models.Each(ep.Endpoints, func(relKey string, rel models.RelatedEndpoint) {
			if rel.URL == "" {
				return
			}
			related := rel.ReturnedEntryType
			if related == "" {
				related = relKey
			}
			add(RelatedKey(entryType, related), rel.URL)
		})
	})
	return out
}

// Resolve makes ref absolute against base, treated as a directory. Dot
// segments are resolved and placeholders are kept verbatim.
func Resolve(base, ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return strings.TrimSuffix(base, "/") + "/" + ref
	}
	if r.IsAbs() {
		return ref
	}
	b, err := url.Parse(strings.TrimSuffix(base, "/") + "/")
	if err != nil {
		return strings.TrimSuffix(base, "/") + "/" + ref
	}
	return placeholders.Replace(b.ResolveReference(r).String())
}

// placeholders undoes the escaping url.URL.String applies to braces.
var placeholders = strings.NewReplacer("%7B", "{", "%7D", "}", "%7b", "{", "%7d", "}")

// SplitRoot resolves an endpoint set's root URL against apiRoot and splits
// it into its parent and last segment.
func SplitRoot(apiRoot, rootURL string) (parent, segment string, ok bool) {
	root := strings.TrimSuffix(Resolve(apiRoot, rootURL), "/")
	cut := strings.LastIndex(root, "/")
	if cut <= strings.Index(root, "://")+2 {
		return "", "", false
	}
	return root[:cut], root[cut+1:], true
}

// Below resolves ref against parent and returns the part below it.
func Below(parent, ref string) (string, bool) {
	rest, ok := strings.CutPrefix(Resolve(parent, ref), parent+"/")
	if !ok {
		return "", false
	}
	return strings.TrimLeft(rest, "/"), true
}
