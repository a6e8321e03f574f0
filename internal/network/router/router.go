// internal/network/router/router.go
package router

import (
	"errors"
	"net/url"
	"strings"

	"beacon-network/internal/models"
	"beacon-network/internal/network/endpoints"
)

var ErrNoMatch = errors.New("ROUTING_MISS")

// MapSource supplies the network's own public map.
type MapSource interface {
	NetworkMap() *models.BeaconMap
}

// TemplateSource supplies backend templates by capability key.
type TemplateSource interface {
	Lookup(key string) []endpoints.Template
}

// Match is the capability an inbound path addresses and the backends that serve it.
type Match struct {
	Key       string
	Templates []endpoints.Template
}

type Router struct {
	maps    MapSource
	index   TemplateSource
	baseURL string
}

// NewRouter builds a router. baseURL is the network's public root; the
// network map's URLs are compared relative to it.
func NewRouter(maps MapSource, index TemplateSource, baseURL string) *Router {
	return &Router{maps: maps, index: index, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Route resolves path, already stripped of the network prefix, to its backends.
// ErrNoMatch is returned when no capability matches or no backend serves it.
func (r *Router) Route(path string) (*Match, error) {
	key, ok := r.Resolve(path)
	if !ok {
		return nil, ErrNoMatch
	}
	tpls := r.index.Lookup(key)
	if len(tpls) == 0 {
		return &Match{Key: key}, ErrNoMatch
	}
	return &Match{Key: key, Templates: tpls}, nil
}

// Resolve returns the capability key addressed by path. Endpoint sets are
// tried in declaration order; within a set the root is tried first, then the
// single-entry url, then related endpoints in declaration order.
func (r *Router) Resolve(path string) (string, bool) {
	m := r.maps.NetworkMap()
	if m == nil {
		return "", false
	}
	path = normalize(path)

	var (
		key   string
		found bool
	)
	for _, setKey := range models.Keys(m.EndpointSets) {
		ep, _ := m.EndpointSets.Get(setKey)
		entryType := ep.EntryType
		if entryType == "" {
			entryType = setKey
		}
		if r.matches(path, ep.RootURL) {
			return entryType, true
		}
		if r.matches(path, ep.SingleEntryURL) {
			return endpoints.SingleKey(entryType), true
		}
		models.Each(ep.Endpoints, func(relKey string, rel models.RelatedEndpoint) {
			if found || !r.matches(path, rel.URL) {
				return
			}
			related := rel.ReturnedEntryType
			if related == "" {
				related = relKey
			}
			key, found = endpoints.RelatedKey(entryType, related), true
		})
		if found {
			return key, true
		}
	}
	return "", false
}

func (r *Router) matches(path, template string) bool {
	if template == "" {
		return false
	}
	return MatchTemplate(path, r.relative(template))
}

// relative turns a network map url into a path below the network root.
func (r *Router) relative(template string) string {
	if rest, ok := strings.CutPrefix(template, r.baseURL); ok {
		return normalize(rest)
	}
	if u, err := url.Parse(template); err == nil && u.IsAbs() {
		return normalize(u.Path)
	}
	return normalize(template)
}

// MatchTemplate compares path and template segment by segment. A template
// segment wrapped in braces matches any value; lengths must be equal.
func MatchTemplate(path, template string) bool {
	ps := strings.Split(path, "/")
	ts := strings.Split(template, "/")
	if len(ps) != len(ts) {
		return false
	}
	for i, seg := range ts {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			continue
		}
		if ps[i] != seg {
			return false
		}
	}
	return true
}

func normalize(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
