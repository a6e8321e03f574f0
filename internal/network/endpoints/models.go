// internal/network/endpoints/models.go
package endpoints

import "strings"

// Sentinel separates a backend's own root from the path that follows it.
const Sentinel = "//"

// Template is one routable backend URL.
type Template struct {
	BeaconID string
	// Key is the capability key: "type", "type:type" or "type:related".
	Key string
	// URL is absolute and carries Sentinel exactly once after the scheme.
	URL string
}

// Base is the backend root the inbound path is appended to.
func (t Template) Base() string {
	if i := strings.LastIndex(t.URL, Sentinel); i > 0 {
		return t.URL[:i]
	}
	return t.URL
}

// Path is the template path below the backend root, starting with "/".
func (t Template) Path() string {
	if i := strings.LastIndex(t.URL, Sentinel); i > 0 {
		return t.URL[i+1:]
	}
	return ""
}

// SingleKey is the capability key of an entry type's single-entry endpoint.
func SingleKey(entryType string) string {
	return entryType + ":" + entryType
}

// RelatedKey is the capability key of a related endpoint.
func RelatedKey(entryType, related string) string {
	return entryType + ":" + related
}
