// internal/network/metadata/kinds.go
package metadata

import (
	"encoding/json"
	"fmt"
	"strings"

	"beacon-network/internal/common/validation"
	"beacon-network/internal/models"
)

// Kind is one of the metadata documents a backend publishes.
type Kind string

const (
	KindInfo              Kind = "info"
	KindMap               Kind = "map"
	KindEntryTypes        Kind = "entry_types"
	KindConfiguration     Kind = "configuration"
	KindFilteringTerms    Kind = "filtering_terms"
	KindProtectedResource Kind = "protected_resource"
)

// DependentKinds are fetched after info has identified the backend.
var DependentKinds = []Kind{KindMap, KindEntryTypes, KindConfiguration, KindFilteringTerms, KindProtectedResource}

var kindPaths = map[Kind]string{
	KindInfo:              "/info",
	KindMap:               "/map",
	KindEntryTypes:        "/entry_types",
	KindConfiguration:     "/configuration",
	KindFilteringTerms:    "/filtering_terms?limit=0",
	KindProtectedResource: "/.well-known/oauth-protected-resource",
}

var kindSchemas = map[Kind]validation.SchemaName{
	KindInfo:              validation.SchemaInfo,
	KindMap:               validation.SchemaMap,
	KindEntryTypes:        validation.SchemaEntryTypes,
	KindConfiguration:     validation.SchemaConfiguration,
	KindFilteringTerms:    validation.SchemaFilteringTerms,
	KindProtectedResource: validation.SchemaProtectedResource,
}

// URL returns where the document lives for the given backend root.
func (k Kind) URL(endpoint string) string {
	return strings.TrimRight(endpoint, "/") + kindPaths[k]
}

func (k Kind) Schema() validation.SchemaName {
	return kindSchemas[k]
}

// Optional kinds may be missing without being reported as an error.
func (k Kind) Optional() bool {
	return k == KindProtectedResource
}

func decodeDocument(kind Kind, body []byte) (any, error) {
	switch kind {
	case KindInfo:
		return decodeAs[models.InfoResponse](body)
	case KindMap:
		return decodeAs[models.MapResponse](body)
	case KindEntryTypes:
		return decodeAs[models.EntryTypesResponse](body)
	case KindConfiguration:
		return decodeAs[models.ConfigurationResponse](body)
	case KindFilteringTerms:
		return decodeAs[models.FilteringTermsResponse](body)
	case KindProtectedResource:
		return decodeAs[models.ProtectedResource](body)
	}
	return nil, fmt.Errorf("unknown metadata kind %q", kind)
}

func decodeAs[T any](body []byte) (*T, error) {
	var doc T
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
