package models

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// InformationalMeta is the meta block of metadata (non-query) responses.
type InformationalMeta struct {
	BeaconID        string            `json:"beaconId,omitempty"`
	APIVersion      string            `json:"apiVersion,omitempty"`
	ReturnedSchemas []SchemaReference `json:"returnedSchemas"`
}

// ==========================
// /info
// ==========================

type BeaconInfo struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	APIVersion     string          `json:"apiVersion"`
	Environment    string          `json:"environment,omitempty"`
	Organization   json.RawMessage `json:"organization,omitempty"`
	Description    string          `json:"description,omitempty"`
	Version        string          `json:"version,omitempty"`
	WelcomeURL     string          `json:"welcomeUrl,omitempty"`
	AlternativeURL string          `json:"alternativeUrl,omitempty"`
	CreateDateTime string          `json:"createDateTime,omitempty"`
	UpdateDateTime string          `json:"updateDateTime,omitempty"`
	Info           json.RawMessage `json:"info,omitempty"`
}

type InfoResponse struct {
	Meta     InformationalMeta `json:"meta"`
	Response BeaconInfo        `json:"response"`
}

// NetworkInfoResponse is the network's own /info, carrying every backend's info.
type NetworkInfoResponse struct {
	Meta      InformationalMeta `json:"meta"`
	Response  BeaconInfo        `json:"response"`
	Responses []json.RawMessage `json:"responses"`
}

// MetadataError lists the violations recorded for one backend endpoint.
type MetadataError struct {
	Endpoint string                  `json:"endpoint"`
	Errors   []MetadataErrorLocation `json:"errors"`
}

type MetadataErrorLocation struct {
	Location string `json:"location,omitempty"`
	Message  string `json:"message"`
}

// ==========================
// /map
// ==========================

type MapResponse struct {
	Meta     InformationalMeta `json:"meta"`
	Response BeaconMap         `json:"response"`
}

type BeaconMap struct {
	Schema       string                                   `json:"$schema,omitempty"`
	EndpointSets *orderedmap.OrderedMap[string, Endpoint] `json:"endpointSets"`
}

type Endpoint struct {
	EntryType                  string                                          `json:"entryType,omitempty"`
	RootURL                    string                                          `json:"rootUrl"`
	SingleEntryURL             string                                          `json:"singleEntryUrl,omitempty"`
	FilteringTermsURL          string                                          `json:"filteringTermsUrl,omitempty"`
	OpenAPIEndpointsDefinition string                                          `json:"openAPIEndpointsDefinition,omitempty"`
	Endpoints                  *orderedmap.OrderedMap[string, RelatedEndpoint] `json:"endpoints,omitempty"`
}

type RelatedEndpoint struct {
	ReturnedEntryType string `json:"returnedEntryType,omitempty"`
	URL               string `json:"url"`
}

// ==========================
// /configuration and /entry_types
// ==========================

type ConfigurationResponse struct {
	Meta     InformationalMeta   `json:"meta"`
	Response BeaconConfiguration `json:"response"`
}

type BeaconConfiguration struct {
	Schema             string                                              `json:"$schema,omitempty"`
	MaturityAttributes json.RawMessage                                     `json:"maturityAttributes,omitempty"`
	SecurityAttributes json.RawMessage                                     `json:"securityAttributes,omitempty"`
	EntryTypes         *orderedmap.OrderedMap[string, EntryTypeDefinition] `json:"entryTypes"`
}

type EntryTypeDefinition struct {
	ID                           string             `json:"id"`
	Name                         string             `json:"name,omitempty"`
	Description                  string             `json:"description,omitempty"`
	OntologyTermForThisType      json.RawMessage    `json:"ontologyTermForThisType,omitempty"`
	PartOfSpecification          string             `json:"partOfSpecification,omitempty"`
	DefaultSchema                *SchemaDefinition  `json:"defaultSchema,omitempty"`
	AdditionallySupportedSchemas []SchemaDefinition `json:"additionallySupportedSchemas,omitempty"`
	NonFilteredQueriesAllowed    *bool              `json:"nonFilteredQueriesAllowed,omitempty"`
}

type SchemaDefinition struct {
	ID                          string `json:"id"`
	Name                        string `json:"name,omitempty"`
	ReferenceToSchemaDefinition string `json:"referenceToSchemaDefinition,omitempty"`
	SchemaVersion               string `json:"schemaVersion,omitempty"`
}

type EntryTypesResponse struct {
	Meta     InformationalMeta `json:"meta"`
	Response EntryTypes        `json:"response"`
}

type EntryTypes struct {
	EntryTypes *orderedmap.OrderedMap[string, EntryTypeDefinition] `json:"entryTypes"`
}

// ==========================
// /filtering_terms
// ==========================

type FilteringTermsResponse struct {
	Meta     InformationalMeta `json:"meta"`
	Response FilteringTerms    `json:"response"`
}

type FilteringTerms struct {
	FilteringTerms []FilteringTerm `json:"filteringTerms"`
	Resources      []Resource      `json:"resources,omitempty"`
}

type FilteringTerm struct {
	Type   string   `json:"type"`
	ID     string   `json:"id"`
	Label  string   `json:"label,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
}

type Resource struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	URL             string `json:"url,omitempty"`
	Version         string `json:"version,omitempty"`
	NamespacePrefix string `json:"namespacePrefix,omitempty"`
	IRIPrefix       string `json:"iriPrefix,omitempty"`
}

// ==========================
// OAuth descriptors
// ==========================

// ProtectedResource is the RFC 9728 descriptor a backend publishes.
type ProtectedResource struct {
	Resource             string   `json:"resource,omitempty"`
	ClientID             string   `json:"client_id,omitempty"`
	AuthorizationServers []string `json:"authorization_servers,omitempty"`
}

// OIDCProvider is the subset of an OpenID discovery document the gateway uses.
type OIDCProvider struct {
	Issuer        string `json:"issuer"`
	TokenEndpoint string `json:"token_endpoint"`
}

// ==========================
// GA4GH service-info
// ==========================

type ServiceInfo struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Type         ServiceType         `json:"type"`
	Description  string              `json:"description,omitempty"`
	Organization ServiceOrganization `json:"organization"`
	Version      string              `json:"version"`
	Environment  string              `json:"environment,omitempty"`
}

type ServiceType struct {
	Group    string `json:"group"`
	Artifact string `json:"artifact"`
	Version  string `json:"version"`
}

type ServiceOrganization struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}
