package router

import (
	"encoding/json"
	"testing"

	"beacon-network/internal/models"
	"beacon-network/internal/network/endpoints"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticMap struct{ m *models.BeaconMap }

func (s staticMap) NetworkMap() *models.BeaconMap { return s.m }

type staticIndex map[string][]endpoints.Template

func (s staticIndex) Lookup(key string) []endpoints.Template { return s[key] }

const networkBase = "https://network.example.org/beacon-network/v2.0.0"

func createTestRouter(t *testing.T) *Router {
	t.Helper()
	var m models.BeaconMap
	require.NoError(t, json.Unmarshal([]byte(`{"endpointSets":{
		"genomicVariant":{"entryType":"genomicVariant",
			"rootUrl":"`+networkBase+`/g_variants",
			"singleEntryUrl":"`+networkBase+`/g_variants/{id}",
			"endpoints":{
				"biosample":{"returnedEntryType":"biosample","url":"`+networkBase+`/g_variants/{id}/biosamples"},
				"individual":{"url":"`+networkBase+`/g_variants/{variantId}/individuals"}}},
		"individual":{"entryType":"individual",
			"rootUrl":"`+networkBase+`/individuals",
			"singleEntryUrl":"`+networkBase+`/individuals/{id}"}}}`), &m))

	index := staticIndex{
		"genomicVariant": {
			{BeaconID: "org.a", Key: "genomicVariant", URL: "https://a.example.org/api//g_variants"},
			{BeaconID: "org.b", Key: "genomicVariant", URL: "https://b.example.org//g_variants"},
		},
		"genomicVariant:biosample": {
			{BeaconID: "org.a", Key: "genomicVariant:biosample", URL: "https://a.example.org/api//g_variants/{id}/biosamples"},
		},
	}
	return NewRouter(staticMap{m: &m}, index, networkBase+"/")
}

func TestMatchTemplate(t *testing.T) {
	tests := []struct {
		path, template string
		want           bool
	}{
		{"/g_variants", "/g_variants", true},
		{"/g_variants/123", "/g_variants/{id}", true},
		{"/g_variants/123/biosamples", "/g_variants/{id}/biosamples", true},
		{"/g_variants/123/individuals", "/g_variants/{id}/biosamples", false},
		{"/g_variants/123", "/g_variants", false},
		{"/g_variants", "/g_variants/{id}", false},
		{"/individuals", "/g_variants", false},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.template, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchTemplate(tt.path, tt.template))
		})
	}
}

func TestRouter_Resolve(t *testing.T) {
	r := createTestRouter(t)
	tests := []struct {
		path    string
		wantKey string
		wantOK  bool
	}{
		{"/g_variants", "genomicVariant", true},
		{"/g_variants/", "genomicVariant", true},
		{"g_variants", "genomicVariant", true},
		{"/g_variants/rs123", "genomicVariant:genomicVariant", true},
		{"/g_variants/rs123/biosamples", "genomicVariant:biosample", true},
		{"/g_variants/rs123/individuals", "genomicVariant:individual", true},
		{"/individuals/42", "individual:individual", true},
		{"/cohorts", "", false},
		{"/g_variants/rs123/biosamples/extra", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			key, ok := r.Resolve(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestRouter_Route(t *testing.T) {
	r := createTestRouter(t)

	m, err := r.Route("/g_variants")
	require.NoError(t, err)
	assert.Equal(t, "genomicVariant", m.Key)
	require.Len(t, m.Templates, 2)
	assert.Equal(t, "org.a", m.Templates[0].BeaconID)

	again, err := r.Route("/g_variants")
	require.NoError(t, err)
	assert.Equal(t, m, again)

	_, err = r.Route("/cohorts")
	assert.ErrorIs(t, err, ErrNoMatch)

	m, err = r.Route("/individuals")
	assert.ErrorIs(t, err, ErrNoMatch, "capability known but no backend serves it")
	assert.Equal(t, "individual", m.Key)
}

func TestRouter_NoNetworkMap(t *testing.T) {
	r := NewRouter(staticMap{}, staticIndex{}, networkBase)
	_, err := r.Route("/g_variants")
	assert.ErrorIs(t, err, ErrNoMatch)
}
