package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	commonerrors "beacon-network/internal/common/errors"
	commonhttp "beacon-network/internal/common/http"
	"beacon-network/internal/common/logger"
	"beacon-network/internal/common/observability"
	"beacon-network/internal/common/validation"
	"beacon-network/internal/models"
	"beacon-network/internal/network/dispatch"
	"beacon-network/internal/network/endpoints"
	"beacon-network/internal/network/merge"
	"beacon-network/internal/network/metadata"
	"beacon-network/internal/network/router"
	"beacon-network/internal/network/views"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fixtures
// ==========================

const networkBase = "https://network.example.org/api"

type staticSource struct{ snap *metadata.Snapshot }

func (s staticSource) Snapshot() *metadata.Snapshot { return s.snap }

type backend struct {
	beaconID string
	root     string
}

func addBackend(t *testing.T, snap *metadata.Snapshot, b backend) {
	t.Helper()
	var m models.MapResponse
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(`{"meta":{"returnedSchemas":[]},"response":{"endpointSets":{
		"genomicVariant":{"entryType":"genomicVariant","rootUrl":"%[1]s/g_variants","singleEntryUrl":"%[1]s/g_variants/{id}"}}}}`,
		b.root)), &m))
	snap.Endpoints[b.beaconID] = b.root
	snap.Maps[b.beaconID] = &m
}

func recordsBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/g_variants" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"meta":{"beaconId":"org.x"},
			"responseSummary":{"exists":true,"numTotalResults":3},
			"response":{"resultSets":[{"id":"r1","exists":true},{"id":"r2","exists":true},{"id":"r3","exists":true}]}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func hangingBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	aggregator *Aggregator
	index      *endpoints.Index
}

func createTestAggregator(t *testing.T, backends ...backend) *harness {
	t.Helper()
	log := logger.NewTestLogger(t)
	snap := metadata.NewSnapshot()
	for _, b := range backends {
		addBackend(t, snap, b)
	}
	src := staticSource{snap: snap}

	index := endpoints.NewIndex(src, log)
	vw := views.New(&views.Config{BeaconID: "org.network", APIVersion: "v2.0.0", BaseURL: networkBase}, src, log)
	validator, err := validation.NewSchemaValidator()
	require.NoError(t, err)

	d := dispatch.NewDispatcher(
		&dispatch.Config{RequestTimeout: 300 * time.Millisecond, AwaitTimeout: time.Second, UserAgent: dispatch.DefaultUserAgent},
		commonhttp.NewClient(0, dispatch.DefaultUserAgent), validator, nil, nil, nil, log,
	)
	agg := NewAggregator(
		router.NewRouter(vw, index, networkBase), d,
		merge.NewMerger(merge.Identity{BeaconID: "org.network", APIVersion: "v2.0.0"}),
		index, observability.NewNoop(), log,
	)
	return &harness{aggregator: agg, index: index}
}

// ==========================
// Scenarios
// ==========================

func TestAggregate_RecordsAndTimeoutPlaceholder(t *testing.T) {
	x := recordsBackend(t)
	y := hangingBackend(t)
	h := createTestAggregator(t,
		backend{beaconID: "org.x", root: x.URL + "/api"},
		backend{beaconID: "org.y", root: y.URL + "/api"},
	)

	resp, err := h.aggregator.Aggregate(context.Background(), &Inbound{
		Method:   http.MethodGet,
		Path:     "/g_variants",
		RawQuery: "includeResultsetResponses=ALL",
	})
	require.NoError(t, err)
	require.Equal(t, models.ResponseResultsets, resp.Kind)

	rs := resp.Resultsets
	assert.Equal(t, "org.network", rs.Meta.BeaconID)
	assert.True(t, rs.ResponseSummary.Exists)
	require.NotNil(t, rs.ResponseSummary.NumTotalResults)
	assert.Equal(t, 3, *rs.ResponseSummary.NumTotalResults)

	sets := rs.Response.ResultSets
	require.Len(t, sets, 4)
	for _, r := range sets[:3] {
		assert.Equal(t, "org.x", r.BeaconID)
		assert.True(t, r.Exists)
	}
	placeholder := sets[3]
	assert.Equal(t, "org.y", placeholder.BeaconID)
	assert.False(t, placeholder.Exists)

	var info struct {
		Error models.BeaconError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(placeholder.Info, &info))
	assert.Equal(t, http.StatusRequestTimeout, info.Error.ErrorCode)
	assert.Contains(t, info.Error.ErrorMessage, "request timeout")
}

func TestAggregate_HitPolicyFromPostBody(t *testing.T) {
	x := recordsBackend(t)
	y := hangingBackend(t)
	h := createTestAggregator(t,
		backend{beaconID: "org.x", root: x.URL + "/api"},
		backend{beaconID: "org.y", root: y.URL + "/api"},
	)

	resp, err := h.aggregator.Aggregate(context.Background(), &Inbound{
		Method: http.MethodPost,
		Path:   "/g_variants",
		Body:   []byte(`{"query":{"includeResultsetResponses":"HIT"}}`),
	})
	require.NoError(t, err)
	assert.Len(t, resp.Resultsets.Response.ResultSets, 3)
	assert.Equal(t, "HIT", resp.Resultsets.Meta.ReceivedRequestSummary.IncludeResultsetResponses)
}

func TestAggregate_RoutingMiss(t *testing.T) {
	x := recordsBackend(t)
	h := createTestAggregator(t, backend{beaconID: "org.x", root: x.URL + "/api"})

	resp, err := h.aggregator.Aggregate(context.Background(), &Inbound{Method: http.MethodGet, Path: "/cohorts"})
	assert.Nil(t, resp)

	var stdErr *commonerrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, commonerrors.ErrCodeRoutingMiss, stdErr.Code)
}

func TestAggregate_UnreachableBackendIsRemoved(t *testing.T) {
	x := recordsBackend(t)
	gone := httptest.NewServer(http.NotFoundHandler())
	goneRoot := gone.URL + "/api"
	gone.Close()

	h := createTestAggregator(t,
		backend{beaconID: "org.gone", root: goneRoot},
		backend{beaconID: "org.x", root: x.URL + "/api"},
	)
	require.Len(t, h.index.Lookup("genomicVariant"), 2)

	resp, err := h.aggregator.Aggregate(context.Background(), &Inbound{Method: http.MethodGet, Path: "/g_variants"})
	require.NoError(t, err)
	assert.Len(t, resp.Resultsets.Response.ResultSets, 4, "three records and one placeholder")

	remaining := h.index.Lookup("genomicVariant")
	require.Len(t, remaining, 1)
	assert.Equal(t, "org.x", remaining[0].BeaconID)
	assert.Len(t, h.index.Lookup("genomicVariant:genomicVariant"), 2, "other templates of the backend stay")
}
