// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_backend_requests_total",
			Help: "Backend query calls by classified outcome",
		},
		[]string{"beacon_id", "outcome"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beacon_backend_request_duration_seconds",
			Help:    "Duration of backend query calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 600},
		},
		[]string{"beacon_id"},
	)

	Aggregations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_aggregations_total",
			Help: "Inbound aggregated requests by capability and outcome",
		},
		[]string{"capability", "outcome"},
	)

	MetadataRefresh = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_metadata_refresh_total",
			Help: "Metadata document refreshes by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	RegistryBackends = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "beacon_registry_backends",
			Help: "Number of backends currently known to the registry",
		},
	)

	TokenExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_token_exchanges_total",
			Help: "Token exchange attempts by outcome",
		},
		[]string{"outcome"},
	)
)
