// internal/network/engine/aggregator.go
package engine

import (
	"context"
	"errors"
	"time"

	apperrors "beacon-network/internal/common/errors"
	"beacon-network/internal/common/logger"
	"beacon-network/internal/common/metrics"
	"beacon-network/internal/models"
	"beacon-network/internal/network/dispatch"
	"beacon-network/internal/network/endpoints"
	"beacon-network/internal/network/router"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Router interface {
	Route(path string) (*router.Match, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req *dispatch.Request, templates []endpoints.Template) []*dispatch.Result
}

type Merger interface {
	Merge(body *models.RequestBody, results []*dispatch.Result) *models.BeaconResponse
}

// EndpointRemover drops a template that proved unreachable.
type EndpointRemover interface {
	RemoveEndpoint(templateURL string)
}

type Observability interface {
	Tracer() trace.Tracer
	RecordAggregation(ctx context.Context, capability, outcome string, duration time.Duration)
}

const (
	outcomeSuccess     = "success"
	outcomePartial     = "partial"
	outcomeFailed      = "failed"
	outcomeRoutingMiss = "routing_miss"
)

// Aggregator answers one inbound request from every backend that serves it.
type Aggregator struct {
	router     Router
	dispatcher Dispatcher
	merger     Merger
	remover    EndpointRemover
	obs        Observability
	logger     logger.Logger
}

func NewAggregator(r Router, d Dispatcher, m Merger, remover EndpointRemover, obs Observability, log logger.Logger) *Aggregator {
	return &Aggregator{
		router:     r,
		dispatcher: d,
		merger:     m,
		remover:    remover,
		obs:        obs,
		logger:     log.WithFields(map[string]interface{}{"component": "aggregator"}),
	}
}

// Aggregate routes, dispatches and merges. The only error returned is a
// routing miss; backend failures are folded into the response.
func (a *Aggregator) Aggregate(ctx context.Context, in *Inbound) (*models.BeaconResponse, error) {
	start := time.Now()
	correlationID := uuid.New().String()

	ctx, span := a.obs.Tracer().Start(ctx, "aggregate", trace.WithAttributes(
		attribute.String("beacon.path", in.Path),
		attribute.String("beacon.correlation_id", correlationID),
	))
	defer span.End()

	body, err := AnalyzeRequest(in)
	if err != nil {
		a.logger.Info("request not understood, forwarding as is", map[string]interface{}{
			"path":          in.Path,
			"correlationId": correlationID,
			"error":         err.Error(),
		})
	}

	match, err := a.router.Route(in.Path)
	if err != nil {
		capability := "unknown"
		if match != nil {
			capability = match.Key
		}
		a.observe(ctx, capability, outcomeRoutingMiss, start)
		if errors.Is(err, router.ErrNoMatch) {
			return nil, apperrors.NewRoutingMissError(in.Path)
		}
		return nil, apperrors.NewInternalError(err)
	}
	span.SetAttributes(attribute.String("beacon.capability", match.Key), attribute.Int("beacon.backends", len(match.Templates)))

	results := a.dispatcher.Dispatch(ctx, &dispatch.Request{
		Method:        in.Method,
		Path:          in.Path,
		RawQuery:      in.RawQuery,
		Body:          in.Body,
		Authorization: in.Authorization,
		TestMode:      body.IsTestMode(),
		CorrelationID: correlationID,
	}, match.Templates)

	succeeded := 0
	for _, r := range results {
		if r.IsSuccess() {
			succeeded++
		}
		if r.Unreachable && a.remover != nil {
			a.remover.RemoveEndpoint(r.Template)
		}
	}

	resp := a.merger.Merge(body, results)

	outcome := outcomeSuccess
	switch {
	case succeeded == 0:
		outcome = outcomeFailed
	case succeeded < len(results):
		outcome = outcomePartial
	}
	a.observe(ctx, match.Key, outcome, start)
	a.logger.Info("request aggregated", map[string]interface{}{
		"capability":    match.Key,
		"correlationId": correlationID,
		"backends":      len(results),
		"succeeded":     succeeded,
		"elapsedMs":     time.Since(start).Milliseconds(),
	})
	return resp, nil
}

func (a *Aggregator) observe(ctx context.Context, capability, outcome string, start time.Time) {
	metrics.Aggregations.WithLabelValues(capability, outcome).Inc()
	a.obs.RecordAggregation(ctx, capability, outcome, time.Since(start))
}
