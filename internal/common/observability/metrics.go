package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config selects the exporters.
type Config struct {
	ServiceName    string
	TracingEnabled bool
	JaegerEndpoint string
}

// Observability owns the OpenTelemetry meter and tracer providers.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	aggCounter     otelmetric.Int64Counter
	aggDuration    otelmetric.Float64Histogram
}

// New wires a prometheus-backed meter and, when enabled, a jaeger-backed tracer.
func New(cfg Config) (*Observability, error) {
	o := &Observability{tracer: noop.NewTracerProvider().Tracer(cfg.ServiceName)}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(o.meterProvider)

	meter := o.meterProvider.Meter(cfg.ServiceName)
	o.aggCounter, _ = meter.Int64Counter(
		"aggregations.processed",
		otelmetric.WithDescription("Number of aggregated network requests"),
	)
	o.aggDuration, _ = meter.Float64Histogram(
		"aggregations.duration",
		otelmetric.WithDescription("Aggregated request duration"),
		otelmetric.WithUnit("ms"),
	)

	if cfg.TracingEnabled {
		spanExporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
		if err != nil {
			return nil, fmt.Errorf("create jaeger exporter: %w", err)
		}
		o.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spanExporter),
			sdktrace.WithResource(resource.NewSchemaless(semconv.ServiceName(cfg.ServiceName))),
		)
		otel.SetTracerProvider(o.tracerProvider)
		o.tracer = o.tracerProvider.Tracer(cfg.ServiceName)
	}

	return o, nil
}

// NewNoop returns an Observability that records nothing.
func NewNoop() *Observability {
	return &Observability{tracer: noop.NewTracerProvider().Tracer("noop")}
}

func (o *Observability) Tracer() trace.Tracer {
	return o.tracer
}

func (o *Observability) RecordAggregation(ctx context.Context, capability, outcome string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("capability", capability),
		attribute.String("outcome", outcome),
	)
	if o.aggCounter != nil {
		o.aggCounter.Add(ctx, 1, attrs)
	}
	if o.aggDuration != nil {
		o.aggDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
