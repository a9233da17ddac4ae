// Package telemetry wires OpenTelemetry traces and metrics. Attributes carry
// counts and entity types only, never text or original values.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/raaihank/pii-anonymizer"

// Attribute keys used on anonymization spans and metrics
const (
	EntitiesFound = attribute.Key("anonymizer.entities_found")
	EntityType    = attribute.Key("anonymizer.entity_type")
	TextLength    = attribute.Key("anonymizer.text_length")
	Operation     = attribute.Key("anonymizer.operation")
)

// Setup installs stdout exporters for traces and metrics. When enabled is
// false the global no-op providers stay in place and shutdown does nothing.
func Setup(serviceName, version string, enabled bool) (shutdown func(context.Context) error, err error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTel resource: %w", err)
	}

	traceExporter, err := stdouttrace.New()
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)
	otel.SetTracerProvider(tp)

	metricExporter, err := stdoutmetric.New()
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
	)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		var firstErr error
		if err := tp.Shutdown(ctx); err != nil {
			firstErr = err
		}
		if err := mp.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		return firstErr
	}, nil
}

// Tracer returns the service tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Recorder counts detected entities per type. Instruments created before
// Setup are forwarded once Setup installs the global provider.
type Recorder struct {
	entities metric.Int64Counter
	requests metric.Int64Counter
}

// NewRecorder creates the anonymizer instruments
func NewRecorder() (*Recorder, error) {
	meter := otel.Meter(instrumentationName)

	entities, err := meter.Int64Counter("anonymizer.entities",
		metric.WithDescription("Entities replaced, by type"),
		metric.WithUnit("{entity}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating entity counter: %w", err)
	}

	requests, err := meter.Int64Counter("anonymizer.requests",
		metric.WithDescription("Anonymization requests, by operation"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	return &Recorder{entities: entities, requests: requests}, nil
}

// Record adds one request and its per-type entity counts
func (r *Recorder) Record(ctx context.Context, operation string, breakdown map[string]int) {
	if r == nil {
		return
	}
	r.requests.Add(ctx, 1, metric.WithAttributes(Operation.String(operation)))
	for entityType, n := range breakdown {
		if n == 0 {
			continue
		}
		r.entities.Add(ctx, int64(n), metric.WithAttributes(EntityType.String(entityType)))
	}
}

// StartSpan starts a span for one anonymization call
func StartSpan(ctx context.Context, operation string, textLength int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "anonymizer."+operation,
		trace.WithAttributes(
			Operation.String(operation),
			TextLength.Int(textLength),
		),
	)
}

// EndSpan records the entity count and ends span. A non-nil err marks the
// span as failed.
func EndSpan(span trace.Span, entitiesFound int, err error) {
	span.SetAttributes(EntitiesFound.Int(entitiesFound))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
