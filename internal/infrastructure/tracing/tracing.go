// Package tracing wires OpenTelemetry tracing for the analytics service.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing initializes distributed tracing with an OTLP gRPC exporter.
func InitTracing(serviceName, environment, endpoint string) (*TracerProvider, error) {
	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(), // Use TLS in production
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.DeploymentEnvironment(environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &TracerProvider{
		provider: tp,
		tracer:   tp.Tracer(serviceName),
	}, nil
}

// New wraps an already-constructed SDK provider. Used when the caller
// supplies its own exporter, such as an in-memory recorder.
func New(provider *sdktrace.TracerProvider, serviceName string) *TracerProvider {
	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
	}
}

// Shutdown gracefully shuts down the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.provider.Shutdown(ctx)
}

// StartSpan starts a new span.
func (tp *TracerProvider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tp.tracer.Start(ctx, name, opts...)
}

// TraceQuery wraps one analytic query execution in a span.
func (tp *TracerProvider) TraceQuery(ctx context.Context, queryType string, fn func(context.Context)) {
	ctx, span := tp.tracer.Start(ctx, "query.execute",
		trace.WithAttributes(attribute.String("query.type", queryType)),
	)
	defer span.End()
	fn(ctx)
}

// TraceReplay wraps a signal-log replay in a span and records the number of
// signals applied.
func (tp *TracerProvider) TraceReplay(ctx context.Context, fn func(context.Context) int) {
	ctx, span := tp.tracer.Start(ctx, "signallog.replay")
	defer span.End()
	applied := fn(ctx)
	span.SetAttributes(attribute.Int("signals.applied", applied))
}
