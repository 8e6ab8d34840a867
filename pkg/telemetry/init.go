// Package telemetry wires OpenTelemetry tracing for the process.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// EndpointEnv is read when no endpoint is configured.
const EndpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// Init installs a global tracer provider for the analysis spans and returns
// its shutdown. Spans go to endpoint (or $OTEL_EXPORTER_OTLP_ENDPOINT) over
// OTLP/HTTP, or are dropped when neither is set.
func Init(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	return initWithWriter(ctx, serviceName, serviceVersion, endpoint, io.Discard)
}

func initWithWriter(ctx context.Context, serviceName, serviceVersion, endpoint string, w io.Writer) (func(context.Context) error, error) {
	res, err := serviceResource(serviceName, serviceVersion)
	if err != nil {
		return nil, err
	}
	exporter, err := newExporter(ctx, endpoint, w)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp.Shutdown, nil
}

// serviceResource describes the process. The service attributes carry no
// schema URL of their own, so they merge with whatever schema the SDK's
// default resource uses.
func serviceResource(name, version string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(name),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func newExporter(ctx context.Context, endpoint string, w io.Writer) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		endpoint = os.Getenv(EndpointEnv)
	}
	if endpoint == "" {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		return exporter, nil
	}
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter for %s: %w", endpoint, err)
	}
	return exporter, nil
}
