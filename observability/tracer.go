package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/prefkit/logger"
)

// TracerName is the instrumentation scope of prefkit's spans.
const TracerName = "github.com/kbukum/prefkit"

// Export describes the OTLP collector and how this process appears to it.
type Export struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP host:port, e.g. "localhost:4318".
	Endpoint string
	Insecure bool
}

func (e Export) resource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(e.ServiceName),
			semconv.ServiceVersion(e.ServiceVersion),
			semconv.DeploymentEnvironment(e.Environment),
		),
	)
}

// TracerConfig configures span export.
type TracerConfig struct {
	Export
	// SampleRate is the share of root operations traced, 0.0 to 1.0.
	// Operations started under a sampled parent follow the parent.
	SampleRate float64
}

// InitTracer installs a batching OTLP tracer provider and the W3C
// propagators globally. The caller shuts the provider down on exit.
func InitTracer(ctx context.Context, cfg TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Get("observability").Info("tracing enabled", logger.Fields(
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
	))
	return tp, nil
}

func sampler(rate float64) sdktrace.Sampler {
	root := sdktrace.TraceIDRatioBased(rate)
	switch {
	case rate >= 1:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(root)
}

// StartSpan starts a span on prefkit's tracer from the global provider.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, opts...)
}

// AnnotateSpan adds attributes to the span in ctx, if it is recording.
func AnnotateSpan(ctx context.Context, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

// SetSpanError records err on the span in ctx and marks the span failed.
func SetSpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Span names.
const (
	SpanResolve       = "prefkit.resolve"
	SpanPreferences   = "prefkit.preferences"
	SpanSetPreference = "prefkit.set_preference"
	SpanReconcile     = "prefkit.reconcile"
	SpanProvider      = "prefkit.provider"
)

// Attribute keys.
const (
	AttrOperationName = "operation.name"
	AttrPreference    = "preference.name"
	AttrResource      = "preference.resource"
	AttrConfigURI     = "preference.config_uri"
	AttrConfigName    = "preference.config_name"
	AttrFolder        = "preference.folder"
	AttrTier          = "preference.tier"
	AttrStatus        = "status"
	AttrDurationMs    = "duration_ms"
)
