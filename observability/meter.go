package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/prefkit/logger"
)

// MeterName is the instrumentation scope of prefkit's instruments.
const MeterName = "github.com/kbukum/prefkit"

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	Export
	// Interval is how often readings are pushed.
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := config.resource()
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("metrics export enabled", logger.Fields(
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the engine's instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	providersCreated  metric.Int64Counter
	providersDisposed metric.Int64Counter
	providersActive   metric.Int64UpDownCounter
	reconcileTotal    metric.Int64Counter
	reconcileDuration metric.Float64Histogram
	lookupTotal       metric.Int64Counter
	lookupDuration    metric.Float64Histogram
	writeTotal        metric.Int64Counter
	errorTotal        metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.providersCreated, err = meter.Int64Counter("prefkit.providers.created",
		metric.WithDescription("Providers created by reconcile passes")); err != nil {
		return nil, fmt.Errorf("creating prefkit.providers.created counter: %w", err)
	}
	if m.providersDisposed, err = meter.Int64Counter("prefkit.providers.disposed",
		metric.WithDescription("Providers disposed by reconcile passes")); err != nil {
		return nil, fmt.Errorf("creating prefkit.providers.disposed counter: %w", err)
	}
	if m.providersActive, err = meter.Int64UpDownCounter("prefkit.providers.active",
		metric.WithDescription("Providers currently registered")); err != nil {
		return nil, fmt.Errorf("creating prefkit.providers.active gauge: %w", err)
	}
	if m.reconcileTotal, err = meter.Int64Counter("prefkit.reconcile.total",
		metric.WithDescription("Provider reconcile passes")); err != nil {
		return nil, fmt.Errorf("creating prefkit.reconcile.total counter: %w", err)
	}
	if m.reconcileDuration, err = meter.Float64Histogram("prefkit.reconcile.duration",
		metric.WithDescription("Duration of reconcile passes in seconds"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating prefkit.reconcile.duration histogram: %w", err)
	}
	if m.lookupTotal, err = meter.Int64Counter("prefkit.lookup.total",
		metric.WithDescription("Resolve and preference map lookups")); err != nil {
		return nil, fmt.Errorf("creating prefkit.lookup.total counter: %w", err)
	}
	if m.lookupDuration, err = meter.Float64Histogram("prefkit.lookup.duration",
		metric.WithDescription("Duration of lookups in seconds"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating prefkit.lookup.duration histogram: %w", err)
	}
	if m.writeTotal, err = meter.Int64Counter("prefkit.write.total",
		metric.WithDescription("Preference writes by candidate tier and outcome")); err != nil {
		return nil, fmt.Errorf("creating prefkit.write.total counter: %w", err)
	}
	if m.errorTotal, err = meter.Int64Counter("prefkit.errors.total",
		metric.WithDescription("Errors by type and component")); err != nil {
		return nil, fmt.Errorf("creating prefkit.errors.total counter: %w", err)
	}
	return &m, nil
}

// DefaultMetrics builds instruments on the global meter provider, which is
// a no-op until InitMeter runs.
func DefaultMetrics() *Metrics {
	m, err := NewMetrics(Meter(MeterName))
	if err != nil {
		logger.Get("observability").Warn("metrics disabled", logger.Fields(logger.FieldError, err.Error()))
		return nil
	}
	return m
}

// RecordProviderCreated counts a provider added for configName.
func (m *Metrics) RecordProviderCreated(ctx context.Context, configName string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrConfigName, configName))
	m.providersCreated.Add(ctx, 1, attrs)
	m.providersActive.Add(ctx, 1, attrs)
}

// RecordProviderDisposed counts a provider removed for configName.
func (m *Metrics) RecordProviderDisposed(ctx context.Context, configName string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrConfigName, configName))
	m.providersDisposed.Add(ctx, 1, attrs)
	m.providersActive.Add(ctx, -1, attrs)
}

// RecordReconcile records one reconcile pass.
func (m *Metrics) RecordReconcile(ctx context.Context, changed bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.reconcileTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("changed", changed)))
	m.reconcileDuration.Record(ctx, duration.Seconds())
}

// RecordLookup records a resolve or preference map lookup.
func (m *Metrics) RecordLookup(ctx context.Context, operation string, found bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.lookupTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrOperationName, operation),
		attribute.Bool("found", found),
	))
	m.lookupDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrOperationName, operation),
	))
}

// RecordWrite records a write attempt against a candidate of the given tier.
func (m *Metrics) RecordWrite(ctx context.Context, tier string, accepted bool) {
	if m == nil {
		return
	}
	status := "rejected"
	if accepted {
		status = "accepted"
	}
	m.writeTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrTier, tier),
		attribute.String(AttrStatus, status),
	))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
