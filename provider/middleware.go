package provider

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/prefkit/logger"
	"github.com/kbukum/prefkit/observability"
	"github.com/kbukum/prefkit/preference"
	"github.com/kbukum/prefkit/uri"
)

// Middleware wraps a provider created for opts.
type Middleware func(inner Provider, opts Options) Provider

// Chain composes middlewares. The first one is outermost:
// Chain(a, b, c)(p, o) is a(b(c(p, o), o), o).
func Chain(middlewares ...Middleware) Middleware {
	return func(inner Provider, opts Options) Provider {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner, opts)
		}
		return inner
	}
}

// WithLogging logs writes and failed loads.
func WithLogging(log *logger.Logger) Middleware {
	return func(inner Provider, opts Options) Provider {
		return &loggingProvider{Provider: inner, log: log, configURI: opts.ConfigURI.String()}
	}
}

type loggingProvider struct {
	Provider
	log       *logger.Logger
	configURI string
}

func (l *loggingProvider) SetPreference(ctx context.Context, name string, value any, resource uri.URI) bool {
	start := time.Now()
	ok := l.Provider.SetPreference(ctx, name, value, resource)
	fields := logger.Fields(
		logger.FieldConfigURI, l.configURI,
		logger.FieldPreference, name,
		logger.FieldDuration, time.Since(start).String(),
		"accepted", ok,
	)
	l.log.Debug("provider write", fields)
	return ok
}

func (l *loggingProvider) Ready(ctx context.Context) error {
	err := l.Provider.Ready(ctx)
	if err != nil {
		l.log.Warn("provider load failed", logger.MergeWithError(logger.Fields(logger.FieldConfigURI, l.configURI), err))
	}
	return err
}

// WithMetrics records lookup timings and load failures.
func WithMetrics(metrics *observability.Metrics) Middleware {
	return func(inner Provider, opts Options) Provider {
		return &metricsProvider{Provider: inner, metrics: metrics, configName: opts.ConfigName}
	}
}

type metricsProvider struct {
	Provider
	metrics    *observability.Metrics
	configName string
}

func (m *metricsProvider) Resolve(name string, resource uri.URI) preference.ResolveResult {
	start := time.Now()
	res := m.Provider.Resolve(name, resource)
	m.metrics.RecordLookup(context.Background(), "provider."+m.configName, res.Found(), time.Since(start))
	return res
}

func (m *metricsProvider) Ready(ctx context.Context) error {
	err := m.Provider.Ready(ctx)
	if err != nil {
		m.metrics.RecordError(ctx, "load", m.configName)
	}
	return err
}

// WithTracing opens a span around writes and the initial load. Spans are
// named "{serviceName}.provider.{configName}".
func WithTracing(serviceName string) Middleware {
	return func(inner Provider, opts Options) Provider {
		return &tracingProvider{
			Provider: inner,
			spanName: serviceName + ".provider." + opts.ConfigName,
			attrs: []attribute.KeyValue{
				attribute.String(observability.AttrConfigURI, opts.ConfigURI.String()),
				attribute.String(observability.AttrConfigName, opts.ConfigName),
				attribute.String(observability.AttrFolder, opts.Folder.String()),
			},
		}
	}
}

type tracingProvider struct {
	Provider
	spanName string
	attrs    []attribute.KeyValue
}

func (t *tracingProvider) SetPreference(ctx context.Context, name string, value any, resource uri.URI) bool {
	ctx, span := observability.StartSpan(ctx, t.spanName)
	defer span.End()
	span.SetAttributes(t.attrs...)
	span.SetAttributes(
		attribute.String(observability.AttrOperationName, "set"),
		attribute.String(observability.AttrPreference, name),
	)
	ok := t.Provider.SetPreference(ctx, name, value, resource)
	span.SetAttributes(attribute.Bool("accepted", ok))
	return ok
}

func (t *tracingProvider) Ready(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, t.spanName)
	defer span.End()
	span.SetAttributes(t.attrs...)
	span.SetAttributes(attribute.String(observability.AttrOperationName, "ready"))
	err := t.Provider.Ready(ctx)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return err
}
