package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation tracks one traced, timed engine call.
type Operation struct {
	name    string
	start   time.Time
	span    trace.Span
	metrics *Metrics
}

// StartOperation opens a span named spanName and starts the clock.
func StartOperation(ctx context.Context, spanName string, metrics *Metrics, attrs ...attribute.KeyValue) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, spanName, trace.WithAttributes(attrs...))
	return ctx, &Operation{name: spanName, start: time.Now(), span: span, metrics: metrics}
}

// Span returns the operation's span.
func (op *Operation) Span() trace.Span { return op.span }

// Duration returns the elapsed time since the operation started.
func (op *Operation) Duration() time.Duration { return time.Since(op.start) }

// EndLookup closes a lookup operation and records whether it found anything.
func (op *Operation) EndLookup(ctx context.Context, found bool) {
	d := op.Duration()
	op.span.SetAttributes(attribute.Bool("found", found), attribute.Int64(AttrDurationMs, d.Milliseconds()))
	op.span.End()
	op.metrics.RecordLookup(ctx, op.name, found, d)
}

// End closes the operation with a status and optional error.
func (op *Operation) End(status string, err error) {
	if err != nil {
		op.span.RecordError(err)
		op.span.SetStatus(codes.Error, err.Error())
	}
	op.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, op.Duration().Milliseconds()),
	)
	op.span.End()
}
