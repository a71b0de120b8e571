// Package observability wires OpenTelemetry tracing and metrics into the
// engine. Instruments are created against the global providers, so they
// cost nothing until InitTracer and InitMeter install real exporters.
//
//	tp, err := observability.InitTracer(ctx, cfg.TracerConfig(version.Version))
//	defer tp.Shutdown(ctx)
//
//	ctx, op := observability.StartOperation(ctx, observability.SpanResolve, metrics)
//	result := lookup(ctx)
//	op.EndLookup(ctx, result.Found())
package observability
