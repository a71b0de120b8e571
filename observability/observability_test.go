package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults("prefkit")
	if cfg.ServiceName != "prefkit" || cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1.0 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	tc := cfg.TracerConfig("1.2.3")
	if tc.ServiceVersion != "1.2.3" || tc.ServiceName != "prefkit" {
		t.Errorf("unexpected tracer config %+v", tc)
	}
	if mc := cfg.MeterConfig("1.2.3"); mc.Interval != 15*time.Second {
		t.Errorf("unexpected meter interval %v", mc.Interval)
	}
}

func TestNewMetrics(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	ctx := context.Background()
	metrics.RecordProviderCreated(ctx, "settings")
	metrics.RecordProviderDisposed(ctx, "settings")
	metrics.RecordReconcile(ctx, true, time.Millisecond)
	metrics.RecordLookup(ctx, SpanResolve, true, time.Millisecond)
	metrics.RecordWrite(ctx, "a", true)
	metrics.RecordError(ctx, "parse", "jsonfile")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordProviderCreated(ctx, "settings")
	m.RecordWrite(ctx, "c", false)
	m.RecordLookup(ctx, SpanPreferences, false, 0)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		root sdktrace.Sampler
	}{
		{1, sdktrace.AlwaysSample()},
		{2, sdktrace.AlwaysSample()},
		{0, sdktrace.NeverSample()},
		{-1, sdktrace.NeverSample()},
		{0.25, sdktrace.TraceIDRatioBased(0.25)},
	}
	for _, tt := range tests {
		want := sdktrace.ParentBased(tt.root).Description()
		if got := sampler(tt.rate).Description(); got != want {
			t.Errorf("sampler(%v) = %s, want %s", tt.rate, got, want)
		}
	}
}

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestOperation_EndLookup(t *testing.T) {
	recorder := withRecorder(t)
	ctx, op := StartOperation(context.Background(), SpanResolve, nil, attribute.String(AttrPreference, "editor.tabSize"))
	AnnotateSpan(ctx, attribute.String(AttrConfigURI, "file:///w/.vscode/settings.json"))
	op.EndLookup(ctx, true)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		got[kv.Key] = kv.Value
	}
	if got[AttrPreference].AsString() != "editor.tabSize" {
		t.Errorf("missing preference attribute: %v", got)
	}
	if got[AttrConfigURI].AsString() != "file:///w/.vscode/settings.json" {
		t.Errorf("missing config uri attribute: %v", got)
	}
	if !got["found"].AsBool() {
		t.Error("expected found=true")
	}
}

func TestOperation_EndWithError(t *testing.T) {
	recorder := withRecorder(t)
	ctx, op := StartOperation(context.Background(), SpanReconcile, nil)
	SetSpanError(ctx, errors.New("first"))
	op.End("error", errors.New("boom"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if len(spans[0].Events()) != 2 {
		t.Errorf("expected two recorded errors, got %d events", len(spans[0].Events()))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want error", spans[0].Status())
	}
}
