package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fyrsmithlabs/otelharness/internal/logging"
)

// TestTelemetry is a Guard backed by in-memory exporters.
type TestTelemetry struct {
	*Guard

	Exporter     *tracetest.InMemoryExporter
	MetricReader *sdkmetric.ManualReader
}

// NewTestTelemetry builds an in-memory pipeline with a synchronous span processor.
// Spans are visible as soon as they end. The guard is shut down on test cleanup
// unless the test already released it.
func NewTestTelemetry(tb testing.TB, opts ...Option) *TestTelemetry {
	tb.Helper()

	cfg := NewDefaultConfig()
	cfg.ServiceName = tb.Name()
	cfg.Processor = ProcessorSimple

	exporter := tracetest.NewInMemoryExporter()
	reader := sdkmetric.NewManualReader()

	opts = append([]Option{WithLogger(logging.NewNop())}, opts...)
	opts = append(opts, WithSpanExporter(retainingExporter{exporter}), WithMetricReader(reader))

	guard, err := Init(context.Background(), cfg, opts...)
	if err != nil {
		tb.Fatalf("init test telemetry: %v", err)
	}
	tb.Cleanup(func() {
		if !guard.Released() {
			_ = guard.Shutdown(context.Background())
		}
	})

	return &TestTelemetry{
		Guard:        guard,
		Exporter:     exporter,
		MetricReader: reader,
	}
}

// retainingExporter keeps spans readable after the guard is shut down.
type retainingExporter struct {
	*tracetest.InMemoryExporter
}

func (retainingExporter) Shutdown(context.Context) error { return nil }

// Spans returns all exported spans.
func (t *TestTelemetry) Spans() tracetest.SpanStubs {
	return t.Exporter.GetSpans()
}

// SpanByName finds a span by name, or nil if not found.
func (t *TestTelemetry) SpanByName(name string) *tracetest.SpanStub {
	spans := t.Spans()
	for i := range spans {
		if spans[i].Name == name {
			return &spans[i]
		}
	}
	return nil
}

// AssertSpanExists verifies a span with the given name was exported.
func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	if t.SpanByName(name) == nil {
		tb.Errorf("expected span %q not found, got: %v", name, t.spanNames())
	}
}

// AssertSpanStatus verifies the status code of a span.
func (t *TestTelemetry) AssertSpanStatus(tb testing.TB, name string, want codes.Code) {
	tb.Helper()
	span := t.SpanByName(name)
	if span == nil {
		tb.Fatalf("span %q not found, got: %v", name, t.spanNames())
		return
	}
	if span.Status.Code != want {
		tb.Errorf("span %q status: got %v, want %v", name, span.Status.Code, want)
	}
}

// AssertSpanEvent verifies a span carries an event with the given name.
func (t *TestTelemetry) AssertSpanEvent(tb testing.TB, spanName, eventName string) {
	tb.Helper()
	span := t.SpanByName(spanName)
	if span == nil {
		tb.Fatalf("span %q not found, got: %v", spanName, t.spanNames())
		return
	}
	for _, ev := range span.Events {
		if ev.Name == eventName {
			return
		}
	}
	tb.Errorf("span %q has no event %q", spanName, eventName)
}

// EventAttribute returns the first value of key on the named event of a span.
func (t *TestTelemetry) EventAttribute(spanName, eventName string, key attribute.Key) (string, bool) {
	span := t.SpanByName(spanName)
	if span == nil {
		return "", false
	}
	for _, ev := range span.Events {
		if ev.Name != eventName {
			continue
		}
		for _, kv := range ev.Attributes {
			if kv.Key == key {
				return kv.Value.Emit(), true
			}
		}
	}
	return "", false
}

// Metrics collects the current metric state.
func (t *TestTelemetry) Metrics(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	err := t.MetricReader.Collect(ctx, &rm)
	return rm, err
}

// Reset drops every exported span.
func (t *TestTelemetry) Reset() {
	t.Exporter.Reset()
}

func (t *TestTelemetry) spanNames() []string {
	spans := t.Spans()
	names := make([]string, len(spans))
	for i, span := range spans {
		names[i] = span.Name
	}
	return names
}
