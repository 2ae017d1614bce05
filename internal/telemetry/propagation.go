package telemetry

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// PropagationContext is a serializable carrier for cross-process trace context.
//
// It marshals to a flat JSON object, so it can ride along in job payloads,
// environment variables or files handed to a child process.
type PropagationContext map[string]string

var _ propagation.TextMapCarrier = PropagationContext(nil)

// Get returns the value for key, or "".
func (p PropagationContext) Get(key string) string {
	return p[key]
}

// Set stores key and value.
func (p PropagationContext) Set(key, value string) {
	p[key] = value
}

// Keys returns the stored keys in sorted order.
func (p PropagationContext) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Inject captures the trace context of ctx. A nil propagator falls back to the global one.
func Inject(ctx context.Context, propagator propagation.TextMapPropagator) PropagationContext {
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	p := PropagationContext{}
	propagator.Inject(ctx, p)
	return p
}

// Extract returns ctx carrying the trace context held by p.
func (p PropagationContext) Extract(ctx context.Context, propagator propagation.TextMapPropagator) context.Context {
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	return propagator.Extract(ctx, p)
}
