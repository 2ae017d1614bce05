package telemetry

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"
)

// registered is set by the single Init that installs the OTel globals.
var registered atomic.Bool

// delegate is the process-wide TracerProvider. It is installed once and
// forwards each span to the pipeline that owns its trace, so code calling
// otel.Tracer keeps working while several guards are active in one test
// binary.
var delegate = newRouter()

// router maps traces to the pipeline their root span was started in.
//
// A span whose context carries a routed trace goes to that trace's provider.
// Anything else goes to the most recently activated provider still active,
// and its trace is routed there from then on.
type router struct {
	embedded.TracerProvider

	mu     sync.RWMutex
	active []*sdktrace.TracerProvider
	routes map[oteltrace.TraceID]*sdktrace.TracerProvider
}

func newRouter() *router {
	return &router{routes: make(map[oteltrace.TraceID]*sdktrace.TracerProvider)}
}

func (r *router) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	return &routedTracer{router: r, name: name, opts: opts}
}

// resolve picks the provider for a span started under ctx, or nil if no
// pipeline is active.
func (r *router) resolve(ctx context.Context) *sdktrace.TracerProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if sc := oteltrace.SpanContextFromContext(ctx); sc.HasTraceID() {
		if tp, ok := r.routes[sc.TraceID()]; ok {
			return tp
		}
	}
	if n := len(r.active); n > 0 {
		return r.active[n-1]
	}
	return nil
}

// route binds id to tp unless id is already bound or tp is no longer active.
func (r *router) route(id oteltrace.TraceID, tp *sdktrace.TracerProvider) {
	if !id.IsValid() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.routes[id]; ok {
		return
	}
	for _, a := range r.active {
		if a == tp {
			r.routes[id] = tp
			return
		}
	}
}

func (r *router) activate(tp *sdktrace.TracerProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = append(r.active, tp)
}

// deactivate drops tp and every trace routed to it. Other active providers
// keep their traces, and the newest of them becomes the fallback.
func (r *router) deactivate(tp *sdktrace.TracerProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.active[:0]
	for _, a := range r.active {
		if a != tp {
			kept = append(kept, a)
		}
	}
	clear(r.active[len(kept):])
	r.active = kept

	for id, owner := range r.routes {
		if owner == tp {
			delete(r.routes, id)
		}
	}
}

// routedTracer resolves its provider per span, not when it is created, so
// tracers cached in package variables follow the trace they are used in.
type routedTracer struct {
	embedded.Tracer

	router *router
	name   string
	opts   []oteltrace.TracerOption
}

func (t *routedTracer) Start(ctx context.Context, spanName string, opts ...oteltrace.SpanStartOption) (context.Context, oteltrace.Span) {
	tp := t.router.resolve(ctx)
	if tp == nil {
		return noop.NewTracerProvider().Tracer(t.name, t.opts...).Start(ctx, spanName, opts...)
	}
	ctx, span := tp.Tracer(t.name, t.opts...).Start(ctx, spanName, opts...)
	t.router.route(span.SpanContext().TraceID(), tp)
	return ctx, span
}

// ownedTracer is a guard's own tracer. Root spans it starts route their trace
// back to the guard's provider.
type ownedTracer struct {
	oteltrace.Tracer

	router *router
	tp     *sdktrace.TracerProvider
}

func (t *ownedTracer) Start(ctx context.Context, spanName string, opts ...oteltrace.SpanStartOption) (context.Context, oteltrace.Span) {
	ctx, span := t.Tracer.Start(ctx, spanName, opts...)
	t.router.route(span.SpanContext().TraceID(), t.tp)
	return ctx, span
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// installGlobals registers the delegate and propagator as OTel globals.
// It reports whether this call did the registration.
func installGlobals(p propagation.TextMapPropagator) bool {
	if !registered.CompareAndSwap(false, true) {
		return false
	}
	otel.SetTracerProvider(delegate)
	otel.SetTextMapPropagator(p)
	return true
}

// Registered reports whether the OTel globals have been installed.
func Registered() bool {
	return registered.Load()
}
