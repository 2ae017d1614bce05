package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otelharness/internal/logging"
)

var (
	// ErrInitialization wraps every pipeline construction failure. It is not retried.
	ErrInitialization = errors.New("telemetry initialization failed")

	// ErrAlreadyReleased is returned when a Guard is used after Shutdown.
	ErrAlreadyReleased = errors.New("telemetry guard already released")
)

// Guard owns one tracing pipeline. It is Active from Init until Shutdown,
// then Released for good.
type Guard struct {
	config *Config
	logger *logging.Logger

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	propagator     propagation.TextMapPropagator

	released atomic.Bool
}

// Option configures Init.
type Option func(*options)

type options struct {
	logger       *logging.Logger
	spanExporter sdktrace.SpanExporter
	metricReader sdkmetric.Reader
}

// WithLogger sets the logger abnormal terminations are reported through.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithSpanExporter overrides the exporter selected by Config.Protocol.
func WithSpanExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) {
		o.spanExporter = exp
	}
}

// WithMetricReader attaches a reader instead of the OTLP metric exporter.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(o *options) {
		o.metricReader = r
	}
}

// Init builds the tracing pipeline described by cfg and returns its Guard.
//
// Every failure wraps ErrInitialization. The first successful Init in the
// process installs the OTel globals; later calls leave them in place.
func Init(ctx context.Context, cfg *Config, opts ...Option) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid telemetry config: %w", ErrInitialization, err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}

	g := &Guard{
		config:     cfg,
		logger:     o.logger.Named("telemetry"),
		propagator: newPropagator(),
	}

	if !cfg.Enabled {
		return g, nil
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: resource: %w", ErrInitialization, err)
	}

	exporter := o.spanExporter
	if exporter == nil {
		exporter, err = newSpanExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
		}
	}
	g.tracerProvider = newTracerProvider(cfg, res, exporter)

	mp, err := newMeterProvider(ctx, cfg, res, o.metricReader)
	if err != nil {
		_ = g.tracerProvider.Shutdown(ctx)
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	g.meterProvider = mp

	if installGlobals(g.propagator) {
		g.logger.Debug(ctx, "telemetry globals installed", zap.String("service", cfg.ServiceName))
	} else {
		g.logger.Debug(ctx, "telemetry globals already installed", zap.String("service", cfg.ServiceName))
	}
	delegate.activate(g.tracerProvider)

	return g, nil
}

// Tracer returns a tracer for the given instrumentation scope.
//
// Returns a no-op tracer if telemetry is disabled or the guard is released.
// Spans started through otel.Tracer under a root span of this tracer are
// exported by this guard too.
func (g *Guard) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	if g == nil || g.tracerProvider == nil || g.released.Load() {
		return noop.NewTracerProvider().Tracer(name, opts...)
	}
	return &ownedTracer{
		Tracer: g.tracerProvider.Tracer(name, opts...),
		router: delegate,
		tp:     g.tracerProvider,
	}
}

// Meter returns a meter for the given instrumentation scope.
func (g *Guard) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if g == nil || g.meterProvider == nil || g.released.Load() {
		return metricnoop.NewMeterProvider().Meter(name, opts...)
	}
	return g.meterProvider.Meter(name, opts...)
}

// Propagator returns the W3C trace context + baggage propagator of this pipeline.
func (g *Guard) Propagator() propagation.TextMapPropagator {
	if g == nil {
		return newPropagator()
	}
	return g.propagator
}

// Logger returns the logger the guard reports through.
func (g *Guard) Logger() *logging.Logger {
	if g == nil {
		return logging.NewNop()
	}
	return g.logger
}

// Config returns the configuration the guard was built from.
func (g *Guard) Config() *Config {
	if g == nil {
		return nil
	}
	return g.config
}

// Released reports whether Shutdown has been called.
func (g *Guard) Released() bool {
	return g == nil || g.released.Load()
}

// RecordAbnormal reports an abnormal termination through the tracing layer.
//
// The failure is logged with the trace correlation of ctx and recorded on the
// span in ctx as an exception event with Error status, so it is exported along
// with the rest of the trace.
func (g *Guard) RecordAbnormal(ctx context.Context, recovered any, stack []byte) {
	msg := fmt.Sprint(recovered)
	err, ok := recovered.(error)
	if !ok {
		err = errors.New(msg)
	}

	span := oteltrace.SpanFromContext(ctx)
	span.RecordError(err, oteltrace.WithAttributes(semconv.ExceptionStacktrace(string(stack))))
	span.SetStatus(codes.Error, msg)

	g.Logger().Error(ctx, "abnormal termination", zap.String("panic", msg), zap.ByteString("stack", stack))
}

// Flush forces export of buffered spans and metrics.
//
// Each attempt is bounded by Flush.Timeout; failed attempts are retried with
// exponential backoff up to Flush.MaxAttempts. The last error is returned.
func (g *Guard) Flush(ctx context.Context) error {
	if g == nil {
		return nil
	}
	if g.released.Load() {
		return ErrAlreadyReleased
	}
	if g.tracerProvider == nil && g.meterProvider == nil {
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		fctx, cancel := context.WithTimeout(ctx, g.config.Flush.Timeout.Duration())
		defer cancel()
		if err := g.forceFlush(fctx); err != nil {
			g.logger.Warn(ctx, "telemetry flush failed", zap.Int("attempt", attempt), zap.Error(err))
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(g.config.Flush.MaxAttempts)),
		backoff.WithMaxElapsedTime(0))

	return err
}

func (g *Guard) forceFlush(ctx context.Context) error {
	var errs []error
	if g.tracerProvider != nil {
		if err := g.tracerProvider.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace flush: %w", err))
		}
	}
	if g.meterProvider != nil {
		if err := g.meterProvider.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter flush: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown flushes and shuts down the pipeline, synchronously.
//
// Only the first call does work; later calls return ErrAlreadyReleased.
// Uses Shutdown.Timeout when ctx carries no deadline.
func (g *Guard) Shutdown(ctx context.Context) error {
	if g == nil {
		return nil
	}
	if !g.released.CompareAndSwap(false, true) {
		return ErrAlreadyReleased
	}

	if _, ok := ctx.Deadline(); !ok && g.config != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Shutdown.Timeout.Duration())
		defer cancel()
	}

	var errs []error

	if g.tracerProvider != nil {
		delegate.deactivate(g.tracerProvider)
		if err := g.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}

	if g.meterProvider != nil {
		if err := g.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}
