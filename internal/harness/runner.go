package harness

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otelharness/internal/logging"
	"github.com/fyrsmithlabs/otelharness/internal/telemetry"
)

const (
	// DefaultFlushDelay gives exporters time to hand spans to the collector
	// before the pipeline is released.
	DefaultFlushDelay = time.Second

	defaultTracerName = "github.com/fyrsmithlabs/otelharness/internal/harness"

	goexitMessage = "test body exited without returning"
)

// Body is the unit of work under test.
type Body func(ctx context.Context) error

// Runner executes bodies inside freshly acquired pipelines.
type Runner struct {
	acquire    PipelineFactory
	logger     *logging.Logger
	flushDelay time.Duration
	tracerName string
	metrics    *Metrics
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger outcomes are reported through.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithFlushDelay sets the wait after each flush. Zero disables it.
func WithFlushDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.flushDelay = d
	}
}

// WithTracerName sets the instrumentation scope of the per-test span.
func WithTracerName(name string) Option {
	return func(r *Runner) {
		r.tracerName = name
	}
}

// New returns a Runner acquiring one pipeline per run from acquire.
func New(acquire PipelineFactory, opts ...Option) *Runner {
	r := &Runner{
		acquire:    acquire,
		logger:     logging.NewNop(),
		flushDelay: DefaultFlushDelay,
		tracerName: defaultTracerName,
		metrics:    NewMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// result is what the body goroutine hands back on join.
type result struct {
	err     error
	aborted bool
	message string
}

// Run executes body under a span called name and classifies how it finished.
//
// An error is returned only when no pipeline could be acquired; the body is
// not run then. Otherwise the pipeline is flushed on every path and released
// exactly once before Run returns. Run waits for body however long it takes.
func (r *Runner) Run(ctx context.Context, name string, body Body) (Outcome, error) {
	logger := r.logger.Named("harness").With(zap.String("test", name))

	pipeline, err := r.acquire(ctx)
	if err != nil {
		if !errors.Is(err, telemetry.ErrInitialization) {
			err = fmt.Errorf("%w: %w", telemetry.ErrInitialization, err)
		}
		logger.Error(ctx, "telemetry pipeline unavailable", zap.Error(err))
		return Outcome{}, err
	}

	// Flushing and release must survive cancellation of the test context.
	bg := context.WithoutCancel(ctx)
	defer func() {
		if err := pipeline.Shutdown(bg); err != nil {
			logger.Warn(ctx, "telemetry pipeline release failed", zap.Error(err))
		}
	}()

	start := time.Now()
	res := r.execute(logging.WithLogger(ctx, logger), pipeline, name, body)
	elapsed := time.Since(start)

	r.flush(bg, pipeline, logger)

	var out Outcome
	switch {
	case res.aborted:
		out = Outcome{Kind: Abnormal, Message: res.message}
		logger.Error(ctx, "test body terminated abnormally", zap.String("message", res.message))
		r.flush(bg, pipeline, logger)
	case res.err != nil:
		out = Outcome{Kind: BodyError, Message: res.err.Error()}
		logger.Error(ctx, "test body failed", zap.Error(res.err))
		r.flush(bg, pipeline, logger)
	default:
		out = Outcome{Kind: Success}
		logger.Debug(ctx, "test body succeeded", zap.Duration("elapsed", elapsed))
	}

	r.metrics.RecordOutcome(out.Kind, elapsed.Seconds())
	return out, nil
}

// execute runs body in its own goroutine and joins on the typed result.
// Panics and runtime.Goexit are recorded on the span before it ends. ctx
// carries the per-test logger, which body reaches through
// logging.FromContext.
func (r *Runner) execute(ctx context.Context, pipeline Pipeline, name string, body Body) result {
	done := make(chan result, 1)

	go func() {
		ctx, span := pipeline.Tracer(r.tracerName).Start(ctx, name)

		// Only a normal return overwrites this; Goexit leaves it in place.
		res := result{aborted: true, message: goexitMessage}
		defer func() {
			if rec := recover(); rec != nil {
				res = result{aborted: true, message: fmt.Sprint(rec)}
				pipeline.RecordAbnormal(ctx, rec, debug.Stack())
			} else if res.aborted {
				pipeline.RecordAbnormal(ctx, res.message, debug.Stack())
			}
			span.End()
			done <- res
		}()

		err := body(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		res = result{err: err}
	}()

	return <-done
}

// flush pushes buffered telemetry out, then waits the flush delay.
func (r *Runner) flush(ctx context.Context, pipeline Pipeline, logger *logging.Logger) {
	if err := pipeline.Flush(ctx); err != nil {
		r.metrics.RecordFlushFailure()
		logger.Warn(ctx, "telemetry flush failed", zap.Error(err))
	}
	if r.flushDelay > 0 {
		time.Sleep(r.flushDelay)
	}
}
