package harness

import (
	"context"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/otelharness/internal/telemetry"
)

// Pipeline is the telemetry a single Run traces into. *telemetry.Guard
// implements it.
type Pipeline interface {
	Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer
	RecordAbnormal(ctx context.Context, recovered any, stack []byte)
	Flush(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

var _ Pipeline = (*telemetry.Guard)(nil)

// PipelineFactory acquires a fresh Pipeline for one Run.
type PipelineFactory func(ctx context.Context) (Pipeline, error)

// Telemetry returns a factory that builds a telemetry.Guard from cfg per run.
func Telemetry(cfg *telemetry.Config, opts ...telemetry.Option) PipelineFactory {
	return func(ctx context.Context) (Pipeline, error) {
		guard, err := telemetry.Init(ctx, cfg, opts...)
		if err != nil {
			return nil, err
		}
		return guard, nil
	}
}

// NewFromConfig returns a Runner building its pipelines from cfg that waits
// cfg.Flush.Delay after each flush.
func NewFromConfig(cfg *telemetry.Config, opts ...Option) *Runner {
	opts = append([]Option{WithFlushDelay(cfg.Flush.Delay.Duration())}, opts...)
	return New(Telemetry(cfg), opts...)
}
