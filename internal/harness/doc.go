// Package harness runs test bodies inside a traced, flushed and released
// telemetry pipeline.
//
// Each Run acquires a fresh Pipeline, executes the body in its own goroutine
// under a span named after the test, and classifies the result as Success,
// BodyError or Abnormal. Whatever the outcome, the pipeline is flushed, given
// a grace period for the exporter to hand data to the collector, and then
// released exactly once. A body that panics or calls runtime.Goexit is turned
// into an exception event with Error status on its span, so the failure is
// visible in the exported trace as well as in the test result.
//
// Usage:
//
//	runner := harness.New(harness.Telemetry(cfg))
//
//	func TestAdd(t *testing.T) {
//		harness.Test(t, runner, func(ctx context.Context) error {
//			return sampleAdd(ctx, 1, 2)
//		})
//	}
package harness
