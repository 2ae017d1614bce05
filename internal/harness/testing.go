package harness

import (
	"context"
	"testing"
)

// Test runs body through r under the name of t and fails t when the run
// could not start or the outcome is a failure. The failure is signalled only
// after the pipeline has been flushed and released.
func Test(t testing.TB, r *Runner, body Body) Outcome {
	t.Helper()

	out, err := r.Run(context.Background(), t.Name(), body)
	if err != nil {
		t.Fatalf("instrumented test setup: %v", err)
		return out
	}
	if out.Failed() {
		t.Fatalf("instrumented test %s: %s", out.Kind, out.Message)
	}
	return out
}
