// Package logging is the zap logger the harness reports through.
//
// Every method takes the context of the current span, so an entry written
// while a test body runs carries that span's trace_id and span_id and can be
// looked up in the exported trace:
//
//	{"level":"error","ts":"...","logger":"harness","msg":"test body failed","trace_id":"4bf9...","span_id":"00f0...","test":"TestAdd"}
//
// Entries go to stderr, to an OTel log provider through the otelzap bridge,
// or both. Sampling, when enabled, never drops Error entries.
//
// The runner stores a per-test child logger in the body's context:
//
//	func body(ctx context.Context) error {
//	    logging.FromContext(ctx).Info(ctx, "adding")
//	    ...
//	}
//
// Tests record entries with NewTestLogger and assert on them.
package logging
