// Package telemetry builds and tears down the tracing pipeline a test body runs under.
//
// # Overview
//
// Init builds a TracerProvider bound to a service name and collector endpoint
// and returns a Guard. The Guard is the explicit handle to the pipeline: callers
// take tracers, meters and the propagator from it instead of from OTel globals.
// OTel globals are installed once per process by the first Init; later calls
// observe the registration and only re-point the process-wide delegate at the
// newest active Guard.
//
// # Usage
//
//	cfg := telemetry.NewDefaultConfig()
//	cfg.ServiceName = t.Name()
//	guard, err := telemetry.Init(ctx, cfg, telemetry.WithLogger(logger))
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer guard.Shutdown(ctx)
//
//	ctx, span := guard.Tracer("sample").Start(ctx, "sample_add")
//	defer span.End()
//
// Shutdown is synchronous and may run once; a second call returns
// ErrAlreadyReleased. Flush forces export with a per-attempt timeout and a
// bounded number of retries.
//
// # Exporters
//
// Protocol selects the span exporter:
//
//	grpc           OTLP over gRPC (default, localhost:4317)
//	http/protobuf  OTLP over HTTP
//	file           OTLP/JSON lines appended to FilePath, the collector file format
//
// # Testing
//
// Use TestTelemetry for in-memory assertions:
//
//	tt := telemetry.NewTestTelemetry(t)
//	_, span := tt.Tracer("test").Start(ctx, "test-span")
//	span.End()
//	tt.AssertSpanExists(t, "test-span")
package telemetry
