// Package collector runs an OpenTelemetry collector in a container that
// receives OTLP from the code under test and writes every trace it receives
// to a file on the host.
//
// A Layout names the per-test files: the result file the collector writes and
// the expected file a run is compared against. WriteConfig renders a matching
// collector configuration, Factory starts the container with both files bind
// mounted, and Executor ties the three together around a test command.
package collector
