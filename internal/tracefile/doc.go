// Package tracefile reads trace export files written by an OpenTelemetry
// collector's file exporter.
//
// An export file holds one OTLP/JSON TracesData document per line. Each line
// is decoded on its own into a TraceRecord, a read-only projection keeping
// only what trace comparison needs: resource attributes, scope names, span
// names, status codes and events.
//
// A collector appends lines while it runs, so the last line of a file that is
// still being written may be cut short. ReadFrom accepts such a line when it
// decodes and otherwise reports ErrIncompleteExport; WithPartialTail skips it
// instead. WaitComplete polls a file until it looks fully written.
package tracefile
