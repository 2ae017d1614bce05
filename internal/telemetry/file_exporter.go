package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/ptrace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var errExporterClosed = errors.New("file exporter is shut down")

// FileExporter appends each export batch to a file as one OTLP/JSON TracesData
// line, the same layout the collector's file exporter writes.
type FileExporter struct {
	mu        sync.Mutex
	file      *os.File
	marshaler ptrace.JSONMarshaler
}

var _ sdktrace.SpanExporter = (*FileExporter)(nil)

// NewFileExporter opens path for appending, creating it world-writable if needed.
func NewFileExporter(path string) (*FileExporter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("opening export file: %w", err)
	}
	return &FileExporter{file: f}, nil
}

// ExportSpans writes spans as a single line.
func (e *FileExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if len(spans) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := e.marshaler.MarshalTraces(SpansToTraces(spans))
	if err != nil {
		return fmt.Errorf("marshaling spans: %w", err)
	}
	line = append(line, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return errExporterClosed
	}
	if _, err := e.file.Write(line); err != nil {
		return fmt.Errorf("writing export line: %w", err)
	}
	return nil
}

// Shutdown syncs and closes the file. Later exports fail.
func (e *FileExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return nil
	}
	err := errors.Join(e.file.Sync(), e.file.Close())
	e.file = nil
	return err
}

// SpansToTraces converts SDK spans to pdata, grouped by resource and scope.
func SpansToTraces(spans []sdktrace.ReadOnlySpan) ptrace.Traces {
	td := ptrace.NewTraces()

	resources := make(map[attribute.Distinct]ptrace.ResourceSpans)
	type scopeKey struct {
		res                      attribute.Distinct
		name, version, schemaURL string
	}
	scopes := make(map[scopeKey]ptrace.ScopeSpans)

	for _, s := range spans {
		var resKey attribute.Distinct
		if res := s.Resource(); res != nil {
			resKey = res.Equivalent()
		}
		rs, ok := resources[resKey]
		if !ok {
			rs = td.ResourceSpans().AppendEmpty()
			if res := s.Resource(); res != nil {
				rs.SetSchemaUrl(res.SchemaURL())
				putAttributes(rs.Resource().Attributes(), res.Attributes())
			}
			resources[resKey] = rs
		}

		scope := s.InstrumentationScope()
		sk := scopeKey{res: resKey, name: scope.Name, version: scope.Version, schemaURL: scope.SchemaURL}
		ss, ok := scopes[sk]
		if !ok {
			ss = rs.ScopeSpans().AppendEmpty()
			ss.SetSchemaUrl(scope.SchemaURL)
			ss.Scope().SetName(scope.Name)
			ss.Scope().SetVersion(scope.Version)
			scopes[sk] = ss
		}

		copySpan(ss.Spans().AppendEmpty(), s)
	}

	return td
}

func copySpan(dst ptrace.Span, s sdktrace.ReadOnlySpan) {
	sc := s.SpanContext()
	dst.SetName(s.Name())
	dst.SetTraceID(pcommon.TraceID(sc.TraceID()))
	dst.SetSpanID(pcommon.SpanID(sc.SpanID()))
	dst.TraceState().FromRaw(sc.TraceState().String())
	if parent := s.Parent(); parent.IsValid() {
		dst.SetParentSpanID(pcommon.SpanID(parent.SpanID()))
	}
	dst.SetKind(ptrace.SpanKind(s.SpanKind()))
	dst.SetStartTimestamp(pcommon.NewTimestampFromTime(s.StartTime()))
	dst.SetEndTimestamp(pcommon.NewTimestampFromTime(s.EndTime()))
	putAttributes(dst.Attributes(), s.Attributes())

	status := s.Status()
	switch status.Code {
	case codes.Error:
		dst.Status().SetCode(ptrace.StatusCodeError)
		dst.Status().SetMessage(status.Description)
	case codes.Ok:
		dst.Status().SetCode(ptrace.StatusCodeOk)
	default:
		dst.Status().SetCode(ptrace.StatusCodeUnset)
	}

	for _, ev := range s.Events() {
		pe := dst.Events().AppendEmpty()
		pe.SetName(ev.Name)
		pe.SetTimestamp(pcommon.NewTimestampFromTime(ev.Time))
		putAttributes(pe.Attributes(), ev.Attributes)
	}
}

func putAttributes(dst pcommon.Map, attrs []attribute.KeyValue) {
	dst.EnsureCapacity(len(attrs))
	for _, kv := range attrs {
		key := string(kv.Key)
		switch kv.Value.Type() {
		case attribute.BOOL:
			dst.PutBool(key, kv.Value.AsBool())
		case attribute.INT64:
			dst.PutInt(key, kv.Value.AsInt64())
		case attribute.FLOAT64:
			dst.PutDouble(key, kv.Value.AsFloat64())
		case attribute.STRING:
			dst.PutStr(key, kv.Value.AsString())
		case attribute.STRINGSLICE:
			sl := dst.PutEmptySlice(key)
			for _, v := range kv.Value.AsStringSlice() {
				sl.AppendEmpty().SetStr(v)
			}
		default:
			dst.PutStr(key, kv.Value.Emit())
		}
	}
}
