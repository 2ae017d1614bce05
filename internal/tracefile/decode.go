package tracefile

import (
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/ptrace"
)

var unmarshaler ptrace.JSONUnmarshaler

// decodeLine parses one OTLP/JSON TracesData document.
func decodeLine(line []byte) (TraceRecord, error) {
	td, err := unmarshaler.UnmarshalTraces(line)
	if err != nil {
		return TraceRecord{}, err
	}
	return fromTraces(td), nil
}

func fromTraces(td ptrace.Traces) TraceRecord {
	rss := td.ResourceSpans()
	rec := TraceRecord{ResourceSpans: make([]ResourceSpan, 0, rss.Len())}

	for i := 0; i < rss.Len(); i++ {
		rs := rss.At(i)
		out := ResourceSpan{
			Attributes: attributes(rs.Resource().Attributes()),
			ScopeSpans: make([]ScopeSpan, 0, rs.ScopeSpans().Len()),
		}

		for j := 0; j < rs.ScopeSpans().Len(); j++ {
			ss := rs.ScopeSpans().At(j)
			scope := ScopeSpan{
				Scope: ss.Scope().Name(),
				Spans: make([]Span, 0, ss.Spans().Len()),
			}
			for k := 0; k < ss.Spans().Len(); k++ {
				scope.Spans = append(scope.Spans, fromSpan(ss.Spans().At(k)))
			}
			out.ScopeSpans = append(out.ScopeSpans, scope)
		}

		rec.ResourceSpans = append(rec.ResourceSpans, out)
	}
	return rec
}

func fromSpan(s ptrace.Span) Span {
	span := Span{
		Name:       s.Name(),
		StatusCode: int(s.Status().Code()),
	}
	if s.Events().Len() > 0 {
		span.Events = make([]Event, 0, s.Events().Len())
	}
	for i := 0; i < s.Events().Len(); i++ {
		ev := s.Events().At(i)
		span.Events = append(span.Events, Event{
			Name:       ev.Name(),
			Attributes: attributes(ev.Attributes()),
		})
	}
	return span
}

// attributes keeps the string-valued entries of m. An int or bool
// exception.message is not a message.
func attributes(m pcommon.Map) map[string]string {
	out := make(map[string]string, m.Len())
	m.Range(func(k string, v pcommon.Value) bool {
		if v.Type() == pcommon.ValueTypeStr {
			out[k] = v.Str()
		}
		return true
	})
	return out
}
