// Package tracecontent derives comparable projections from decoded trace
// export records.
package tracecontent

import (
	"sort"

	"github.com/fyrsmithlabs/otelharness/internal/tracefile"
)

// Content is an immutable view over the resource spans of one export.
// Every projection is recomputed on each call.
type Content struct {
	resourceSpans []tracefile.ResourceSpan
}

// New flattens the resource spans of records, in order.
func New(records ...tracefile.TraceRecord) *Content {
	var rs []tracefile.ResourceSpan
	for _, rec := range records {
		rs = append(rs, rec.ResourceSpans...)
	}
	return FromResourceSpans(rs...)
}

// FromResourceSpans wraps a copy of rs.
func FromResourceSpans(rs ...tracefile.ResourceSpan) *Content {
	return &Content{resourceSpans: append([]tracefile.ResourceSpan(nil), rs...)}
}

// ResourceSpans returns a copy of the underlying resource spans.
func (c *Content) ResourceSpans() []tracefile.ResourceSpan {
	return append([]tracefile.ResourceSpan(nil), c.resourceSpans...)
}

func (c *Content) eachSpan(fn func(tracefile.Span)) {
	for _, rs := range c.resourceSpans {
		for _, ss := range rs.ScopeSpans {
			for _, span := range ss.Spans {
				fn(span)
			}
		}
	}
}

// SpanNames returns the name of every span, sorted. Duplicates are kept.
func (c *Content) SpanNames() []string {
	names := []string{}
	c.eachSpan(func(s tracefile.Span) {
		names = append(names, s.Name)
	})
	sort.Strings(names)
	return names
}

// ScopeSpanCount counts scope-span groups across all resources.
func (c *Content) ScopeSpanCount() int {
	n := 0
	for _, rs := range c.resourceSpans {
		n += len(rs.ScopeSpans)
	}
	return n
}

// SpanCount counts spans.
func (c *Content) SpanCount() int {
	n := 0
	c.eachSpan(func(tracefile.Span) { n++ })
	return n
}

// StatusCount counts spans whose status code equals code.
func (c *Content) StatusCount(code int) int {
	n := 0
	c.eachSpan(func(s tracefile.Span) {
		if s.StatusCode == code {
			n++
		}
	})
	return n
}

// SpanEventNames maps every span name to the sorted names of its events.
// Spans sharing a name are merged into one entry.
func (c *Content) SpanEventNames() map[string][]string {
	return c.eventProjection(func(ev tracefile.Event) string {
		return ev.Name
	})
}

// SpanEventExceptions maps every span name to the sorted exception.message
// values of its events; an event without the attribute contributes "".
func (c *Content) SpanEventExceptions() map[string][]string {
	return c.eventProjection(func(ev tracefile.Event) string {
		msg, _ := ev.ExceptionMessage()
		return msg
	})
}

func (c *Content) eventProjection(project func(tracefile.Event) string) map[string][]string {
	out := map[string][]string{}
	c.eachSpan(func(s tracefile.Span) {
		values, ok := out[s.Name]
		if !ok {
			values = []string{}
		}
		for _, ev := range s.Events {
			values = append(values, project(ev))
		}
		out[s.Name] = values
	})
	for _, values := range out {
		sort.Strings(values)
	}
	return out
}

// ServiceNames returns the distinct service.name values, sorted.
func (c *Content) ServiceNames() []string {
	seen := map[string]struct{}{}
	names := []string{}
	for _, rs := range c.resourceSpans {
		name := rs.ServiceName()
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
