// Package tracediff compares two trace contents projection by projection.
//
// Compare never stops at the first difference: it reports every differing
// projection, and for the per-span event maps one Mismatch per span name, so a
// failing comparison points straight at the spans that changed.
package tracediff

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/otelharness/internal/tracecontent"
	"github.com/fyrsmithlabs/otelharness/internal/tracefile"
)

// Compared projections, in the order Compare checks them.
const (
	FieldSpanNames           = "span_names"
	FieldScopeSpanCount      = "scope_span_count"
	FieldSpanCount           = "span_count"
	FieldErrorStatusCount    = "status_count(error)"
	FieldSpanEventNames      = "span_event_names"
	FieldSpanEventExceptions = "span_event_exceptions"
	FieldServiceNames        = "service_names"
)

const missing = "<missing>"

// Mismatch is one differing projection. Key names the span for per-span
// projections and is empty otherwise.
type Mismatch struct {
	Field    string
	Key      string
	Actual   string
	Expected string
}

func (m Mismatch) String() string {
	field := m.Field
	if m.Key != "" {
		field = fmt.Sprintf("%s[%q]", m.Field, m.Key)
	}
	return fmt.Sprintf("%s: actual %s, expected %s", field, m.Actual, m.Expected)
}

// Option configures Compare.
type Option func(*options)

type options struct {
	serviceNames bool
}

// WithServiceNames also compares the distinct service.name values.
func WithServiceNames() Option {
	return func(o *options) {
		o.serviceNames = true
	}
}

// Compare reports every projection on which actual differs from expected.
// A nil result means the contents are equivalent.
func Compare(actual, expected *tracecontent.Content, opts ...Option) []Mismatch {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var out []Mismatch

	if a, e := actual.SpanNames(), expected.SpanNames(); !slices.Equal(a, e) {
		out = append(out, Mismatch{Field: FieldSpanNames, Actual: list(a), Expected: list(e)})
	}
	out = appendCount(out, FieldScopeSpanCount, actual.ScopeSpanCount(), expected.ScopeSpanCount())
	out = appendCount(out, FieldSpanCount, actual.SpanCount(), expected.SpanCount())
	out = appendCount(out, FieldErrorStatusCount,
		actual.StatusCount(tracefile.StatusError), expected.StatusCount(tracefile.StatusError))
	out = appendPerSpan(out, FieldSpanEventNames, actual.SpanEventNames(), expected.SpanEventNames())
	out = appendPerSpan(out, FieldSpanEventExceptions, actual.SpanEventExceptions(), expected.SpanEventExceptions())

	if o.serviceNames {
		if a, e := actual.ServiceNames(), expected.ServiceNames(); !slices.Equal(a, e) {
			out = append(out, Mismatch{Field: FieldServiceNames, Actual: list(a), Expected: list(e)})
		}
	}

	return out
}

func appendCount(out []Mismatch, field string, actual, expected int) []Mismatch {
	if actual == expected {
		return out
	}
	return append(out, Mismatch{
		Field:    field,
		Actual:   strconv.Itoa(actual),
		Expected: strconv.Itoa(expected),
	})
}

// appendPerSpan adds one mismatch per span name whose values differ, in
// span name order.
func appendPerSpan(out []Mismatch, field string, actual, expected map[string][]string) []Mismatch {
	keys := make([]string, 0, len(actual)+len(expected))
	for k := range actual {
		keys = append(keys, k)
	}
	for k := range expected {
		if _, ok := actual[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		a, aok := actual[k]
		e, eok := expected[k]
		if aok == eok && slices.Equal(a, e) {
			continue
		}
		m := Mismatch{Field: field, Key: k, Actual: missing, Expected: missing}
		if aok {
			m.Actual = list(a)
		}
		if eok {
			m.Expected = list(e)
		}
		out = append(out, m)
	}
	return out
}

func list(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return "[" + strings.Join(quoted, " ") + "]"
}
