package tracefile

// OTLP status codes as they appear in export files.
const (
	StatusUnset = 0
	StatusOK    = 1
	StatusError = 2
)

const (
	attrServiceName      = "service.name"
	attrExceptionMessage = "exception.message"
)

// TraceRecord is one decoded line of an export file.
type TraceRecord struct {
	ResourceSpans []ResourceSpan
}

// ResourceSpan groups the spans emitted by one resource. Attributes holds
// the string-valued resource attributes.
type ResourceSpan struct {
	Attributes map[string]string
	ScopeSpans []ScopeSpan
}

// ServiceName returns the service.name resource attribute, or "".
func (r ResourceSpan) ServiceName() string {
	return r.Attributes[attrServiceName]
}

// ScopeSpan groups the spans of one instrumentation scope.
type ScopeSpan struct {
	Scope string
	Spans []Span
}

type Span struct {
	Name       string
	StatusCode int
	Events     []Event
}

// Event is a span event. Attributes holds its string-valued attributes only.
type Event struct {
	Name       string
	Attributes map[string]string
}

// ExceptionMessage returns the exception.message attribute and whether it is
// set to a string.
func (e Event) ExceptionMessage() (string, bool) {
	msg, ok := e.Attributes[attrExceptionMessage]
	return msg, ok
}
