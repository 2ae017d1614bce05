package tracefile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/ptrace"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/otelharness/internal/logging"
)

// collectorLine is a record as the collector's file exporter writes it.
const collectorLine = `{"resourceSpans":[{"resource":{"attributes":[{"key":"service.name","value":{"stringValue":"sample-service"}},{"key":"process.pid","value":{"intValue":"42"}}]},"scopeSpans":[{"scope":{"name":"sample"},"spans":[{"traceId":"5b8efff798038103d269b633813fc60c","spanId":"eee19b7ec3c1b174","name":"sample_add_err","kind":1,"startTimeUnixNano":"1718000000000000000","endTimeUnixNano":"1718000000000500000","status":{"code":2,"message":"overflow"},"events":[{"timeUnixNano":"1718000000000400000","name":"exception","attributes":[{"key":"exception.type","value":{"stringValue":"*errors.errorString"}},{"key":"exception.message","value":{"stringValue":"overflow"}}]}]},{"traceId":"5b8efff798038103d269b633813fc60c","spanId":"eee19b7ec3c1b175","name":"sample_add","kind":1,"startTimeUnixNano":"1718000000000000000","endTimeUnixNano":"1718000000000600000","status":{}}]}]}]}`

func traceLine(t *testing.T, service string, spans ...string) string {
	t.Helper()

	td := ptrace.NewTraces()
	rs := td.ResourceSpans().AppendEmpty()
	rs.Resource().Attributes().PutStr("service.name", service)
	ss := rs.ScopeSpans().AppendEmpty()
	ss.Scope().SetName("test")
	for _, name := range spans {
		ss.Spans().AppendEmpty().SetName(name)
	}

	var m ptrace.JSONMarshaler
	data, err := m.MarshalTraces(td)
	require.NoError(t, err)
	return string(data)
}

func TestReadFrom_CollectorRecord(t *testing.T) {
	records, err := ReadFrom(strings.NewReader(collectorLine + "\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.Len(t, records[0].ResourceSpans, 1)
	rs := records[0].ResourceSpans[0]
	assert.Equal(t, "sample-service", rs.ServiceName())
	assert.NotContains(t, rs.Attributes, "process.pid")

	require.Len(t, rs.ScopeSpans, 1)
	scope := rs.ScopeSpans[0]
	assert.Equal(t, "sample", scope.Scope)
	require.Len(t, scope.Spans, 2)

	errSpan := scope.Spans[0]
	assert.Equal(t, "sample_add_err", errSpan.Name)
	assert.Equal(t, StatusError, errSpan.StatusCode)
	require.Len(t, errSpan.Events, 1)
	assert.Equal(t, "exception", errSpan.Events[0].Name)
	msg, ok := errSpan.Events[0].ExceptionMessage()
	require.True(t, ok)
	assert.Equal(t, "overflow", msg)

	okSpan := scope.Spans[1]
	assert.Equal(t, StatusUnset, okSpan.StatusCode)
	assert.Empty(t, okSpan.Events)
}

func TestReadFrom_NonStringExceptionMessage(t *testing.T) {
	td := ptrace.NewTraces()
	span := td.ResourceSpans().AppendEmpty().ScopeSpans().AppendEmpty().Spans().AppendEmpty()
	span.SetName("sample_add_err")
	ev := span.Events().AppendEmpty()
	ev.SetName("exception")
	ev.Attributes().PutInt("exception.message", 42)
	ev.Attributes().PutStr("exception.type", "overflow")

	var m ptrace.JSONMarshaler
	line, err := m.MarshalTraces(td)
	require.NoError(t, err)

	records, err := ReadFrom(strings.NewReader(string(line) + "\n"))
	require.NoError(t, err)
	event := records[0].ResourceSpans[0].ScopeSpans[0].Spans[0].Events[0]

	msg, ok := event.ExceptionMessage()
	assert.False(t, ok)
	assert.Empty(t, msg)
	assert.Equal(t, "overflow", event.Attributes["exception.type"])
}

func TestReadFrom_MultipleLines(t *testing.T) {
	input := strings.Join([]string{
		traceLine(t, "svc", "a"),
		"",
		"   ",
		traceLine(t, "svc", "b", "c"),
	}, "\n") + "\n"

	records, err := ReadFrom(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ResourceSpans[0].ScopeSpans[0].Spans[0].Name)
	assert.Len(t, records[1].ResourceSpans[0].ScopeSpans[0].Spans, 2)
}

func TestReadFrom_Empty(t *testing.T) {
	records, err := ReadFrom(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadFrom_MalformedLine(t *testing.T) {
	input := traceLine(t, "svc", "a") + "\n" + `{"resourceSpans": [` + "\n" + traceLine(t, "svc", "b") + "\n"

	_, err := ReadFrom(strings.NewReader(input))
	require.Error(t, err)

	var malformed *MalformedExportError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 2, malformed.Line)
	assert.Contains(t, err.Error(), "line 2")
	assert.NotErrorIs(t, err, ErrIncompleteExport)
}

func TestReadFrom_UnterminatedTail(t *testing.T) {
	complete := traceLine(t, "svc", "a")
	second := traceLine(t, "svc", "b")

	t.Run("decodable tail is accepted", func(t *testing.T) {
		records, err := ReadFrom(strings.NewReader(complete + "\n" + second))
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("truncated tail is incomplete", func(t *testing.T) {
		_, err := ReadFrom(strings.NewReader(complete + "\n" + second[:len(second)/2]))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrIncompleteExport)

		var malformed *MalformedExportError
		assert.False(t, errors.As(err, &malformed))
	})

	t.Run("truncated tail skipped with partial tail", func(t *testing.T) {
		tl := logging.NewTestLogger()
		records, err := ReadFrom(strings.NewReader(complete+"\n"+second[:len(second)/2]),
			WithPartialTail(), WithLogger(tl.Logger))
		require.NoError(t, err)
		assert.Len(t, records, 1)
		tl.AssertLogged(t, zapcore.WarnLevel, "skipping partial trailing record")
		tl.AssertField(t, "skipping partial trailing record", "line", int64(2))
	})
}

func TestReadFrom_ReaderError(t *testing.T) {
	boom := errors.New("disk gone")
	_, err := ReadFrom(iotest.ErrReader(boom))
	assert.ErrorIs(t, err, boom)
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, os.WriteFile(path, []byte(collectorLine+"\n"), 0o644))

	records, err := Read(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRead_WrapsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0o644))

	_, err := Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)

	var malformed *MalformedExportError
	assert.True(t, errors.As(err, &malformed))
}
