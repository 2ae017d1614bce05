package tracefile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otelharness/internal/logging"
)

// ErrIncompleteExport is returned when the final line of an export has no
// trailing newline and does not decode: the writer had not finished it.
var ErrIncompleteExport = errors.New("trace export incomplete")

// MalformedExportError reports a complete line that is not valid OTLP/JSON.
type MalformedExportError struct {
	Line int
	Err  error
}

func (e *MalformedExportError) Error() string {
	return fmt.Sprintf("malformed trace export at line %d: %v", e.Line, e.Err)
}

func (e *MalformedExportError) Unwrap() error {
	return e.Err
}

// Option configures Read and ReadFrom.
type Option func(*options)

type options struct {
	partialTail bool
	logger      *logging.Logger
}

// WithPartialTail skips an undecodable unterminated final line instead of
// failing with ErrIncompleteExport.
func WithPartialTail() Option {
	return func(o *options) {
		o.partialTail = true
	}
}

// WithLogger sets the logger skipped lines are reported through.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Read decodes every record of the export file at path.
func Read(path string, opts ...Option) ([]TraceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace export: %w", err)
	}
	defer f.Close()

	records, err := ReadFrom(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return records, nil
}

// ReadFrom decodes one record per non-blank line of r, in order.
//
// A complete line that fails to decode yields *MalformedExportError. Errors
// from r are returned as is.
func ReadFrom(r io.Reader, opts ...Option) ([]TraceRecord, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	o.logger = o.logger.Named("tracefile")

	var (
		records []TraceRecord
		br      = bufio.NewReader(r)
		lineNo  int
	)
	for {
		line, readErr := br.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, readErr
		}
		atEOF := readErr != nil
		terminated := len(line) > 0 && line[len(line)-1] == '\n'

		if len(line) > 0 {
			lineNo++
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			rec, err := decodeLine(trimmed)
			switch {
			case err == nil:
				records = append(records, rec)
			case terminated:
				return nil, &MalformedExportError{Line: lineNo, Err: err}
			case o.partialTail:
				o.logger.Warn(context.Background(), "skipping partial trailing record",
					zap.Int("line", lineNo), zap.Int("bytes", len(trimmed)), zap.Error(err))
			default:
				return nil, fmt.Errorf("%w: line %d: %w", ErrIncompleteExport, lineNo, err)
			}
		}

		if atEOF {
			return records, nil
		}
	}
}
