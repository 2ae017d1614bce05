package tracefile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultPollInterval is the WaitComplete poll interval used when none is given.
const DefaultPollInterval = 100 * time.Millisecond

var errNotComplete = errors.New("export file not complete")

// WaitComplete blocks until the export file at path looks fully written: it is
// non-empty, ends with a newline and its size did not change since the
// previous poll. It waits until ctx is done, however long that takes.
func WaitComplete(ctx context.Context, path string, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	lastSize := int64(-1)
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		size, endsWithNewline, err := inspectTail(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return struct{}{}, backoff.Permanent(err)
		}

		stable := size > 0 && size == lastSize
		lastSize = size
		if !stable || !endsWithNewline {
			return struct{}{}, errNotComplete
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewConstantBackOff(interval)), backoff.WithMaxElapsedTime(0))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("waiting for %s: %w", path, ctxErr)
		}
		return fmt.Errorf("waiting for %s: %w", path, err)
	}
	return nil
}

// inspectTail returns the file size and whether its last byte is a newline.
func inspectTail(path string) (int64, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, false, err
	}
	if info.Size() == 0 {
		return 0, false, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil && !errors.Is(err, io.EOF) {
		return 0, false, err
	}
	return info.Size(), last[0] == '\n', nil
}
