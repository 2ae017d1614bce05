package collector

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	resultDir   = "result"
	expectedDir = "expected"
)

// Layout locates the trace files of one test under Root.
type Layout struct {
	Root     string
	TestName string
}

// ResultPath is where the collector writes the traces of this run.
func (l Layout) ResultPath() string {
	return filepath.Join(l.Root, resultDir, l.TestName+".json")
}

// ExpectedPath holds the reference export the result is compared against.
func (l Layout) ExpectedPath() string {
	return filepath.Join(l.Root, expectedDir, l.TestName+".json")
}

// PrepareResult creates an empty, world-writable result file so the
// collector, running as another user, can write to the bind mount.
func (l Layout) PrepareResult() (string, error) {
	if l.TestName == "" {
		return "", fmt.Errorf("layout: test name is required")
	}

	path := l.ResultPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating result directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o666)
	if err != nil {
		return "", fmt.Errorf("creating result file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing result file: %w", err)
	}

	// The umask strips write bits from the create mode.
	if err := os.Chmod(path, 0o666); err != nil {
		return "", fmt.Errorf("making result file writable: %w", err)
	}
	return path, nil
}
