package tracediff

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/otelharness/internal/tracecontent"
)

// MismatchError carries the mismatches of a failed comparison.
type MismatchError struct {
	Mismatches []Mismatch
}

func (e *MismatchError) Error() string {
	lines := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		lines[i] = "  " + m.String()
	}
	return fmt.Sprintf("traces differ in %d projection(s):\n%s", len(e.Mismatches), strings.Join(lines, "\n"))
}

// Check is Compare as an error: nil when equivalent, *MismatchError otherwise.
func Check(actual, expected *tracecontent.Content, opts ...Option) error {
	if mismatches := Compare(actual, expected, opts...); len(mismatches) > 0 {
		return &MismatchError{Mismatches: mismatches}
	}
	return nil
}
