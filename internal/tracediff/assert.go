package tracediff

import (
	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/otelharness/internal/tracecontent"
)

// AssertEquivalent fails t once per mismatch between actual and expected.
// It returns whether the contents are equivalent.
func AssertEquivalent(t assert.TestingT, actual, expected *tracecontent.Content, opts ...Option) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}

	mismatches := Compare(actual, expected, opts...)
	for _, m := range mismatches {
		assert.Fail(t, "trace content mismatch", m.String())
	}
	return len(mismatches) == 0
}
