//go:build linux || darwin

package arena

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heap2d/internal/format"
)

func newTestSource(t *testing.T) *Source {
	t.Helper()
	return NewSource(format.DefaultLayout(), nil)
}

// requireFatal runs fn and asserts that it stops the allocator with target.
func requireFatal(t *testing.T, target error, fn func()) {
	t.Helper()
	var got error
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a fatal error")
			err, ok := r.(error)
			require.True(t, ok, "panic value %v is not an error", r)
			got = err
		}()
		fn()
	}()
	require.True(t, errors.Is(got, target), "got %v, want %v", got, target)
}
