//go:build linux || darwin

package heap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestAllocator builds an allocator and, at cleanup, closes it and checks
// that every mapped page went back to the OS.
func newTestAllocator(t *testing.T, cfg Config) *Allocator {
	t.Helper()
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if !a.closed {
			require.NoError(t, a.Close())
		}
		require.Zero(t, a.NetMappedPages(), "pages leaked")
	})
	return a
}

// requireFatal runs fn and asserts that it stops the allocator with target.
func requireFatal(t *testing.T, target error, fn func()) {
	t.Helper()
	var got error
	func() {
		defer func() {
			if r := recover(); r != nil {
				got, _ = r.(error)
			}
		}()
		fn()
	}()
	require.Error(t, got, "expected a fatal error")
	require.True(t, errors.Is(got, target), "got %v, want %v", got, target)
}

// fill writes a pattern derived from seed over n bytes at p.
func fill(a *Allocator, p uintptr, n int, seed byte) {
	b := a.Bytes(p, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
}

// requirePattern checks the bytes written by fill.
func requirePattern(t *testing.T, a *Allocator, p uintptr, n int, seed byte) {
	t.Helper()
	b := a.Bytes(p, n)
	for i := range b {
		if b[i] != seed+byte(i) {
			require.Failf(t, "pattern mismatch", "0x%X+%d: got %d want %d", p, i, b[i], seed+byte(i))
		}
	}
}
