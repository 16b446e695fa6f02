package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlign(t *testing.T) {
	tests := []struct {
		n, align, want int
	}{
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{0, 8, 0},
		{4097, PageSize, 2 * PageSize},
		{65536, 65536, 65536},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Align(tt.n, tt.align), "Align(%d, %d)", tt.n, tt.align)
	}
	require.Equal(t, 16, Align8(9))
	require.Equal(t, 8, AlignDown(15, 8))
}

func TestAlignPtr(t *testing.T) {
	const arena = uintptr(16 * PageSize)

	require.Equal(t, arena, AlignPtr(1, arena))
	require.Equal(t, arena, AlignPtr(arena, arena))
	require.Equal(t, 2*arena, AlignPtr(arena+PageSize, arena))

	require.Equal(t, arena, AlignDownPtr(arena+123, arena))
	require.Equal(t, arena, AlignDownPtr(2*arena-1, arena))
	require.True(t, IsAlignedPtr(3*arena, arena))
	require.False(t, IsAlignedPtr(3*arena+8, arena))
}

func TestIsPow2(t *testing.T) {
	for _, n := range []int{1, 2, 16, 4096} {
		require.True(t, IsPow2(n), n)
	}
	for _, n := range []int{0, -4, 3, 12, 4095} {
		require.False(t, IsPow2(n), n)
	}
}

func TestPagesFor(t *testing.T) {
	require.Equal(t, 0, PagesFor(0))
	require.Equal(t, 1, PagesFor(1))
	require.Equal(t, 1, PagesFor(PageSize))
	require.Equal(t, 2, PagesFor(PageSize+1))
}
