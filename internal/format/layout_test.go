package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()

	require.Equal(t, 16, l.ArenaPages)
	require.Equal(t, 65536, l.ArenaSize)
	require.Equal(t, 64, l.ClassCount)
	require.Equal(t, 65536-ArenaHeaderSize, l.VarlenMaxSize)
	require.Equal(t, 512+BlockHeaderSize, l.SplitThreshold)

	// A maximal payload plus its header must fit a fresh varlen arena.
	require.LessOrEqual(t, Align8(l.VarlenMaxPayload)+BlockHeaderSize, l.VarlenMaxSize)
	require.Greater(t, Align8(l.VarlenMaxPayload+1)+BlockHeaderSize, l.VarlenMaxSize)
}

func TestLayout_ClassIndex(t *testing.T) {
	l := DefaultLayout()

	require.Equal(t, 0, l.ClassIndex(1))
	require.Equal(t, 0, l.ClassIndex(8))
	require.Equal(t, 1, l.ClassIndex(9))
	require.Equal(t, 1, l.ClassIndex(10))
	require.Equal(t, 1, l.ClassIndex(16))
	require.Equal(t, 63, l.ClassIndex(512))

	require.Equal(t, 16, l.ClassObjectSize(1))
	require.Equal(t, 512, l.ClassObjectSize(63))
}

func TestLayout_ArenaOf(t *testing.T) {
	l := DefaultLayout()
	base := uintptr(7 * l.ArenaSize)

	require.Equal(t, base, l.ArenaOf(base))
	require.Equal(t, base, l.ArenaOf(base+ArenaHeaderSize))
	require.Equal(t, base, l.ArenaOf(base+uintptr(l.ArenaSize)-1))
	require.Equal(t, base+uintptr(l.ArenaSize), l.ArenaOf(base+uintptr(l.ArenaSize)))
}

func TestLayout_HugePages(t *testing.T) {
	l := DefaultLayout()

	require.Equal(t, 17, l.HugePages(l.ArenaSize))
	require.Equal(t, 1, l.HugePages(PageSize-ArenaHeaderSize))
	require.Equal(t, 2, l.HugePages(PageSize-ArenaHeaderSize+1))
}

func TestLayout_MaxHugeSize(t *testing.T) {
	l := DefaultLayout()
	limit := l.MaxHugeSize()

	require.Equal(t, uint64(MaxHugePages), uint64(l.HugePages(limit)+l.ArenaPages),
		"largest request fills the page counter exactly")
	require.Greater(t, uint64(l.HugePages(limit+1)+l.ArenaPages), uint64(MaxHugePages))
	require.Less(t, uint64(limit), uint64(1)<<44, "16 TiB requests are out of range")

	_, err := NewLayout(MaxArenaPages, 512)
	require.NoError(t, err)
}

func TestNewLayout_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		pages    int
		objMax   int
		contains string
	}{
		{"pages not pow2", 12, 512, "power of two"},
		{"single page", 1, 512, "power of two"},
		{"object max unaligned", 16, 500, "multiple"},
		{"object max too large", 16, 8192, "multiple"},
		{"object max below record", 16, 40, "multiple"},
		{"arena too small", 2, 4096, "too small"},
		{"arena too large", 1 << 20, 512, "32-bit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLayout(tt.pages, tt.objMax)
			require.ErrorIs(t, err, ErrBadLayout)
			require.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestFatalf(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		require.ErrorIs(t, err, ErrBadLayout)
		require.Contains(t, err.Error(), "arena 0x10")
	}()
	Fatalf(ErrBadLayout, "arena 0x%X", 16)
}
