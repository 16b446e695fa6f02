//go:build linux || darwin

package pages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heap2d/internal/format"
	"github.com/joshuapare/heap2d/internal/stats"
)

func TestProvider_MapUnmap(t *testing.T) {
	st := &stats.Counters{}
	p := NewProvider(st, nil)

	addr := p.Map(3)
	require.NotZero(t, addr)
	require.True(t, format.IsAlignedPtr(addr, format.PageSize))
	require.Equal(t, uint64(1), st.MapCalls)
	require.Equal(t, int64(3), st.NetMappedPages())

	// Fresh anonymous pages are zeroed and writable.
	mem := Bytes(addr, 3*format.PageSize)
	for i := 0; i < len(mem); i += format.PageSize {
		require.Zero(t, mem[i])
		mem[i] = 0xAB
	}
	require.Equal(t, byte(0xAB), mem[2*format.PageSize])

	p.Unmap(addr, 3)
	require.Equal(t, uint64(1), st.UnmapCalls)
	require.Equal(t, int64(0), st.NetMappedPages())
	require.Equal(t, int64(0), st.NetMapCalls())
}

func TestProvider_MapAligned(t *testing.T) {
	st := &stats.Counters{}
	p := NewProvider(st, nil)

	for _, count := range []int{2, 16, 32} {
		aligned, base := p.MapAligned(count)
		span := uintptr(count) * format.PageSize

		require.True(t, format.IsAlignedPtr(aligned, span), "count=%d aligned=0x%X", count, aligned)
		require.GreaterOrEqual(t, aligned, base)
		// The aligned region must lie entirely inside the doubled mapping.
		require.LessOrEqual(t, aligned+span, base+2*span)

		Zero(aligned, int(span))
		p.Unmap(base, 2*count)
	}
	require.Equal(t, int64(0), st.NetMappedPages())
}

func TestProvider_MapAlignedRejectsNonPow2(t *testing.T) {
	p := NewProvider(&stats.Counters{}, nil)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		require.True(t, errors.Is(err, ErrNotPow2))
	}()
	p.MapAligned(12)
}

func TestProvider_UnmapFailureIsFatal(t *testing.T) {
	p := NewProvider(&stats.Counters{}, nil)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		require.ErrorIs(t, err, ErrUnmapFailed)
	}()
	// An unaligned address is rejected by munmap with EINVAL.
	p.Unmap(1, 1)
}

func TestAddrRoundTrip(t *testing.T) {
	p := NewProvider(&stats.Counters{}, nil)
	addr := p.Map(1)
	defer p.Unmap(addr, 1)

	view := Bytes(addr, format.PageSize)
	require.Equal(t, addr, Addr(view))
	require.Equal(t, addr+16, Addr(view[16:]))
}
