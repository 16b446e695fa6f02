//go:build linux || darwin

package arena

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heap2d/internal/format"
	"github.com/joshuapare/heap2d/internal/pages"
)

func Test_Huge_Init(t *testing.T) {
	src := newTestSource(t)
	size := 1 << 20
	a := src.NewHuge(size)

	require.Equal(t, ModeHuge, a.Mode())
	require.Zero(t, a.Addr()%uintptr(src.Layout.ArenaSize))
	require.Equal(t, src.Layout.HugePages(size), a.Pages())
	require.Equal(t, a.Pages()+src.Layout.ArenaPages, a.MappedPages())
	require.GreaterOrEqual(t, a.HugeSize(), size)
	require.Equal(t, a.HugeSize(), a.UsableSize(a.HugePayload()))
	require.Equal(t, a.Addr(), src.Layout.ArenaOf(a.HugePayload()))
	require.NoError(t, a.Verify())

	// Whole payload is writable.
	b := pages.Bytes(a.HugePayload(), size)
	b[0], b[size-1] = 0xAA, 0x55
	require.Equal(t, byte(0xAA), b[0])

	src.Release(a)
	require.Zero(t, src.Stats.NetMappedPages())
}

func Test_Huge_SmallestSize(t *testing.T) {
	src := newTestSource(t)
	a := src.NewHuge(src.Layout.VarlenMaxPayload + 1)
	defer src.Release(a)
	require.GreaterOrEqual(t, a.Pages(), src.Layout.ArenaPages)
}

func Test_Huge_RejectsVarlenSizes(t *testing.T) {
	src := newTestSource(t)
	requireFatal(t, ErrBadSize, func() { src.NewHuge(src.Layout.VarlenMaxPayload) })
}

func Test_Huge_RejectsSizesBeyondCounters(t *testing.T) {
	src := newTestSource(t)
	limit := src.Layout.MaxHugeSize()
	requireFatal(t, ErrBadSize, func() { src.NewHuge(limit + 1) })
	requireFatal(t, ErrBadSize, func() { src.NewHuge(1 << 44) })
	require.Zero(t, src.Stats.MapCalls, "rejected before mapping")
}

func Test_Huge_CheckPointer(t *testing.T) {
	src := newTestSource(t)
	a := src.NewHuge(src.Layout.ArenaSize * 2)
	defer src.Release(a)

	a.CheckHugePointer(a.HugePayload())
	requireFatal(t, ErrBadPointer, func() { a.CheckHugePointer(a.HugePayload() + 8) })
}

func Test_Arena_UnknownMode(t *testing.T) {
	src := newTestSource(t)
	a := src.NewObject(8)
	defer func() {
		format.PutU32(a.mem, format.ArenaModeOffset, uint32(ModeObject))
		src.Release(a)
	}()

	format.PutU32(a.mem, format.ArenaModeOffset, 0)
	requireFatal(t, ErrUnknownMode, func() { a.CheckedMode() })
	require.ErrorIs(t, a.Verify(), ErrUnknownMode)
}

func Test_Arena_Dump(t *testing.T) {
	src := newTestSource(t)
	obj := src.NewObject(48)
	defer src.Release(obj)
	vl := src.NewVarlen()
	defer src.Release(vl)
	vl.AllocVarlen(100, src.Layout.SplitThreshold)

	var buf bytes.Buffer
	obj.Dump(&buf)
	vl.Dump(&buf)
	out := buf.String()
	require.Contains(t, out, "arena (object)")
	require.Contains(t, out, "slot 48")
	require.Contains(t, out, "arena (varlen)")
	require.Contains(t, out, "used")
	require.Contains(t, out, "free")
}

func Test_Arena_Of(t *testing.T) {
	src := newTestSource(t)
	a := src.NewObject(8)
	defer src.Release(a)

	p := a.AllocObject()
	require.Equal(t, a.Addr(), src.Of(p).Addr())
	require.True(t, a.Contains(p))
	require.True(t, src.At(0).IsNil())
}
