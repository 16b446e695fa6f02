//go:build linux || darwin

package table

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heap2d/heap/arena"
	"github.com/joshuapare/heap2d/heap/sizeclass"
	"github.com/joshuapare/heap2d/internal/format"
)

// newTestTable builds a table over a fresh meta class and checks at cleanup
// that tearing everything down returns every page.
func newTestTable(t *testing.T, buckets, maxLoad int) (*Table, *arena.Source) {
	t.Helper()
	src := arena.NewSource(format.DefaultLayout(), nil)
	root := src.Pages.Map(1)
	meta := sizeclass.Init(src, root, 0, format.MetaClassIndex)
	tbl, err := New(src, meta, buckets, maxLoad)
	require.NoError(t, err)
	t.Cleanup(func() {
		tbl.Release()
		require.Zero(t, meta.Count(), "every record returned to the meta class")
		meta.Release(src)
		src.Pages.Unmap(root, 1)
		require.Zero(t, src.Stats.NetMappedPages(), "pages leaked")
	})
	return tbl, src
}

func Test_Table_New_Validates(t *testing.T) {
	src := arena.NewSource(format.DefaultLayout(), nil)
	_, err := New(src, sizeclass.Class{}, 3, 1)
	require.ErrorIs(t, err, ErrBadBuckets)
	_, err = New(src, sizeclass.Class{}, 4, -1)
	require.Error(t, err)
	require.Zero(t, src.Stats.MapCalls)
}

func Test_Table_Hash(t *testing.T) {
	require.Equal(t, Hash(42, 3), Hash(42, 3))
	require.NotEqual(t, Hash(42, 3), Hash(42, 4))
	require.NotEqual(t, Hash(42, 3), Hash(43, 3))

	// The mix spreads sequential type ids across buckets.
	hit := make(map[uint64]struct{})
	for id := uint64(1); id <= 64; id++ {
		hit[Hash(id, 0)&63] = struct{}{}
	}
	require.Greater(t, len(hit), 24)
}

func Test_Table_FindOrCreate(t *testing.T) {
	tbl, _ := newTestTable(t, 16, 0)

	c := tbl.FindOrCreate(100, 2)
	require.False(t, c.IsNil())
	require.Equal(t, uint64(100), c.TypeID())
	require.Equal(t, 2, c.Index())
	require.Equal(t, 1, tbl.EntryCount())

	again := tbl.FindOrCreate(100, 2)
	require.Equal(t, c.Addr(), again.Addr(), "empty exact match is reused, not evicted")
	require.Equal(t, 1, tbl.EntryCount())

	other := tbl.FindOrCreate(100, 3)
	require.NotEqual(t, c.Addr(), other.Addr())
	require.Equal(t, c.Addr(), tbl.Lookup(100, 2).Addr())
	require.True(t, tbl.Lookup(101, 2).IsNil())
	require.NoError(t, tbl.Verify())
}

func Test_Table_LazyEviction(t *testing.T) {
	tbl, src := newTestTable(t, 1, 0)

	old := tbl.FindOrCreate(1, 0)
	p := old.AllocObject(src)
	keep := tbl.FindOrCreate(2, 0)
	q := keep.AllocObject(src)
	require.Equal(t, 2, tbl.EntryCount())

	sizeclass.Dealloc(src, p)
	require.Zero(t, old.Count())
	frees := src.Stats.ArenaFrees

	// Same bucket, different key: the empty class is reclaimed on the way.
	tbl.FindOrCreate(3, 0)
	require.True(t, tbl.Lookup(1, 0).IsNil())
	require.False(t, tbl.Lookup(2, 0).IsNil(), "live classes survive")
	require.Equal(t, 2, tbl.EntryCount())
	require.Equal(t, uint64(1), src.Stats.TableEvictions)
	require.Equal(t, frees+1, src.Stats.ArenaFrees, "evicted class releases its arena")
	require.NoError(t, tbl.Verify())

	sizeclass.Dealloc(src, q)
}

func Test_Table_FixedCapacity(t *testing.T) {
	tbl, _ := newTestTable(t, 2, 0)
	for id := uint64(1); id <= 10; id++ {
		c := tbl.FindOrCreate(id, 1)
		c.AllocObject(tbl.src)
	}
	require.Equal(t, 2, tbl.BucketCount())
	require.Equal(t, 10, tbl.EntryCount())
	require.Zero(t, tbl.src.Stats.TableResizes)
	require.NoError(t, tbl.Verify())

	freeAll(t, tbl)
}

func Test_Table_Grows(t *testing.T) {
	tbl, src := newTestTable(t, 2, 1)

	var classes []sizeclass.Class
	for id := uint64(1); id <= 9; id++ {
		c := tbl.FindOrCreate(id, 4)
		c.AllocObject(src)
		classes = append(classes, c)
	}
	require.Equal(t, 16, tbl.BucketCount())
	require.Equal(t, 9, tbl.EntryCount())
	require.Equal(t, uint64(3), src.Stats.TableResizes)
	require.NoError(t, tbl.Verify())

	for _, c := range classes {
		require.Equal(t, c.Addr(), tbl.Lookup(c.TypeID(), 4).Addr(), "records keep their address")
	}
	freeAll(t, tbl)
}

func Test_Table_Dump(t *testing.T) {
	tbl, _ := newTestTable(t, 4, 0)
	tbl.FindOrCreate(9, 0)

	var buf bytes.Buffer
	tbl.Dump(&buf)
	require.Contains(t, buf.String(), "table buckets 4 entries 1")
	require.Contains(t, buf.String(), "class (object)")
}

// freeAll drains every live slot in the table's current arenas.
func freeAll(t *testing.T, tbl *Table) {
	t.Helper()
	tbl.Each(func(_ int, c sizeclass.Class) {
		cur := tbl.src.At(c.Current())
		for i := 0; c.Count() > 0 && i < cur.MaxCount(); i++ {
			p := cur.Addr() + uintptr(format.ArenaHeaderSize+i*cur.SlotSize())
			sizeclass.Dealloc(tbl.src, p)
		}
	})
}
