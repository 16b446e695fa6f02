package heap

import (
	"runtime"

	"github.com/joshuapare/heap2d/heap/arena"
	"github.com/joshuapare/heap2d/heap/sizeclass"
	"github.com/joshuapare/heap2d/heap/table"
	"github.com/joshuapare/heap2d/internal/buf"
	"github.com/joshuapare/heap2d/internal/format"
	"github.com/joshuapare/heap2d/internal/pages"
)

// Allocator is a 2D heap: requests are partitioned by size tier and, for
// typed requests, by allocation-site tag.
//
// The zero value is not usable; call New. An Allocator is not safe for
// concurrent use; wrap it in Locked to share it between goroutines.
type Allocator struct {
	cfg    Config
	layout format.Layout
	src    *arena.Source

	// Root mapping holding the untyped tier records followed by the meta,
	// varlen and huge records.
	root      uintptr
	rootPages int

	meta   sizeclass.Class
	varlen sizeclass.Class
	huge   sizeclass.Class
	types  *table.Table

	closed bool
}

// New builds an allocator from cfg. Every untyped tier starts with one
// mapped arena.
func New(cfg Config) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	layout := cfg.layout()
	src := arena.NewSource(layout, cfg.logger())

	a := &Allocator{cfg: cfg, layout: layout, src: src}
	a.rootPages = format.PagesFor((layout.ClassCount + 3) * format.ClassRecordSize)
	a.root = src.Pages.Map(a.rootPages)

	for i := 0; i < layout.ClassCount; i++ {
		sizeclass.Init(src, a.record(i), 0, i)
	}
	a.meta = sizeclass.Init(src, a.record(layout.ClassCount), 0, format.MetaClassIndex)
	a.varlen = sizeclass.Init(src, a.record(layout.ClassCount+1), 0, sizeclass.Varlen)
	a.huge = sizeclass.Init(src, a.record(layout.ClassCount+2), 0, sizeclass.Huge)

	types, err := table.New(src, a.meta, cfg.TableBuckets, cfg.TableMaxLoad)
	if err != nil {
		a.releaseClasses()
		a.releaseRoot()
		return nil, err
	}
	a.types = types

	src.Log.Debug("allocator ready",
		"config", cfg.Name, "arena_pages", layout.ArenaPages,
		"tiers", layout.ClassCount, "varlen_max", layout.VarlenMaxPayload)
	return a, nil
}

// MustNew is New for configurations known to be valid.
func MustNew(cfg Config) *Allocator {
	a, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *Allocator) record(i int) uintptr {
	return a.root + uintptr(i*format.ClassRecordSize)
}

// untyped returns the untyped record of fixed tier index.
func (a *Allocator) untyped(index int) sizeclass.Class {
	return sizeclass.At(a.record(index))
}

func (a *Allocator) checkOpen() {
	if a.closed {
		format.Fatalf(ErrClosed, "use after Close")
	}
}

// route rounds size and reports where it is served: a fixed tier index, or
// sizeclass.Varlen, or sizeclass.Huge.
func (a *Allocator) route(size int) (rounded, index int) {
	if size < 0 {
		format.Fatalf(ErrBadSize, "negative size %d", size)
	}
	if size == 0 {
		size = 1
	}
	switch {
	case size <= a.layout.ObjectMaxSize:
		return size, a.layout.ClassIndex(size)
	case size <= a.layout.VarlenMaxPayload:
		return size, sizeclass.Varlen
	default:
		if _, ok := buf.AddOverflowSafe(size, format.ArenaHeaderSize+2*format.PageSize); !ok {
			format.Fatalf(ErrBadSize, "size %d overflows a huge mapping", size)
		}
		if size > a.layout.MaxHugeSize() {
			format.Fatalf(ErrBadSize, "size %d exceeds the huge limit %d", size, a.layout.MaxHugeSize())
		}
		return size, sizeclass.Huge
	}
}

// Alloc returns the address of size bytes from the untyped tiers. A size of
// 0 is served as 1.
func (a *Allocator) Alloc(size int) uintptr {
	a.checkOpen()
	a.src.Stats.AllocCalls++
	size, index := a.route(size)
	switch index {
	case sizeclass.Varlen:
		return a.varlen.AllocVarlen(a.src, size)
	case sizeclass.Huge:
		return a.huge.AllocHuge(a.src, size)
	default:
		return a.untyped(index).AllocObject(a.src)
	}
}

// TypedAlloc is Alloc with fixed-tier requests partitioned by typeID.
// Varlen and huge requests are shared across all tags.
func (a *Allocator) TypedAlloc(typeID uint64, size int) uintptr {
	a.checkOpen()
	a.src.Stats.AllocCalls++
	size, index := a.route(size)
	switch index {
	case sizeclass.Varlen:
		return a.varlen.AllocVarlen(a.src, size)
	case sizeclass.Huge:
		return a.huge.AllocHuge(a.src, size)
	default:
		return a.types.FindOrCreate(typeID, index).AllocObject(a.src)
	}
}

// TypedAllocCaller is TypedAlloc tagged with the program counter of the
// call site.
//
//go:noinline
func (a *Allocator) TypedAllocCaller(size int) uintptr {
	var pc [1]uintptr
	// Skip runtime.Callers and this frame.
	runtime.Callers(2, pc[:])
	return a.TypedAlloc(uint64(pc[0]), size)
}

// Dealloc frees the allocation at ptr. Dealloc(0) is a no-op.
func (a *Allocator) Dealloc(ptr uintptr) {
	if ptr == 0 {
		return
	}
	a.checkOpen()
	a.src.Stats.FreeCalls++
	sizeclass.Dealloc(a.src, ptr)
}

// AllocationSize returns the usable bytes at ptr: the slot size for fixed
// tiers, the block payload for varlen, the page span minus the arena header
// for huge allocations.
func (a *Allocator) AllocationSize(ptr uintptr) int {
	a.checkOpen()
	return sizeclass.UsableSize(a.src, ptr)
}

// Bytes returns a view of the n bytes at ptr. The slice is valid until ptr is
// freed and must not outlive the allocator.
func (a *Allocator) Bytes(ptr uintptr, n int) []byte {
	if ptr == 0 || n == 0 {
		return nil
	}
	return pages.Bytes(ptr, n)
}

// Close releases every arena, class record, the type table and the root
// mapping. Allocations still live are unmapped with them. Any later use of a
// is fatal.
func (a *Allocator) Close() error {
	if a.closed {
		return ErrClosed
	}
	// Typed records go back to the meta class, so the table is torn down first.
	a.types.Release()
	a.releaseClasses()
	a.releaseRoot()
	a.closed = true
	a.src.Log.Debug("allocator closed", "net_pages", a.src.Stats.NetMappedPages())
	return nil
}

func (a *Allocator) releaseClasses() {
	for i := 0; i < a.layout.ClassCount; i++ {
		a.untyped(i).Release(a.src)
	}
	a.huge.Release(a.src)
	a.varlen.Release(a.src)
	a.meta.Release(a.src)
}

func (a *Allocator) releaseRoot() {
	a.src.Pages.Unmap(a.root, a.rootPages)
	a.root = 0
}
