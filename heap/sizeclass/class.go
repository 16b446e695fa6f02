// Package sizeclass implements size classes: the owners of every arena.
//
// A size class serves one allocation granularity. Fixed tiers hand out
// equal-size slots from object arenas, the varlen tier serves variable-size
// blocks, and the huge tier owns one arena per allocation. Each class tracks a
// current arena plus a doubly linked list of arenas with spare capacity; an
// arena is on that list iff it has a free unit and is not current. Fixed
// tiers also keep their full arenas on a second list so that Release can
// reach every arena.
//
// Class records are 56-byte in-band structures. Untyped records live in the
// allocator's root mapping; typed records are carved from the meta class.
//
// Not thread-safe.
package sizeclass

import (
	"errors"

	"github.com/joshuapare/heap2d/heap/arena"
	"github.com/joshuapare/heap2d/internal/format"
	"github.com/joshuapare/heap2d/internal/pages"
)

// Special tier indexes.
const (
	Varlen = format.IndexVarlen
	Huge   = format.IndexHuge
)

var (
	// ErrCountUnderflow indicates more frees than live objects in a class.
	ErrCountUnderflow = errors.New("sizeclass: live count underflow")

	// ErrBadIndex indicates a tier index outside the configured range.
	ErrBadIndex = errors.New("sizeclass: bad tier index")
)

// Class is a view over an in-band size class record. The zero value is the
// nil class.
type Class struct {
	mem []byte
}

// At returns the class whose record starts at addr. At(0) is the nil class.
func At(addr uintptr) Class {
	if addr == 0 {
		return Class{}
	}
	return Class{mem: pages.Bytes(addr, format.ClassRecordSize)}
}

// IsNil reports whether c is the nil class.
func (c Class) IsNil() bool { return c.mem == nil }

// Addr returns the address of the record.
func (c Class) Addr() uintptr {
	if c.mem == nil {
		return 0
	}
	return pages.Addr(c.mem)
}

// TypeID returns the allocation-site tag (0 for untyped classes).
func (c Class) TypeID() uint64 { return format.ReadU64(c.mem, format.ClassTypeIDOffset) }

// Index returns the tier index, Varlen or Huge.
func (c Class) Index() int { return int(format.ReadI32(c.mem, format.ClassIndexOffset)) }

// Count returns the number of live objects.
func (c Class) Count() uint64 { return format.ReadU64(c.mem, format.ClassCountOffset) }

// FreeList returns the first arena with spare capacity.
func (c Class) FreeList() uintptr { return format.ReadAddr(c.mem, format.ClassFreeListOffset) }

// Current returns the arena serving allocations (0 for the huge tier).
func (c Class) Current() uintptr { return format.ReadAddr(c.mem, format.ClassCurrentOffset) }

// FullList returns the first object arena with no free slot.
func (c Class) FullList() uintptr { return format.ReadAddr(c.mem, format.ClassFullListOffset) }

// Next returns the next record in a table chain.
func (c Class) Next() uintptr { return format.ReadAddr(c.mem, format.ClassNextOffset) }

// SetNext links the record into a table chain.
func (c Class) SetNext(addr uintptr) { format.PutAddr(c.mem, format.ClassNextOffset, addr) }

// IsObject reports whether c is a fixed tier.
func (c Class) IsObject() bool { return c.Index() >= 0 }

func (c Class) setCount(v uint64) { format.PutU64(c.mem, format.ClassCountOffset, v) }
func (c Class) setCurrent(addr uintptr) { format.PutAddr(c.mem, format.ClassCurrentOffset, addr) }
func (c Class) incCount() { c.setCount(c.Count() + 1) }

func (c Class) decCount() {
	n := c.Count()
	if n == 0 {
		format.Fatalf(ErrCountUnderflow, "class 0x%X (type %d index %d)", c.Addr(), c.TypeID(), c.Index())
	}
	c.setCount(n - 1)
}

// Init writes a fresh record at addr. Fixed and varlen tiers start with one
// current arena; the huge tier starts empty.
func Init(src *arena.Source, addr uintptr, typeID uint64, index int) Class {
	if index != Varlen && index != Huge && (index < 0 || index >= src.Layout.ClassCount) {
		format.Fatalf(ErrBadIndex, "index %d (tiers 0..%d)", index, src.Layout.ClassCount-1)
	}
	c := At(addr)
	clear(c.mem)
	format.PutU64(c.mem, format.ClassTypeIDOffset, typeID)
	format.PutI32(c.mem, format.ClassIndexOffset, int32(index))

	var cur arena.Arena
	switch index {
	case Varlen:
		cur = src.NewVarlen()
	case Huge:
	default:
		cur = src.NewObject(src.Layout.ClassObjectSize(index))
	}
	if !cur.IsNil() {
		cur.SetOwner(addr)
		c.setCurrent(cur.Addr())
	}
	src.Stats.ClassInits++
	src.Log.Debug("size class init", "addr", addr, "type", typeID, "index", index)
	return c
}

// New carves a record out of meta and initializes it.
func New(src *arena.Source, meta Class, typeID uint64, index int) Class {
	return Init(src, meta.AllocObject(src), typeID, index)
}

// Release returns every arena owned by c to the OS, full arenas included.
// The record itself is left in place.
func (c Class) Release(src *arena.Source) {
	for _, head := range []int{format.ClassFreeListOffset, format.ClassFullListOffset} {
		for addr := format.ReadAddr(c.mem, head); addr != 0; {
			a := src.At(addr)
			addr = a.Next()
			src.Release(a)
		}
		format.PutAddr(c.mem, head, 0)
	}
	if cur := c.Current(); cur != 0 {
		src.Release(src.At(cur))
	}
	c.setCurrent(0)
	src.Stats.ClassFrees++
	src.Log.Debug("size class released", "addr", c.Addr(), "type", c.TypeID(), "index", c.Index())
}

// Free releases c's arenas and hands its record back to the meta class.
func Free(src *arena.Source, c Class) {
	c.Release(src)
	Dealloc(src, c.Addr())
}

// pushArena inserts a at the head of the free-arena list.
func (c Class) pushArena(src *arena.Source, a arena.Arena) {
	c.push(src, format.ClassFreeListOffset, a)
}

// unlinkArena removes a from the free-arena list.
func (c Class) unlinkArena(src *arena.Source, a arena.Arena) {
	c.unlink(src, format.ClassFreeListOffset, a)
}

// popArena removes and returns the head of the free-arena list.
func (c Class) popArena(src *arena.Source) arena.Arena {
	a := src.At(c.FreeList())
	if !a.IsNil() {
		c.unlinkArena(src, a)
	}
	return a
}

func (c Class) pushFull(src *arena.Source, a arena.Arena) {
	c.push(src, format.ClassFullListOffset, a)
}

func (c Class) unlinkFull(src *arena.Source, a arena.Arena) {
	c.unlink(src, format.ClassFullListOffset, a)
}

// push inserts a at the head of the list whose head lives at off.
func (c Class) push(src *arena.Source, off int, a arena.Arena) {
	head := format.ReadAddr(c.mem, off)
	a.SetPrev(0)
	a.SetNext(head)
	if head != 0 {
		src.At(head).SetPrev(a.Addr())
	}
	format.PutAddr(c.mem, off, a.Addr())
}

// unlink removes a from the list whose head lives at off.
func (c Class) unlink(src *arena.Source, off int, a arena.Arena) {
	prev, next := a.Prev(), a.Next()
	if prev != 0 {
		src.At(prev).SetNext(next)
	} else {
		format.PutAddr(c.mem, off, next)
	}
	if next != 0 {
		src.At(next).SetPrev(prev)
	}
	a.SetPrev(0)
	a.SetNext(0)
}
