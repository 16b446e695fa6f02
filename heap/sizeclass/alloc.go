package sizeclass

import (
	"github.com/joshuapare/heap2d/heap/arena"
	"github.com/joshuapare/heap2d/internal/format"
)

// AllocObject returns one slot of a fixed tier. When the current arena is
// full it moves to the full list and is replaced by the head of the free
// list, or by a fresh arena.
func (c Class) AllocObject(src *arena.Source) uintptr {
	cur := src.At(c.Current())
	if cur.IsFull() {
		c.pushFull(src, cur)
		if next := c.popArena(src); !next.IsNil() {
			cur = next
			src.Stats.ArenaFreeToCurr++
		} else {
			cur = src.NewObject(src.Layout.ClassObjectSize(c.Index()))
			cur.SetOwner(c.Addr())
		}
		c.setCurrent(cur.Addr())
		src.Stats.ArenaCurrToFull++
	}
	p := cur.AllocObject()
	if p == 0 {
		format.Fatalf(arena.ErrCorrupt, "current arena 0x%X of class 0x%X has no free slot", cur.Addr(), c.Addr())
	}
	c.incCount()
	return p
}

// AllocVarlen serves size bytes from the varlen tier. The current arena is
// tried first, then every arena on the free list. If none fits, the current
// arena is demoted to the free list and a fresh arena becomes current.
func (c Class) AllocVarlen(src *arena.Source, size int) uintptr {
	split := src.Layout.SplitThreshold
	cur := src.At(c.Current())
	p := cur.AllocVarlen(size, split)
	for addr := c.FreeList(); p == 0 && addr != 0; {
		a := src.At(addr)
		p = a.AllocVarlen(size, split)
		addr = a.Next()
	}
	if p == 0 {
		c.pushArena(src, cur)
		cur = src.NewVarlen()
		cur.SetOwner(c.Addr())
		c.setCurrent(cur.Addr())
		p = cur.AllocVarlen(size, split)
		if p == 0 {
			format.Fatalf(arena.ErrBadSize, "varlen request of %d bytes exceeds an empty arena", size)
		}
	}
	c.incCount()
	return p
}

// AllocHuge maps a dedicated arena for size bytes and tracks it on the free
// list.
func (c Class) AllocHuge(src *arena.Source, size int) uintptr {
	a := src.NewHuge(size)
	a.SetOwner(c.Addr())
	c.pushArena(src, a)
	c.incCount()
	return a.HugePayload()
}

// Dealloc frees ptr, whatever its tier, and updates the owning class.
// Arenas that become empty and are not current are returned to the OS;
// arenas that were full move from the full list to the free list.
func Dealloc(src *arena.Source, ptr uintptr) {
	a := src.Of(ptr)
	owner := At(a.Owner())

	switch a.CheckedMode() {
	case arena.ModeObject:
		a.DeallocObject(ptr)
		if owner.IsNil() {
			return
		}
		owner.decCount()
		if a.Addr() == owner.Current() {
			return
		}
		switch {
		case a.FreeCount() == 1:
			owner.unlinkFull(src, a)
			owner.pushArena(src, a)
			src.Stats.ArenaFullToFree++
		case a.IsEmpty():
			owner.unlinkArena(src, a)
			src.Release(a)
		}

	case arena.ModeVarlen:
		a.DeallocVarlen(ptr)
		if owner.IsNil() {
			return
		}
		owner.decCount()
		if a.IsEmpty() && a.Addr() != owner.Current() {
			owner.unlinkArena(src, a)
			src.Release(a)
		}

	case arena.ModeHuge:
		a.CheckHugePointer(ptr)
		if !owner.IsNil() {
			owner.decCount()
			owner.unlinkArena(src, a)
		}
		src.Release(a)
	}
}

// UsableSize returns the bytes usable at ptr.
func UsableSize(src *arena.Source, ptr uintptr) int {
	return src.Of(ptr).UsableSize(ptr)
}
