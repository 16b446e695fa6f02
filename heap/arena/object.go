package arena

import (
	"github.com/joshuapare/heap2d/internal/format"
)

// firstSlot is the arena-relative offset of slot 0. The header size is a
// multiple of 8, so every slot is 8-byte aligned.
const firstSlot = format.ArenaHeaderSize

// NewObject maps an object arena of objSize-byte slots and threads every slot
// onto its free list in address order.
func (s *Source) NewObject(objSize int) Arena {
	if objSize < format.ClassIncrement || objSize > s.Layout.ObjectMaxSize || objSize%format.ClassIncrement != 0 {
		format.Fatalf(ErrBadSize, "object size %d", objSize)
	}
	a := s.newAligned(ModeObject)
	maxCount := (s.Layout.ArenaSize - firstSlot) / objSize

	off := firstSlot
	for i := 0; i < maxCount-1; i++ {
		format.PutU32(a.mem, off, uint32(off+objSize))
		off += objSize
	}
	// Last slot terminates the list.
	format.PutU32(a.mem, off, 0)

	format.PutU32(a.mem, format.ArenaSlotSizeOffset, uint32(objSize))
	a.setFreeList(firstSlot)
	a.setCounterA(maxCount)
	a.setCounterB(maxCount)

	s.Log.Debug("object arena", "addr", a.Addr(), "slot", objSize, "slots", maxCount)
	return a
}

// AllocObject pops one slot off the free list. It returns 0 when the arena is
// full.
func (a Arena) AllocObject() uintptr {
	free := a.FreeCount()
	if free == 0 {
		return 0
	}
	off := a.freeList()
	if off == 0 {
		format.Fatalf(ErrCorrupt, "object arena 0x%X: %d free slots but empty list", a.Addr(), free)
	}
	a.setFreeList(int(format.ReadU32(a.mem, off)))
	a.setCounterA(free - 1)
	return a.Addr() + uintptr(off)
}

// DeallocObject pushes the slot at ptr back onto the free list.
func (a Arena) DeallocObject(ptr uintptr) {
	off := a.slotOffset(ptr)
	free := a.FreeCount() + 1
	if free > a.MaxCount() {
		format.Fatalf(ErrOverflow, "object arena 0x%X: free %d max %d", a.Addr(), free, a.MaxCount())
	}
	format.PutU32(a.mem, off, uint32(a.freeList()))
	a.setFreeList(off)
	a.setCounterA(free)
}

// slotOffset validates that ptr addresses the start of a slot and returns its
// arena-relative offset.
func (a Arena) slotOffset(ptr uintptr) int {
	addr := a.Addr()
	slot := a.SlotSize()
	if ptr < addr+firstSlot {
		format.Fatalf(ErrBadPointer, "0x%X below first slot of arena 0x%X", ptr, addr)
	}
	off := int(ptr - addr)
	if off >= firstSlot+a.MaxCount()*slot || (off-firstSlot)%slot != 0 {
		format.Fatalf(ErrBadPointer, "0x%X is not a slot of arena 0x%X (slot size %d)", ptr, addr, slot)
	}
	return off
}
