package arena

import (
	"github.com/joshuapare/heap2d/internal/format"
)

// firstBlock is the arena-relative offset of the first varlen block.
const firstBlock = format.ArenaHeaderSize

// Block header accessors. off is the arena-relative offset of the header.

func (a Arena) blockSize(off int) int     { return int(format.ReadU32(a.mem, off+format.BlockSizeOffset)) }
func (a Arena) blockPrevSize(off int) int { return int(format.ReadU32(a.mem, off+format.BlockPrevSizeOffset)) }
func (a Arena) blockState(off int) uint32 { return format.ReadU32(a.mem, off+format.BlockStateOffset) }
func (a Arena) blockNextFree(off int) int { return int(format.ReadU32(a.mem, off+format.BlockNextFreeOffset)) }
func (a Arena) blockPrevFree(off int) int { return int(format.ReadU32(a.mem, off+format.BlockPrevFreeOffset)) }
func (a Arena) blockUsed(off int) bool    { return a.blockState(off) == format.BlockUsed }

func (a Arena) setBlockSize(off, v int) {
	format.PutU32(a.mem, off+format.BlockSizeOffset, uint32(v))
}

func (a Arena) setBlockPrevSize(off, v int) {
	format.PutU32(a.mem, off+format.BlockPrevSizeOffset, uint32(v))
}

func (a Arena) setBlockState(off int, state uint32) {
	format.PutU32(a.mem, off+format.BlockStateOffset, state)
}

func (a Arena) setBlockNextFree(off, v int) {
	format.PutU32(a.mem, off+format.BlockNextFreeOffset, uint32(v))
}

func (a Arena) setBlockPrevFree(off, v int) {
	format.PutU32(a.mem, off+format.BlockPrevFreeOffset, uint32(v))
}

// NewVarlen maps a varlen arena holding one free block that spans the whole
// body.
func (s *Source) NewVarlen() Arena {
	a := s.newAligned(ModeVarlen)
	size := s.Layout.VarlenMaxSize

	a.setBlockPrevSize(firstBlock, 0)
	a.setBlockSize(firstBlock, size)
	a.setBlockState(firstBlock, format.BlockFree)
	a.setBlockNextFree(firstBlock, 0)
	a.setBlockPrevFree(firstBlock, 0)

	a.setFreeList(firstBlock)
	a.setCounterA(size)
	a.setCounterB(size)

	s.Log.Debug("varlen arena", "addr", a.Addr(), "size", size)
	return a
}

// VarlenBlockSize returns the block size, header included, consumed by a
// request of size bytes.
func VarlenBlockSize(size int) int {
	return format.Align8(size) + format.BlockHeaderSize
}

// AllocVarlen serves size bytes from the first free block large enough. The
// block is split when the remainder exceeds the layout's split threshold.
// It returns 0 when no block fits.
func (a Arena) AllocVarlen(size, split int) uintptr {
	if size <= 0 {
		format.Fatalf(ErrBadSize, "varlen request of %d bytes", size)
	}
	need := VarlenBlockSize(size)
	if need > a.FreeSize() {
		return 0
	}
	for off := a.freeList(); off != 0; off = a.blockNextFree(off) {
		have := a.blockSize(off)
		if need > have {
			continue
		}
		a.unlinkBlock(off)
		if have-need > split {
			rest := off + need
			a.setBlockPrevSize(rest, need)
			a.setBlockSize(rest, have-need)
			a.setBlockState(rest, format.BlockFree)
			if next := rest + (have - need); next < len(a.mem) {
				a.setBlockPrevSize(next, have-need)
			}
			a.setBlockSize(off, need)
			a.pushBlock(rest)
		}
		a.setBlockState(off, format.BlockUsed)
		a.setCounterA(a.FreeSize() - a.blockSize(off))
		return a.Addr() + uintptr(off+format.BlockHeaderSize)
	}
	return 0
}

// DeallocVarlen frees the block at ptr and merges it with free neighbours.
func (a Arena) DeallocVarlen(ptr uintptr) {
	off := a.blockOffset(ptr)
	if !a.blockUsed(off) {
		format.Fatalf(ErrDoubleFree, "varlen arena 0x%X ptr 0x%X", a.Addr(), ptr)
	}
	size := a.blockSize(off)
	a.setCounterA(a.FreeSize() + size)
	a.setBlockState(off, format.BlockFree)

	next := off + size
	nextFree := next < len(a.mem) && !a.blockUsed(next)
	prevSize := a.blockPrevSize(off)
	prev := off - prevSize
	prevFree := prevSize != 0 && !a.blockUsed(prev)

	if nextFree {
		a.unlinkBlock(next)
		size += a.blockSize(next)
		a.setBlockSize(off, size)
		next = off + size
	}
	if prevFree {
		a.unlinkBlock(prev)
		size += a.blockSize(prev)
		a.setBlockSize(prev, size)
		off = prev
	}
	a.pushBlock(off)
	if next < len(a.mem) {
		a.setBlockPrevSize(next, size)
	}
}

// blockOffset validates ptr as a varlen payload address and returns the
// offset of its header.
func (a Arena) blockOffset(ptr uintptr) int {
	addr := a.Addr()
	if ptr < addr+firstBlock+format.BlockHeaderSize || ptr >= addr+uintptr(len(a.mem)) {
		format.Fatalf(ErrBadPointer, "0x%X outside varlen arena 0x%X", ptr, addr)
	}
	off := int(ptr-addr) - format.BlockHeaderSize
	if (off-firstBlock)%format.VarlenAlignment != 0 {
		format.Fatalf(ErrBadPointer, "0x%X misaligned in varlen arena 0x%X", ptr, addr)
	}
	return off
}

// payloadSize returns the usable bytes of the block whose payload is at ptr.
func (a Arena) payloadSize(ptr uintptr) int {
	return a.blockSize(a.blockOffset(ptr)) - format.BlockHeaderSize
}

// pushBlock inserts the block at off at the head of the free list.
func (a Arena) pushBlock(off int) {
	head := a.freeList()
	a.setBlockNextFree(off, head)
	a.setBlockPrevFree(off, 0)
	if head != 0 {
		a.setBlockPrevFree(head, off)
	}
	a.setFreeList(off)
}

// unlinkBlock removes the block at off from the free list.
func (a Arena) unlinkBlock(off int) {
	prev, next := a.blockPrevFree(off), a.blockNextFree(off)
	if prev != 0 {
		a.setBlockNextFree(prev, next)
	} else {
		a.setFreeList(next)
	}
	if next != 0 {
		a.setBlockPrevFree(next, prev)
	}
	a.setBlockNextFree(off, 0)
	a.setBlockPrevFree(off, 0)
}
