package arena

import (
	"errors"
	"fmt"
	"io"

	humanize "github.com/dustin/go-humanize"

	"github.com/joshuapare/heap2d/internal/format"
)

// BlockInfo describes one varlen block in address order.
type BlockInfo struct {
	Offset   int // arena-relative header offset
	Size     int // header included
	PrevSize int
	Used     bool
}

// Blocks walks a varlen arena from the first block to the end.
func (a Arena) Blocks() []BlockInfo {
	var out []BlockInfo
	for off := firstBlock; off < len(a.mem); {
		size := a.blockSize(off)
		out = append(out, BlockInfo{
			Offset:   off,
			Size:     size,
			PrevSize: a.blockPrevSize(off),
			Used:     a.blockUsed(off),
		})
		if size <= 0 {
			break
		}
		off += size
	}
	return out
}

// Verify walks the arena metadata and reports every inconsistency it finds.
// It never modifies the arena.
func (a Arena) Verify() error {
	if !format.IsAlignedPtr(a.Addr(), uintptr(len(a.mem))) {
		return fmt.Errorf("%w: arena 0x%X is not aligned to %d bytes", ErrCorrupt, a.Addr(), len(a.mem))
	}
	switch a.Mode() {
	case ModeObject:
		return a.verifyObject()
	case ModeVarlen:
		return a.verifyVarlen()
	case ModeHuge:
		if a.Pages() <= 0 || a.MappedPages() < a.Pages() {
			return fmt.Errorf("%w: huge arena 0x%X pages %d mapped %d",
				ErrCorrupt, a.Addr(), a.Pages(), a.MappedPages())
		}
		return nil
	default:
		return fmt.Errorf("%w: %s at arena 0x%X", ErrUnknownMode, a.Mode(), a.Addr())
	}
}

func (a Arena) verifyObject() error {
	var errs []error
	addr := a.Addr()
	slot, maxCount, free := a.SlotSize(), a.MaxCount(), a.FreeCount()
	if slot <= 0 || maxCount <= 0 {
		return fmt.Errorf("%w: object arena 0x%X slot %d max %d", ErrCorrupt, addr, slot, maxCount)
	}
	if free > maxCount {
		errs = append(errs, fmt.Errorf("%w: object arena 0x%X free %d > max %d", ErrCorrupt, addr, free, maxCount))
	}

	end := firstSlot + maxCount*slot
	seen := make(map[int]struct{}, free)
	n := 0
	for off := a.freeList(); off != 0; off = int(format.ReadU32(a.mem, off)) {
		if off < firstSlot || off >= end || (off-firstSlot)%slot != 0 {
			errs = append(errs, fmt.Errorf("%w: object arena 0x%X free link 0x%X is not a slot", ErrCorrupt, addr, off))
			break
		}
		if _, dup := seen[off]; dup {
			errs = append(errs, fmt.Errorf("%w: object arena 0x%X free list cycles at 0x%X", ErrCorrupt, addr, off))
			break
		}
		seen[off] = struct{}{}
		n++
	}
	if n != free {
		errs = append(errs, fmt.Errorf("%w: object arena 0x%X free list holds %d slots, counter says %d",
			ErrCorrupt, addr, n, free))
	}
	return errors.Join(errs...)
}

func (a Arena) verifyVarlen() error {
	var errs []error
	addr := a.Addr()

	blocks := a.Blocks()
	total, free := 0, 0
	freeBlocks := make(map[int]struct{})
	prevSize := 0
	prevUsed := true
	for _, b := range blocks {
		if b.Size < format.BlockHeaderSize || b.Size%format.VarlenAlignment != 0 {
			errs = append(errs, fmt.Errorf("%w: varlen arena 0x%X block 0x%X size %d",
				ErrCorrupt, addr, b.Offset, b.Size))
			return errors.Join(errs...)
		}
		if b.PrevSize != prevSize {
			errs = append(errs, fmt.Errorf("%w: varlen arena 0x%X block 0x%X prev size %d, previous block is %d",
				ErrCorrupt, addr, b.Offset, b.PrevSize, prevSize))
		}
		state := a.blockState(b.Offset)
		if state != format.BlockFree && state != format.BlockUsed {
			errs = append(errs, fmt.Errorf("%w: varlen arena 0x%X block 0x%X state 0x%08X",
				ErrCorrupt, addr, b.Offset, state))
		}
		if !b.Used {
			if !prevUsed {
				errs = append(errs, fmt.Errorf("%w: varlen arena 0x%X adjacent free blocks at 0x%X",
					ErrCorrupt, addr, b.Offset))
			}
			free += b.Size
			freeBlocks[b.Offset] = struct{}{}
		}
		total += b.Size
		prevSize = b.Size
		prevUsed = b.Used
	}
	if total != a.MaxSize() {
		errs = append(errs, fmt.Errorf("%w: varlen arena 0x%X blocks span %d of %d bytes",
			ErrCorrupt, addr, total, a.MaxSize()))
	}
	if free != a.FreeSize() {
		errs = append(errs, fmt.Errorf("%w: varlen arena 0x%X free blocks hold %d bytes, counter says %d",
			ErrCorrupt, addr, free, a.FreeSize()))
	}

	listed := 0
	back := 0
	for off := a.freeList(); off != 0; off = a.blockNextFree(off) {
		if _, ok := freeBlocks[off]; !ok {
			errs = append(errs, fmt.Errorf("%w: varlen arena 0x%X free list entry 0x%X is not a free block",
				ErrCorrupt, addr, off))
			break
		}
		if a.blockPrevFree(off) != back {
			errs = append(errs, fmt.Errorf("%w: varlen arena 0x%X block 0x%X back link 0x%X, want 0x%X",
				ErrCorrupt, addr, off, a.blockPrevFree(off), back))
		}
		listed++
		if listed > len(freeBlocks) {
			errs = append(errs, fmt.Errorf("%w: varlen arena 0x%X free list cycles", ErrCorrupt, addr))
			break
		}
		back = off
	}
	if listed != len(freeBlocks) {
		errs = append(errs, fmt.Errorf("%w: varlen arena 0x%X free list holds %d of %d free blocks",
			ErrCorrupt, addr, listed, len(freeBlocks)))
	}
	return errors.Join(errs...)
}

// Dump writes a human-readable description of the arena to w.
func (a Arena) Dump(w io.Writer) {
	addr := a.Addr()
	switch a.Mode() {
	case ModeObject:
		fmt.Fprintf(w, "arena (object) 0x%X base 0x%X slot %d free %d/%d\n",
			addr, a.Base(), a.SlotSize(), a.FreeCount(), a.MaxCount())
	case ModeVarlen:
		fmt.Fprintf(w, "arena (varlen) 0x%X base 0x%X free %s of %s\n",
			addr, a.Base(), humanize.IBytes(uint64(a.FreeSize())), humanize.IBytes(uint64(a.MaxSize())))
		for _, b := range a.Blocks() {
			state := "free"
			if b.Used {
				state = "used"
			}
			fmt.Fprintf(w, "  block 0x%X size %d prev %d %s\n", addr+uintptr(b.Offset), b.Size, b.PrevSize, state)
		}
	case ModeHuge:
		fmt.Fprintf(w, "arena (huge) 0x%X base 0x%X pages %d mapped %d (%s)\n",
			addr, a.Base(), a.Pages(), a.MappedPages(), humanize.IBytes(uint64(a.HugeSize())))
	default:
		fmt.Fprintf(w, "arena (%s) 0x%X\n", a.Mode(), addr)
	}
}
