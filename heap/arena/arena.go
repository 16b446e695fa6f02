package arena

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/heap2d/internal/format"
	"github.com/joshuapare/heap2d/internal/pages"
	"github.com/joshuapare/heap2d/internal/stats"
)

// Mode is the arena kind stored in the header.
type Mode uint32

const (
	ModeObject Mode = 1
	ModeVarlen Mode = 2
	ModeHuge   Mode = 3
)

func (m Mode) String() string {
	switch m {
	case ModeObject:
		return "object"
	case ModeVarlen:
		return "varlen"
	case ModeHuge:
		return "huge"
	default:
		return fmt.Sprintf("mode(%d)", uint32(m))
	}
}

// Source bundles what every arena operation needs: the geometry, the page
// provider, the shared counters and the logger.
type Source struct {
	Layout format.Layout
	Pages  *pages.Provider
	Stats  *stats.Counters
	Log    *slog.Logger
}

// NewSource creates a Source over a fresh page provider.
func NewSource(layout format.Layout, log *slog.Logger) *Source {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	st := &stats.Counters{}
	return &Source{
		Layout: layout,
		Pages:  pages.NewProvider(st, log),
		Stats:  st,
		Log:    log,
	}
}

// Arena is a view over the header and body of one arena. The zero value is
// the nil arena.
type Arena struct {
	mem []byte // first Layout.ArenaSize bytes of the arena
}

// At returns the arena whose header starts at addr. At(0) is the nil arena.
func (s *Source) At(addr uintptr) Arena {
	if addr == 0 {
		return Arena{}
	}
	return Arena{mem: pages.Bytes(addr, s.Layout.ArenaSize)}
}

// Of returns the arena containing ptr.
func (s *Source) Of(ptr uintptr) Arena {
	return s.At(s.Layout.ArenaOf(ptr))
}

// IsNil reports whether a is the nil arena.
func (a Arena) IsNil() bool { return a.mem == nil }

// Addr returns the aligned start address of the arena.
func (a Arena) Addr() uintptr {
	if a.mem == nil {
		return 0
	}
	return pages.Addr(a.mem)
}

// Base returns the raw mapping address used for release.
func (a Arena) Base() uintptr { return format.ReadAddr(a.mem, format.ArenaBaseOffset) }

// Mode returns the arena kind.
func (a Arena) Mode() Mode { return Mode(format.ReadU32(a.mem, format.ArenaModeOffset)) }

// Owner returns the address of the owning size class record (0 = none).
func (a Arena) Owner() uintptr { return format.ReadAddr(a.mem, format.ArenaOwnerOffset) }

// SetOwner records the owning size class.
func (a Arena) SetOwner(owner uintptr) { format.PutAddr(a.mem, format.ArenaOwnerOffset, owner) }

// Prev returns the previous arena in the owner's free list.
func (a Arena) Prev() uintptr { return format.ReadAddr(a.mem, format.ArenaPrevOffset) }

// Next returns the next arena in the owner's free list.
func (a Arena) Next() uintptr { return format.ReadAddr(a.mem, format.ArenaNextOffset) }

// SetPrev sets the previous free-list link.
func (a Arena) SetPrev(addr uintptr) { format.PutAddr(a.mem, format.ArenaPrevOffset, addr) }

// SetNext sets the next free-list link.
func (a Arena) SetNext(addr uintptr) { format.PutAddr(a.mem, format.ArenaNextOffset, addr) }

func (a Arena) counterA() int { return int(format.ReadU32(a.mem, format.ArenaCounterAOffset)) }
func (a Arena) counterB() int { return int(format.ReadU32(a.mem, format.ArenaCounterBOffset)) }

func (a Arena) setCounterA(v int) { format.PutU32(a.mem, format.ArenaCounterAOffset, uint32(v)) }
func (a Arena) setCounterB(v int) { format.PutU32(a.mem, format.ArenaCounterBOffset, uint32(v)) }

func (a Arena) freeList() int { return int(format.ReadU32(a.mem, format.ArenaFreeListOffset)) }
func (a Arena) setFreeList(off int) { format.PutU32(a.mem, format.ArenaFreeListOffset, uint32(off)) }

// FreeCount returns the number of free slots of an object arena.
func (a Arena) FreeCount() int { return a.counterA() }

// MaxCount returns the slot capacity of an object arena.
func (a Arena) MaxCount() int { return a.counterB() }

// SlotSize returns the slot size of an object arena.
func (a Arena) SlotSize() int { return int(format.ReadU32(a.mem, format.ArenaSlotSizeOffset)) }

// FreeSize returns the free bytes (headers included) of a varlen arena.
func (a Arena) FreeSize() int { return a.counterA() }

// MaxSize returns the usable bytes of a varlen arena.
func (a Arena) MaxSize() int { return a.counterB() }

// Pages returns the usable page count of a huge arena.
func (a Arena) Pages() int { return a.counterA() }

// MappedPages returns the pages actually mapped for a huge arena.
func (a Arena) MappedPages() int { return a.counterB() }

// IsFull reports whether an object arena has no free slot.
func (a Arena) IsFull() bool { return a.FreeCount() == 0 }

// IsEmpty reports whether an object or varlen arena holds no live allocation.
func (a Arena) IsEmpty() bool {
	switch a.Mode() {
	case ModeObject:
		return a.FreeCount() == a.MaxCount()
	case ModeVarlen:
		return a.FreeSize() == a.MaxSize()
	default:
		return false
	}
}

// Contains reports whether ptr lies inside the arena body.
func (a Arena) Contains(ptr uintptr) bool {
	addr := a.Addr()
	end := addr + uintptr(len(a.mem))
	if a.Mode() == ModeHuge {
		end = addr + uintptr(a.Pages()*format.PageSize)
	}
	return ptr >= addr+format.ArenaHeaderSize && ptr < end
}

// CheckedMode returns the arena mode, stopping the allocator if the header
// carries an unknown tag.
func (a Arena) CheckedMode() Mode {
	m := a.Mode()
	switch m {
	case ModeObject, ModeVarlen, ModeHuge:
		return m
	default:
		format.Fatalf(ErrUnknownMode, "%s at arena 0x%X", m, a.Addr())
		return 0
	}
}

// initHeader writes a fresh header for an arena mapped at base.
func (a Arena) initHeader(base uintptr, mode Mode) {
	clear(a.mem[:format.ArenaHeaderSize])
	format.PutAddr(a.mem, format.ArenaBaseOffset, base)
	format.PutU32(a.mem, format.ArenaModeOffset, uint32(mode))
}

// newAligned maps one aligned arena and writes its header.
func (s *Source) newAligned(mode Mode) Arena {
	aligned, base := s.Pages.MapAligned(s.Layout.ArenaPages)
	a := s.At(aligned)
	a.initHeader(base, mode)
	s.Stats.ArenaInits++
	return a
}

// Release returns the arena's pages to the OS. Object and varlen arenas
// release the whole doubled mapping they were carved from.
func (s *Source) Release(a Arena) {
	mode := a.CheckedMode()
	addr, base := a.Addr(), a.Base()
	var count int
	switch mode {
	case ModeObject, ModeVarlen:
		count = 2 * s.Layout.ArenaPages
	case ModeHuge:
		count = a.MappedPages()
	}
	s.Pages.Unmap(base, count)
	s.Stats.ArenaFrees++
	s.Log.Debug("arena released", "mode", mode.String(), "addr", addr, "pages", count)
}

// UsableSize returns the number of bytes usable at ptr.
func (a Arena) UsableSize(ptr uintptr) int {
	switch a.CheckedMode() {
	case ModeObject:
		return a.SlotSize()
	case ModeVarlen:
		return a.payloadSize(ptr)
	default:
		return a.HugeSize()
	}
}
