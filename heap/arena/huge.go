package arena

import (
	"github.com/joshuapare/heap2d/internal/format"
)

// NewHuge maps an arena holding a single allocation of size bytes. The
// mapping is over-sized by ArenaPages so the header can be moved up to the
// next arena boundary.
func (s *Source) NewHuge(size int) Arena {
	if size <= s.Layout.VarlenMaxPayload {
		format.Fatalf(ErrBadSize, "huge request of %d bytes fits a varlen arena", size)
	}
	if size > s.Layout.MaxHugeSize() {
		format.Fatalf(ErrBadSize, "huge request of %d bytes exceeds %d", size, s.Layout.MaxHugeSize())
	}
	count := s.Layout.HugePages(size)
	mapped := count + s.Layout.ArenaPages
	base := s.Pages.Map(mapped)
	aligned := format.AlignPtr(base, uintptr(s.Layout.ArenaSize))

	a := s.At(aligned)
	a.initHeader(base, ModeHuge)
	a.setCounterA(count)
	a.setCounterB(mapped)
	s.Stats.ArenaInits++

	s.Log.Debug("huge arena", "addr", aligned, "size", size, "pages", count, "mapped", mapped)
	return a
}

// HugePayload returns the address of the allocation held by a huge arena.
func (a Arena) HugePayload() uintptr {
	return a.Addr() + format.ArenaHeaderSize
}

// HugeSize returns the usable bytes of a huge arena.
func (a Arena) HugeSize() int {
	return a.Pages()*format.PageSize - format.ArenaHeaderSize
}

// CheckHugePointer stops the allocator unless ptr is the payload of a.
func (a Arena) CheckHugePointer(ptr uintptr) {
	if ptr != a.HugePayload() {
		format.Fatalf(ErrBadPointer, "0x%X is not the payload of huge arena 0x%X", ptr, a.Addr())
	}
}
