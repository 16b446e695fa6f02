package format

import (
	"errors"
	"fmt"
	"math"
)

// ErrBadLayout indicates arena geometry that cannot be laid out.
var ErrBadLayout = errors.New("format: bad layout")

// Layout is the arena geometry derived from the allocator configuration.
// Every component receives the same Layout so that header offsets, masks and
// tier boundaries agree.
type Layout struct {
	ArenaPages    int // pages per object/varlen arena (power of two)
	ArenaSize     int // ArenaPages * PageSize, also the arena alignment
	ObjectMaxSize int // largest fixed-tier request
	ClassCount    int // number of fixed tiers

	// VarlenMaxSize is the usable span of a varlen arena (header excluded),
	// i.e. the size of the single free block of a fresh arena.
	VarlenMaxSize int

	// VarlenMaxPayload is the largest request a fresh varlen arena can serve.
	// Anything larger goes to the huge tier.
	VarlenMaxPayload int

	// SplitThreshold is the leftover above which a varlen block is split.
	SplitThreshold int
}

// NewLayout computes the geometry for arenas of arenaPages pages serving fixed
// tiers up to objectMaxSize bytes.
func NewLayout(arenaPages, objectMaxSize int) (Layout, error) {
	if arenaPages < 2 || !IsPow2(arenaPages) {
		return Layout{}, fmt.Errorf("%w: arena pages %d must be a power of two >= 2", ErrBadLayout, arenaPages)
	}
	if arenaPages > MaxArenaPages {
		return Layout{}, fmt.Errorf("%w: arena pages %d exceed %d (arena offsets are 32-bit)",
			ErrBadLayout, arenaPages, MaxArenaPages)
	}
	if objectMaxSize < ClassRecordSize || objectMaxSize > MaxObjectMaxSize || objectMaxSize%ClassIncrement != 0 {
		return Layout{}, fmt.Errorf("%w: object max size %d must be a multiple of %d in [%d, %d]",
			ErrBadLayout, objectMaxSize, ClassIncrement, ClassRecordSize, MaxObjectMaxSize)
	}
	arenaSize := arenaPages * PageSize
	l := Layout{
		ArenaPages:     arenaPages,
		ArenaSize:      arenaSize,
		ObjectMaxSize:  objectMaxSize,
		ClassCount:     objectMaxSize / ClassIncrement,
		VarlenMaxSize:  arenaSize - ArenaHeaderSize,
		SplitThreshold: objectMaxSize + BlockHeaderSize,
	}
	l.VarlenMaxPayload = AlignDown(l.VarlenMaxSize-BlockHeaderSize, VarlenAlignment)
	// An object arena must hold at least two slots of the largest tier so the
	// empty/full transitions stay distinct.
	if (l.ArenaSize-ArenaHeaderSize)/objectMaxSize < 2 {
		return Layout{}, fmt.Errorf("%w: arena of %d bytes too small for %d byte objects",
			ErrBadLayout, arenaSize, objectMaxSize)
	}
	if l.VarlenMaxPayload <= objectMaxSize {
		return Layout{}, fmt.Errorf("%w: varlen ceiling %d does not exceed object max %d",
			ErrBadLayout, l.VarlenMaxPayload, objectMaxSize)
	}
	return l, nil
}

// DefaultLayout returns the geometry for 16-page arenas and 512 byte tiers.
func DefaultLayout() Layout {
	l, err := NewLayout(DefaultArenaPages, DefaultObjectMaxSize)
	if err != nil {
		panic(err)
	}
	return l
}

// ClassIndex returns the fixed tier for a request of size bytes (size >= 1).
func (l Layout) ClassIndex(size int) int {
	return (size - 1) / ClassIncrement
}

// ClassObjectSize returns the slot size of fixed tier index.
func (l Layout) ClassObjectSize(index int) int {
	return (index + 1) * ClassIncrement
}

// ArenaOf rounds addr down to the start of the arena that contains it.
func (l Layout) ArenaOf(addr uintptr) uintptr {
	return AlignDownPtr(addr, uintptr(l.ArenaSize))
}

// HugePages returns the usable page count of a huge arena holding size bytes
// behind the arena header.
func (l Layout) HugePages(size int) int {
	return (size + ArenaHeaderSize + PageSize - 1) / PageSize
}

// MaxHugeSize returns the largest request whose huge arena, including the
// alignment slack, still fits the 32-bit page counters of the header.
func (l Layout) MaxHugeSize() int {
	limit := (uint64(MaxHugePages)-uint64(l.ArenaPages))*PageSize - ArenaHeaderSize
	if limit > math.MaxInt {
		return math.MaxInt
	}
	return int(limit)
}
