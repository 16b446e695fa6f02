package format

import "math"

const (
	// PageSize is the allocation granule requested from the OS.
	PageSize = 4096

	// DefaultArenaPages is the number of pages in an object or varlen arena.
	// Arena start addresses are aligned to ArenaPages*PageSize.
	DefaultArenaPages = 16

	// MaxArenaPages keeps arena offsets and byte counters within 32 bits.
	MaxArenaPages = 1 << 19

	// MaxHugePages is the largest mapping a huge arena header can record.
	MaxHugePages = math.MaxUint32

	// DefaultObjectMaxSize is the largest request served by a fixed size tier.
	DefaultObjectMaxSize = 512

	// MaxObjectMaxSize bounds the configurable fixed-tier ceiling so that the
	// tier index always fits the hash key shift.
	MaxObjectMaxSize = 4096

	// ClassIncrement is the byte width of a fixed size tier. Tier i serves
	// requests of 8*i+1 .. 8*i+8 bytes.
	ClassIncrement = 8

	// VarlenAlignment is the rounding unit for varlen payloads.
	VarlenAlignment = 8

	// DefaultTableBuckets is the initial bucket count of the type table.
	DefaultTableBuckets = 4096
)

// Arena header layout. Every arena begins with this header at its aligned
// start address.
//
//	0x00  base       uint64  raw mapping address (used for release)
//	0x08  owner      uint64  owning size class record (0 = none)
//	0x10  counterA   uint32  free_count | free_size | page_count
//	0x14  counterB   uint32  max_count  | max_size  | alloc_page_count
//	0x18  mode       uint32  Object | Varlen | Huge
//	0x1C  freeList   uint32  arena-relative offset of first free unit
//	0x20  prev       uint64  previous arena in owner's free list
//	0x28  next       uint64  next arena in owner's free list
//	0x30  slotSize   uint32  object slot size (object mode only)
//	0x34  reserved   uint32
const (
	ArenaBaseOffset     = 0x00
	ArenaOwnerOffset    = 0x08
	ArenaCounterAOffset = 0x10
	ArenaCounterBOffset = 0x14
	ArenaModeOffset     = 0x18
	ArenaFreeListOffset = 0x1C
	ArenaPrevOffset     = 0x20
	ArenaNextOffset     = 0x28
	ArenaSlotSizeOffset = 0x30

	// ArenaHeaderSize is the number of bytes reserved at the front of each arena.
	ArenaHeaderSize = 0x38
)

// Varlen block header layout. Every block inside a varlen arena, used or
// free, starts with this header.
//
//	0x00  prevSize  uint32  size of the physical predecessor (0 for first block)
//	0x04  size      uint32  size of this block including the header
//	0x08  state     uint32  BlockFree | BlockUsed
//	0x0C  nextFree  uint32  arena-relative offset of next free block (0 = none)
//	0x10  prevFree  uint32  arena-relative offset of previous free block
//	0x14  reserved  uint32
const (
	BlockPrevSizeOffset = 0x00
	BlockSizeOffset     = 0x04
	BlockStateOffset    = 0x08
	BlockNextFreeOffset = 0x0C
	BlockPrevFreeOffset = 0x10

	// BlockHeaderSize precedes every varlen payload.
	BlockHeaderSize = 0x18
)

// Varlen block states. Zero is never written and marks a corrupt header.
const (
	BlockFree uint32 = 0x46524545 // "FREE"
	BlockUsed uint32 = 0x55534544 // "USED"
)

// Size class record layout. Records live either in the allocator's root
// mapping or in object slots handed out by the meta size class.
//
//	0x00  typeID    uint64  allocation-site tag (0 for untyped tiers)
//	0x08  index     int32   tier index, IndexVarlen or IndexHuge
//	0x0C  reserved  uint32
//	0x10  count     uint64  live object count
//	0x18  freeList  uint64  first arena with spare capacity
//	0x20  current   uint64  arena serving allocations
//	0x28  next      uint64  next record in the type table chain
//	0x30  fullList  uint64  first object arena with no free slot
const (
	ClassTypeIDOffset   = 0x00
	ClassIndexOffset    = 0x08
	ClassCountOffset    = 0x10
	ClassFreeListOffset = 0x18
	ClassCurrentOffset  = 0x20
	ClassNextOffset     = 0x28
	ClassFullListOffset = 0x30

	// ClassRecordSize is the in-band size of a size class record.
	ClassRecordSize = 0x38
)

// Special size class indexes.
const (
	IndexVarlen = -1
	IndexHuge   = -2
)

// MetaClassIndex is the fixed tier that stores size class records.
const MetaClassIndex = (ClassRecordSize - 1) / ClassIncrement
