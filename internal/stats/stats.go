// Package stats holds the event counters shared by every allocator component.
package stats

// Counters is the allocator-wide statistics block. Components increment the
// fields directly; the allocator is single-threaded so no atomics are used.
type Counters struct {
	AllocCalls uint64 // Alloc/TypedAlloc calls
	FreeCalls  uint64 // Dealloc calls with a non-nil pointer

	MapCalls      uint64 // successful OS mappings
	UnmapCalls    uint64 // successful OS unmappings
	MappedPages   uint64 // pages obtained from the OS
	UnmappedPages uint64 // pages returned to the OS

	// Size class objects, typed and untyped.
	ClassInits uint64
	ClassFrees uint64

	ArenaInits uint64
	ArenaFrees uint64

	ArenaCurrToFull uint64 // current arena exhausted and dropped from tracking
	ArenaFullToFree uint64 // full arena regained a free slot and joined the free list
	ArenaFreeToCurr uint64 // free-list arena promoted to current

	TableEvictions uint64 // empty typed size classes reclaimed during lookups
	TableResizes   uint64
}

// NetMappedPages returns the pages currently mapped from the OS.
func (c Counters) NetMappedPages() int64 {
	return int64(c.MappedPages) - int64(c.UnmappedPages)
}

// NetMapCalls returns the number of mappings not yet released.
func (c Counters) NetMapCalls() int64 {
	return int64(c.MapCalls) - int64(c.UnmapCalls)
}
