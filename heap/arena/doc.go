// Package arena implements the fixed-size, boundary-aligned memory regions the
// allocator carves objects out of.
//
// # Modes
//
// Every arena is in exactly one of three modes, recorded in its header:
//
//   - Object: equal-size slots threaded on a singly linked free list.
//   - Varlen: variable-size blocks with boundary-tag headers, first-fit
//     allocation and coalescing on free.
//   - Huge: a single oversized allocation spanning as many pages as needed.
//
// # Layout
//
// Object and varlen arenas are ArenaPages pages long and start on an
// ArenaPages*PageSize boundary. Huge arenas start on the same boundary but may
// be longer. The header lives at the start of the region, so any address
// handed out by an arena rounds down (Layout.ArenaOf) to its header. This is
// what makes deallocation O(1) without a side table.
//
// All links inside an arena are arena-relative offsets (0 = none); links
// between arenas are absolute addresses. No Go pointers are ever written to
// arena memory.
//
// # Ownership
//
// An arena records the address of its owning size class but knows nothing
// about it. Alloc and dealloc here only maintain arena-local state; the
// sizeclass package layers the free-arena bookkeeping on top.
//
// # Thread Safety
//
// Arenas are not thread-safe. Callers must serialize access externally.
package arena
