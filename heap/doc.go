// Package heap provides a two-dimensional heap allocator over anonymous OS
// mappings.
//
// # Overview
//
// Every allocation is classified along two axes: its size, quantized into
// fixed tiers of 8 bytes, and an optional allocation-site tag. Objects with
// the same tag and tier are packed into the same arenas, which improves
// locality and lets a whole arena go back to the OS once its site stops
// allocating.
//
// # Routing
//
//	size <= MaxObjectSize        fixed tier (size-1)/8, slab arenas
//	size <= varlen ceiling       shared varlen tier, first-fit with coalescing
//	larger                       shared huge tier, one mapping per allocation
//
// Alloc uses one untyped class per fixed tier. TypedAlloc routes fixed-tier
// requests through the type table keyed by (tag, tier); varlen and huge
// requests are never partitioned. TypedAllocCaller uses the caller's program
// counter as the tag, and TypeIDOf/TypeIDFor derive tags from Go types.
//
// # Usage Example
//
//	a, err := heap.New(heap.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	p := a.TypedAlloc(heap.TypeIDFor[record](), 48)
//	b := a.Bytes(p, 48)
//	copy(b, payload)
//	a.Dealloc(p)
//
// # Memory
//
// Addresses returned by the allocator refer to memory the Go garbage
// collector neither scans nor moves. Never store Go pointers there.
//
// # Errors
//
// Configuration problems are returned from New. Conditions a userspace
// allocator cannot recover from (failed mappings, double frees, corrupted
// headers, count underflow, unsupported alignment, use after Close) panic
// with an error wrapping one of the package sentinels; match them with
// errors.Is after recover.
//
// # Thread Safety
//
// Allocator is not safe for concurrent use. Wrap it in Locked or give each
// goroutine its own Allocator.
package heap
