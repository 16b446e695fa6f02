package heap

import (
	"github.com/joshuapare/heap2d/internal/buf"
	"github.com/joshuapare/heap2d/internal/format"
	"github.com/joshuapare/heap2d/internal/pages"
)

// Calloc allocates n elements of size bytes each and zeroes them.
func (a *Allocator) Calloc(n, size int) uintptr {
	total, ok := buf.MulOverflowSafe(n, size)
	if !ok {
		format.Fatalf(ErrBadSize, "calloc %d x %d overflows", n, size)
	}
	p := a.Alloc(total)
	// Recycled slots and blocks keep their old contents.
	pages.Zero(p, max(total, 1))
	return p
}

// Realloc resizes the allocation at ptr. A zero ptr allocates; a zero size
// frees and returns 0. When size equals the current usable size ptr is
// returned unchanged, otherwise the contents move to a new allocation.
func (a *Allocator) Realloc(ptr uintptr, size int) uintptr {
	if ptr == 0 {
		return a.Alloc(size)
	}
	if size == 0 {
		a.Dealloc(ptr)
		return 0
	}
	old := a.AllocationSize(ptr)
	if size == old {
		return ptr
	}
	p := a.Alloc(size)
	copy(pages.Bytes(p, min(old, size)), pages.Bytes(ptr, min(old, size)))
	a.Dealloc(ptr)
	return p
}

// AlignedAlloc allocates size bytes aligned to alignment. Every allocation is
// 8-byte aligned; stricter alignments are not supported and stop the
// allocator.
func (a *Allocator) AlignedAlloc(alignment, size int) uintptr {
	if !format.IsPow2(alignment) || alignment > format.VarlenAlignment {
		format.Fatalf(ErrUnsupportedAlignment, "alignment %d", alignment)
	}
	return a.Alloc(size)
}
