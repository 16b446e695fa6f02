package format

// Alignment utilities. Every boundary used by the allocator is a power of two,
// so rounding is done with masks.

// IsPow2 reports whether n is a positive power of two.
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Align rounds n up to the next multiple of align (a power of two).
//
// Example:
//
//	Align(1, 8)  = 8
//	Align(8, 8)  = 8
//	Align(9, 8)  = 16
func Align(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// AlignDown rounds n down to a multiple of align (a power of two).
func AlignDown(n, align int) int {
	return n &^ (align - 1)
}

// Align8 returns n aligned up to the next 8-byte boundary.
func Align8(n int) int {
	return Align(n, VarlenAlignment)
}

// AlignPtr rounds addr up to the next multiple of align (a power of two).
func AlignPtr(addr, align uintptr) uintptr {
	return (addr + align - 1) &^ (align - 1)
}

// AlignDownPtr rounds addr down to a multiple of align (a power of two).
// This is how a data address recovers the header of its arena.
func AlignDownPtr(addr, align uintptr) uintptr {
	return addr &^ (align - 1)
}

// IsAlignedPtr reports whether addr is a multiple of align.
func IsAlignedPtr(addr, align uintptr) bool {
	return addr&(align-1) == 0
}

// PagesFor returns the number of whole pages needed to hold n bytes.
func PagesFor(n int) int {
	return (n + PageSize - 1) / PageSize
}
