package pages

import "unsafe"

// Pointer converts the address of mapped memory to an unsafe.Pointer.
// Addresses handled by this package always refer to mappings outside the Go
// heap, which the garbage collector neither scans nor moves.
func Pointer(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr) //nolint:govet // addr refers to an mmapped region
}

// Bytes returns an n-byte view of mapped memory starting at addr.
func Bytes(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(Pointer(addr)), n)
}

// Addr returns the address of the first byte of b.
func Addr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// Zero clears n bytes at addr.
func Zero(addr uintptr, n int) {
	clear(Bytes(addr, n))
}
