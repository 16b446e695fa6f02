package heap

import "errors"

var (
	// ErrUnsupportedAlignment indicates an AlignedAlloc request stricter than
	// the allocator's natural 8-byte alignment.
	ErrUnsupportedAlignment = errors.New("heap: unsupported alignment")

	// ErrBadSize indicates a negative or overflowing request size.
	ErrBadSize = errors.New("heap: bad size")

	// ErrClosed indicates use of an allocator after Close.
	ErrClosed = errors.New("heap: allocator closed")
)
