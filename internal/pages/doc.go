// Package pages is the page provider: a thin wrapper over anonymous,
// private, read/write OS mappings. Every mapping is counted in the shared
// statistics block so that outstanding page usage can be observed.
//
// Mapping failures are not returned. A userspace allocator that cannot obtain
// or release address space has no safe way to continue, so the provider stops
// with a panic wrapping ErrMapFailed or ErrUnmapFailed.
//
// Mapped memory is not managed by the Go garbage collector. It never moves and
// must never hold Go pointers; callers read and write it through byte views
// returned by Bytes.
package pages
