package heap

import (
	"io"
	"sync"
)

// Locked serializes every entry point of an Allocator behind one mutex. It is
// the external synchronization the allocator itself never performs.
type Locked struct {
	mu sync.Mutex
	a  *Allocator
}

// NewLocked wraps a. The caller must not use a directly afterwards.
func NewLocked(a *Allocator) *Locked {
	return &Locked{a: a}
}

// Do runs fn with exclusive access to the underlying allocator.
func (l *Locked) Do(fn func(a *Allocator)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.a)
}

// Alloc is Allocator.Alloc under the lock.
func (l *Locked) Alloc(size int) uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Alloc(size)
}

// TypedAlloc is Allocator.TypedAlloc under the lock.
func (l *Locked) TypedAlloc(typeID uint64, size int) uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.TypedAlloc(typeID, size)
}

// Dealloc is Allocator.Dealloc under the lock.
func (l *Locked) Dealloc(ptr uintptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.a.Dealloc(ptr)
}

// AllocationSize is Allocator.AllocationSize under the lock.
func (l *Locked) AllocationSize(ptr uintptr) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.AllocationSize(ptr)
}

// Realloc is Allocator.Realloc under the lock.
func (l *Locked) Realloc(ptr uintptr, size int) uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Realloc(ptr, size)
}

// Stats returns a snapshot of the counters.
func (l *Locked) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Stats()
}

// Check runs Allocator.Check under the lock.
func (l *Locked) Check() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Check()
}

// Dump writes Allocator.Dump output to w under the lock.
func (l *Locked) Dump(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.a.Dump(w)
}

// Close closes the underlying allocator.
func (l *Locked) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Close()
}
