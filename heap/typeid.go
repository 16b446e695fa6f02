package heap

import (
	"unsafe"

	"github.com/modern-go/reflect2"
)

// TypeIDOf returns a type tag derived from the dynamic Go type of v. Values
// of the same type share a tag for the life of the process.
func TypeIDOf(v any) uint64 {
	return uint64(reflect2.RTypeOf(v))
}

// TypeIDFor returns the type tag of T. Unlike TypeIDOf it also works for
// interface types.
func TypeIDFor[T any]() uint64 {
	ptr := reflect2.TypeOf((*T)(nil)).(reflect2.PtrType)
	return uint64(ptr.Elem().RType())
}

// AllocFor allocates room for one T tagged with T's type. T must not contain
// Go pointers: the garbage collector does not scan allocator memory.
func AllocFor[T any](a *Allocator) uintptr {
	var zero T
	return a.TypedAlloc(TypeIDFor[T](), int(unsafe.Sizeof(zero)))
}
