package format

import "encoding/binary"

// Field accessors for in-band headers. All header fields are little-endian at
// fixed offsets; encoding/binary compiles down to plain loads and stores.

// PutU32 writes a uint32 value to the buffer at the specified offset.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutI32 writes an int32 value to the buffer at the specified offset.
func PutI32(b []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(b[off:off+4], uint32(v))
}

// PutU64 writes a uint64 value to the buffer at the specified offset.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// PutAddr writes an address field.
func PutAddr(b []byte, off int, v uintptr) {
	binary.LittleEndian.PutUint64(b[off:off+8], uint64(v))
}

// ReadU32 reads a uint32 value from the buffer at the specified offset.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// ReadI32 reads an int32 value from the buffer at the specified offset.
func ReadI32(b []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(b[off : off+4]))
}

// ReadU64 reads a uint64 value from the buffer at the specified offset.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

// ReadAddr reads an address field.
func ReadAddr(b []byte, off int) uintptr {
	return uintptr(binary.LittleEndian.Uint64(b[off : off+8]))
}
