// Package format houses the in-band memory layout shared by every heap2d
// component: page and arena geometry, the fixed offsets of arena, block and
// size-class headers, alignment helpers, and little-endian field accessors.
//
// Nothing here allocates or maps memory. Higher-level packages hand this
// package raw byte views over mapped regions and read or write header fields
// through the Put/Read helpers.
package format
