package abi

import "fmt"

// PackPtrLen packs a guest pointer and length into a single uint64 for
// the host call convention: pointer in the high 32 bits, length in the
// low 32. The zero value means "no buffer"; a null pointer with a
// non-zero length is always a bug.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length != 0 {
		panic(fmt.Sprintf("abi: packing null pointer with length %d", length))
	}
	return uint64(ptr)<<32 | uint64(length)
}

// UnpackPtrLen splits a packed pointer/length back into its parts.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)
	length = uint32(packed)
	if ptr == 0 && length != 0 {
		panic(fmt.Sprintf("abi: unpacking null pointer with length %d", length))
	}
	return ptr, length
}
