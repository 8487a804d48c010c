//go:build wasip1

package abi

import (
	"fmt"
	"sync"
	"unsafe"
)

// MaxTotalAllocations caps the total memory the guest will hand out through
// allocate, preventing unbounded growth of WASM linear memory.
const MaxTotalAllocations = 64 * 1024 * 1024 // 64 MB

// memoryManager pins every allocation handed to the host so the Go GC
// cannot move or collect it until deallocate is called.
var memoryManager = struct {
	sync.Mutex
	ptrs  map[uint32][]byte
	total int
}{
	ptrs: make(map[uint32][]byte),
}

// allocate reserves guest linear memory the host can write into.
//
//go:wasmexport allocate
func allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}

	memoryManager.Lock()
	defer memoryManager.Unlock()

	if memoryManager.total+int(size) > MaxTotalAllocations {
		panic(fmt.Sprintf("abi: allocation limit exceeded (requested %d, in use %d, limit %d)",
			size, memoryManager.total, MaxTotalAllocations))
	}

	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	memoryManager.ptrs[ptr] = buf
	memoryManager.total += int(size)
	return ptr
}

// deallocate releases a tracked allocation. Untracked pointers are ignored
// so double frees stay idempotent. The stored slice length is used for
// accounting rather than the caller's size argument.
//
//go:wasmexport deallocate
func deallocate(ptr uint32, size uint32) {
	_ = size

	memoryManager.Lock()
	defer memoryManager.Unlock()

	stored, ok := memoryManager.ptrs[ptr]
	if !ok {
		return
	}
	delete(memoryManager.ptrs, ptr)
	memoryManager.total -= len(stored)
	if memoryManager.total < 0 {
		memoryManager.total = 0
	}
}

// FreeAllTracked drops every tracked allocation. Called during panic
// recovery so a failed export call cannot leak pinned memory.
func FreeAllTracked() {
	memoryManager.Lock()
	defer memoryManager.Unlock()
	for ptr := range memoryManager.ptrs {
		delete(memoryManager.ptrs, ptr)
	}
	memoryManager.total = 0
}

// PtrFromBytes copies data into tracked guest memory and returns the packed
// pointer/length for handing to the host.
func PtrFromBytes(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	size := uint32(len(data))
	ptr := allocate(size)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), len(data))
	copy(dst, data)
	return PackPtrLen(ptr, size)
}

// BytesFromPtr copies data referenced by a packed pointer/length out of
// linear memory. Returns nil for the zero value.
func BytesFromPtr(packed uint64) []byte {
	ptr, length := UnpackPtrLen(packed)
	if ptr == 0 || length == 0 {
		return nil
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
	data := make([]byte, length)
	copy(data, src)
	return data
}

// DeallocatePacked frees the allocation referenced by a packed
// pointer/length, typically after the host has consumed a request buffer.
func DeallocatePacked(packed uint64) {
	ptr, length := UnpackPtrLen(packed)
	if ptr != 0 && length > 0 {
		deallocate(ptr, length)
	}
}
