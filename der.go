package derruntime

import "github.com/wippyai/der-runtime/value"

// Heap is the address-keyed object store used by the memory opcodes.
// Addresses are never reused within one heap.
type Heap interface {
	Allocate(size uint64, initial value.Value) (uint64, error)
	Load(addr uint64) (value.Value, error)
	Store(addr uint64, v value.Value) error
	Free(addr uint64) error
	AddRef(addr uint64) error
	ReleaseRef(addr uint64) error
	CollectGarbage() int
	Stats() HeapStats
}

// HeapStats is a point-in-time summary of a Heap.
type HeapStats struct {
	TotalAllocated uint64 // bytes held by live objects
	ActiveObjects  int
	FreedObjects   int    // tombstones not yet collected
	TotalRefs      uint64 // sum of reference counts over live objects
	HeapSize       int    // entries in the address table, tombstones included
}
