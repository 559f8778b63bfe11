// Package memory provides the heap used by the Alloc, Load, Store and Free
// opcodes.
//
// The Manager is a bump allocator over an address-keyed table. Addresses
// start at BaseAddress and advance by the allocation size; they are never
// reused, even after the object is collected.
//
// # Object Lifecycle
//
//	Allocate  - new object, reference count 1
//	Store     - replace the value in place
//	Free      - tombstone the object; the entry stays in the table
//	Collect   - sweep tombstones out of the table
//
// Loading, storing or freeing a tombstoned object fails. Freeing subtracts
// the object's size from the running total, so the allocation limit applies
// to live bytes only.
//
// # Reference Counting
//
// AddRef and ReleaseRef maintain a per-object count. Releasing the last
// reference frees the object:
//
//	heap := memory.New()
//	addr, _ := heap.Allocate(8, value.Int(1))
//	heap.AddRef(addr)      // count 2
//	heap.ReleaseRef(addr)  // count 1
//	heap.ReleaseRef(addr)  // count 0, object freed
//
// No opcode manipulates reference counts; they exist for host embeddings.
//
// # Observers
//
// Register observers to track heap events:
//
//	unsubscribe := heap.Subscribe(memory.ObserverFunc(func(e memory.Event) {
//	    log.Printf("%s 0x%x", e.Type, e.Address)
//	}))
//	defer unsubscribe()
//
// A Manager is owned by a single execution context and is not safe for
// concurrent use.
package memory
