// Package async implements the handles behind the AsyncBegin, AsyncAwait
// and AsyncComplete opcodes.
//
// A Runtime is a registry of Handles keyed by monotonically increasing ids,
// starting at 1. Each Handle owns a mutex-guarded state block:
//
//	Pending -> Running -> Completed
//	                   \-> Failed
//
// Completed and Failed are terminal. Completing or failing a terminal
// handle is an error.
//
// Two ways to observe a handle:
//
//   - Result is a synchronous, non-blocking query. A pending handle reports
//     "no value yet". The executor only uses this path, so AsyncAwait never
//     suspends graph evaluation.
//   - Poll and Wait form a future for hosts. Poll registers a Waker when the
//     handle is not ready; Wait blocks until the handle is terminal or the
//     context is done.
//
// The registry map itself is not locked and belongs to one execution
// context. Handle methods are safe to call from other goroutines, so a host
// can complete a handle while the graph runs:
//
//	h := inst.Async().Begin()
//	go func() { h.Complete(value.Int(42)) }()
//	v, err := h.Wait(ctx)
package async
