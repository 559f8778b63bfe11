// Package engine evaluates DER computation graphs.
//
// An Executor wraps a format.Program in a Context and walks the graph from
// the entry node. Arguments are resolved on demand: a node runs only when
// another node asks for its value, and its result is memoized under its
// result id for the rest of the execution.
//
// # Architecture
//
//	Context   - program arena, memo table, call frames, capabilities, heap, async registry
//	Executor  - opcode dispatch over a Context
//	Config    - call depth, Print output, cycle detection, heap
//
// # Evaluation Rules
//
// Value lookup checks the current frame's locals, then the global memo
// table. Writes go to both, so a value computed inside a call stays visible
// to the caller after the frame is popped.
//
// Branch evaluates only the selected arm. And and Or short-circuit on the
// first operand. Call evaluates its arguments in the caller's frame, pushes
// a frame for the function body, binds captured values and then positional
// arguments (locals 1, 2, ...) and evaluates the body.
//
// # Failure
//
// The first error aborts the execution. Side effects already performed,
// such as Print output, are not rolled back. Reserved opcodes without a
// handler fail with errors.KindInvalidOperation; codes outside the opcode
// enumeration fail with errors.KindUnknownOpcode.
//
// With Config.DetectCycles set, re-entering a node that is still being
// evaluated in the same frame fails with errors.KindCycle instead of
// recursing until the Go stack is exhausted. Recursion through Call uses a
// new frame and is bounded by Config.MaxCallDepth.
//
// # Capabilities
//
// Capabilities granted on the Context are recorded and can be checked with
// Context.CheckCapability. No opcode handler checks them.
//
// # Thread Safety
//
// An Executor and its Context are NOT thread-safe and must be used by a
// single goroutine. Async handles may be completed from other goroutines.
package engine
