// Package derruntime executes programs stored as binary computation graphs.
//
// A DER program is a flat list of fixed-size node records that reference each
// other by caller-assigned result ids, plus a constant pool and metadata,
// packaged in a chunked little-endian container ("DER!" magic).
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	derruntime/          Root package with the shared Heap interface
//	├── runtime/         High-level API for loading and running programs
//	├── engine/          Execution context, call frames and opcode dispatch
//	├── format/          Program model, container encode/decode, validation
//	├── value/           Runtime value union, equality, CBOR conversion
//	├── memory/          Bump-allocated heap with refcounts and tombstones
//	├── async/           Handle registry, poll/waker futures, promises
//	├── optimize/        Constant folding, dead node and CSE passes
//	├── wasmgen/         Lowering of integer subgraphs to core WebAssembly
//	├── errors/          Structured error types for debugging
//	└── cmd/der/         CLI: run, inspect, optimize, wasm
//
// # Quick Start
//
// Load and run a program:
//
//	rt, err := runtime.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mod, err := rt.LoadFile(ctx, "hello.der")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	result, err := inst.Run(ctx, "World")
//	fmt.Println(result)
//
// # Building Programs
//
// Programs can be assembled in Go and written to a container:
//
//	p := format.NewProgram()
//	a := p.Constants.AddInt(10)
//	b := p.Constants.AddInt(20)
//	p.AddNode(format.NewNode(format.OpConstInt, 1).WithArgs(a))
//	p.AddNode(format.NewNode(format.OpConstInt, 2).WithArgs(b))
//	p.AddNode(format.NewNode(format.OpAdd, 3).WithArgs(1, 2))
//	p.SetEntryPoint(3)
//	data, err := format.Encode(p)
//
// # Evaluation Model
//
// Evaluation is recursive descent from the entry node. Each node's handler
// runs at most once per execution; later references read the memoized value.
// Branch evaluates only the selected arm. Call pushes a frame whose locals
// shadow the global value table, bounded by the configured maximum depth.
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use. Instance and the engine
// Executor are NOT thread-safe and should be used by a single goroutine.
// Only async state blocks are internally locked, so a host goroutine may
// complete a handle while the program runs.
package derruntime
