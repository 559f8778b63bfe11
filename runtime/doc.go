// Package runtime provides the high-level API for running DER programs.
//
// # Quick Start
//
//	ctx := context.Background()
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
//
// # Loading Programs
//
//	Load(bytes)       - decode a DER container
//	LoadFile(path)    - decode a DER container from disk
//	LoadProgram(p)    - wrap a program built in memory
//
// Loaded programs are checked with format.Validate unless
// Config.Validate is false. Every problem found is reported.
//
// # Host Arguments
//
// Run converts its arguments with value.FromGo and stores argument i in
// slot 1000+i and the count in slot 999, where LoadArg reads them:
//
//	Go Type               Value
//	───────────────────────────────
//	nil                   Nil
//	bool                  Bool
//	int*, uint*           Int
//	float32, float64      Float
//	string, []byte        String
//	[]any                 Array
//	map[string]any        Map
//
// # Configuration
//
// Config can be loaded from TOML or YAML:
//
//	# der.toml
//	capabilities = ["filesystem", "network"]
//	max_call_depth = 256
//	heap_limit = 1048576
//	validate = true
//	detect_cycles = true
//
// Capabilities are advisory. A program that declares a capability the
// runtime does not grant still runs; the gap is logged at warn level.
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use. You can call
// Module.Instantiate() from multiple goroutines concurrently.
//
// Instance is NOT thread-safe. Each goroutine should have its own
// Instance, or access must be synchronized externally.
package runtime
