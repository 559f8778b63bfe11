// Package wasmgen lowers DER programs to core WebAssembly modules.
//
// Only the integer and boolean subset of the opcode set is lowered:
//
//	Nop Return Branch
//	ConstInt ConstBool
//	Add Sub Mul
//	Eq Ne Lt Le Gt Ge
//	And Or Not Xor
//	Print
//
// Every node reachable from the entry becomes a function of type
// () -> i64 with two globals that memoize its result, so the module keeps
// the interpreter's evaluate-once and lazy Branch behavior. The module
// exports "main" and imports its print functions from "env":
//
//	print_int(i64)  print_bool(i64)  print_nil()
//	print_space()   print_newline()
//
// Run supplies those imports with wazero and formats output exactly like
// the interpreter's Print:
//
//	mod, err := wasmgen.Lower(prog)
//	if err != nil {
//	    return err
//	}
//	result, err := wasmgen.Run(ctx, mod, os.Stdout)
package wasmgen
