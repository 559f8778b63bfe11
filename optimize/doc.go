// Package optimize rewrites DER programs without changing what their entry
// node computes.
//
// # Passes
//
//	fold     - Add, Sub and Mul over two ConstInt nodes become a ConstInt
//	dce      - nodes unreachable from the entry point are removed
//	cse      - identical pure nodes are merged and references rewritten
//	compact  - constant pool entries no node refers to are dropped
//
// Each pass is exported on its own and mutates the program it is given.
// Optimize runs the enabled passes on a copy and reports what changed:
//
//	out, report := optimize.Optimize(prog, optimize.DefaultConfig())
//	fmt.Println(report)
//
// # Assumptions
//
// Folding follows the interpreter's arithmetic: operands and results are
// kept inside ±2^53, where integer and float arithmetic agree. Node ids are
// assumed not to collide with call-frame local slots, since a frame local
// shadows the node of the same id at run time.
package optimize
