package engine

import (
	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/value"
)

type handler func(e *Executor, n format.Node) (value.Value, error)

// handlers is filled in init because handlers recurse through
// Executor.ExecuteNode, which reads this table.
var handlers map[format.OpCode]handler

func init() {
	handlers = map[format.OpCode]handler{
		format.OpNop:    execNop,
		format.OpReturn: execReturn,
		format.OpCall:   execCall,
		format.OpBranch: execBranch,

		format.OpAdd: arithmetic(func(a, b float64) float64 { return a + b }),
		format.OpSub: arithmetic(func(a, b float64) float64 { return a - b }),
		format.OpMul: arithmetic(func(a, b float64) float64 { return a * b }),
		format.OpDiv: execDiv,
		format.OpMod: execMod,

		format.OpEq: execEq,
		format.OpNe: execNe,
		format.OpLt: ordering(func(a, b float64) bool { return a < b }),
		format.OpLe: ordering(func(a, b float64) bool { return a <= b }),
		format.OpGt: ordering(func(a, b float64) bool { return a > b }),
		format.OpGe: ordering(func(a, b float64) bool { return a >= b }),

		format.OpAnd: execAnd,
		format.OpOr:  execOr,
		format.OpNot: execNot,
		format.OpXor: execXor,

		format.OpConstInt:    execConstInt,
		format.OpConstFloat:  execConstFloat,
		format.OpConstString: execConstString,
		format.OpConstBool:   execConstBool,

		format.OpCreateArray: execCreateArray,
		format.OpCreateMap:   execCreateMap,
		format.OpArrayGet:    execArrayGet,
		format.OpArraySet:    execArraySet,
		format.OpMapGet:      execMapGet,
		format.OpMapSet:      execMapSet,

		format.OpDefineFunc:    execDefineFunc,
		format.OpCreateClosure: execCreateClosure,

		format.OpPrint: execPrint,

		format.OpAlloc:   execAlloc,
		format.OpFree:    execFree,
		format.OpLoad:    execLoad,
		format.OpStore:   execStore,
		format.OpLoadArg: execLoadArg,

		format.OpAsyncBegin:    execAsyncBegin,
		format.OpAsyncAwait:    execAsyncAwait,
		format.OpAsyncComplete: execAsyncComplete,
	}
}

// lookup returns the handler for op. Declared opcodes without a handler are
// reserved and fail distinctly from codes outside the enumeration.
func lookup(op format.OpCode) (handler, error) {
	if h, ok := handlers[op]; ok {
		return h, nil
	}
	if op.Known() {
		return nil, errors.Unimplemented(op.String(), uint16(op))
	}
	return nil, errors.UnknownOpcode(uint16(op))
}

// Implemented reports whether op has a handler.
func Implemented(op format.OpCode) bool {
	_, ok := handlers[op]
	return ok
}
