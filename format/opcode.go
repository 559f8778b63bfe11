package format

import (
	"fmt"
	"sort"
)

// OpCode is the 16-bit operation code of a node.
// The high byte selects the category.
type OpCode uint16

// Control flow
const (
	OpNop    OpCode = 0x0000
	OpReturn OpCode = 0x0001
	OpCall   OpCode = 0x0002
	OpBranch OpCode = 0x0003
)

// Arithmetic
const (
	OpAdd OpCode = 0x0100
	OpSub OpCode = 0x0101
	OpMul OpCode = 0x0102
	OpDiv OpCode = 0x0103
	OpMod OpCode = 0x0104
)

// Comparison
const (
	OpEq OpCode = 0x0200
	OpNe OpCode = 0x0201
	OpLt OpCode = 0x0202
	OpLe OpCode = 0x0203
	OpGt OpCode = 0x0204
	OpGe OpCode = 0x0205
)

// Logic
const (
	OpAnd OpCode = 0x0300
	OpOr  OpCode = 0x0301
	OpNot OpCode = 0x0302
	OpXor OpCode = 0x0303
)

// Memory
const (
	OpLoad    OpCode = 0x0400
	OpStore   OpCode = 0x0401
	OpAlloc   OpCode = 0x0402
	OpFree    OpCode = 0x0403
	OpLoadArg OpCode = 0x0404
)

// Constants
const (
	OpConstInt    OpCode = 0x0500
	OpConstFloat  OpCode = 0x0501
	OpConstString OpCode = 0x0502
	OpConstBool   OpCode = 0x0503
)

// Data structures
const (
	OpCreateArray OpCode = 0x0600
	OpCreateMap   OpCode = 0x0601
	OpArrayGet    OpCode = 0x0602
	OpArraySet    OpCode = 0x0603
	OpMapGet      OpCode = 0x0604
	OpMapSet      OpCode = 0x0605
)

// Functions
const (
	OpDefineFunc    OpCode = 0x0700
	OpCreateClosure OpCode = 0x0701
)

// Types
const (
	OpCast   OpCode = 0x0800
	OpTypeOf OpCode = 0x0801
)

// IO
const (
	OpPrint OpCode = 0x0900
	OpRead  OpCode = 0x0901
)

// UI
const (
	OpUICreateElement OpCode = 0x0A00
	OpUISetAttribute  OpCode = 0x0A01
	OpUIAppendChild   OpCode = 0x0A02
)

// Async
const (
	OpAsyncBegin    OpCode = 0x0B00
	OpAsyncAwait    OpCode = 0x0B01
	OpAsyncComplete OpCode = 0x0B02
)

// External calls
const (
	OpExternalCall OpCode = 0x0F00
)

var opNames = map[OpCode]string{
	OpNop:             "Nop",
	OpReturn:          "Return",
	OpCall:            "Call",
	OpBranch:          "Branch",
	OpAdd:             "Add",
	OpSub:             "Sub",
	OpMul:             "Mul",
	OpDiv:             "Div",
	OpMod:             "Mod",
	OpEq:              "Eq",
	OpNe:              "Ne",
	OpLt:              "Lt",
	OpLe:              "Le",
	OpGt:              "Gt",
	OpGe:              "Ge",
	OpAnd:             "And",
	OpOr:              "Or",
	OpNot:             "Not",
	OpXor:             "Xor",
	OpLoad:            "Load",
	OpStore:           "Store",
	OpAlloc:           "Alloc",
	OpFree:            "Free",
	OpLoadArg:         "LoadArg",
	OpConstInt:        "ConstInt",
	OpConstFloat:      "ConstFloat",
	OpConstString:     "ConstString",
	OpConstBool:       "ConstBool",
	OpCreateArray:     "CreateArray",
	OpCreateMap:       "CreateMap",
	OpArrayGet:        "ArrayGet",
	OpArraySet:        "ArraySet",
	OpMapGet:          "MapGet",
	OpMapSet:          "MapSet",
	OpDefineFunc:      "DefineFunc",
	OpCreateClosure:   "CreateClosure",
	OpCast:            "Cast",
	OpTypeOf:          "TypeOf",
	OpPrint:           "Print",
	OpRead:            "Read",
	OpUICreateElement: "UICreateElement",
	OpUISetAttribute:  "UISetAttribute",
	OpUIAppendChild:   "UIAppendChild",
	OpAsyncBegin:      "AsyncBegin",
	OpAsyncAwait:      "AsyncAwait",
	OpAsyncComplete:   "AsyncComplete",
	OpExternalCall:    "ExternalCall",
}

// String returns the mnemonic, or the hex code for values outside the set.
func (op OpCode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OpCode(0x%04X)", uint16(op))
}

// Known reports whether op is a member of the opcode set.
func (op OpCode) Known() bool {
	_, ok := opNames[op]
	return ok
}

// Category returns the high byte of the opcode.
func (op OpCode) Category() byte {
	return byte(op >> 8)
}

// IsConst reports whether op loads a constant pool entry.
// Arguments of constant opcodes are pool indices, not node references.
func (op OpCode) IsConst() bool {
	return op.Category() == 0x05
}

// IsPure reports whether evaluating op has no effect beyond producing its value.
func (op OpCode) IsPure() bool {
	switch op.Category() {
	case 0x01, 0x02, 0x03, 0x05:
		return true
	}
	switch op {
	case OpCreateArray, OpCreateMap, OpArrayGet, OpArraySet, OpMapGet, OpMapSet, OpDefineFunc:
		return true
	}
	return false
}

// ParseOpCode looks up an opcode by mnemonic.
func ParseOpCode(name string) (OpCode, bool) {
	for op, n := range opNames {
		if n == name {
			return op, true
		}
	}
	return 0, false
}

// OpCodes returns every member of the opcode set in numeric order.
func OpCodes() []OpCode {
	out := make([]OpCode, 0, len(opNames))
	for op := range opNames {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
