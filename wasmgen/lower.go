package wasmgen

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/internal/binary"
	"github.com/wippyai/der-runtime/value"
)

const hostModule = "env"

// Function types.
const (
	typeNode    uint32 = iota // () -> i64
	typeI64Void               // (i64) -> ()
	typeVoid                  // () -> ()
)

// Imported host functions, in function index order.
const (
	importPrintInt uint32 = iota
	importPrintBool
	importPrintNil
	importPrintSpace
	importPrintNewline
	importCount
)

var hostImports = []hostImport{
	{name: "print_int", typeIdx: typeI64Void},
	{name: "print_bool", typeIdx: typeI64Void},
	{name: "print_nil", typeIdx: typeVoid},
	{name: "print_space", typeIdx: typeVoid},
	{name: "print_newline", typeIdx: typeVoid},
}

// EntryExport is the name of the exported function that evaluates the
// entry node.
const EntryExport = "main"

var lowerable = map[format.OpCode]bool{
	format.OpNop:       true,
	format.OpReturn:    true,
	format.OpBranch:    true,
	format.OpConstInt:  true,
	format.OpConstBool: true,
	format.OpAdd:       true,
	format.OpSub:       true,
	format.OpMul:       true,
	format.OpEq:        true,
	format.OpNe:        true,
	format.OpLt:        true,
	format.OpLe:        true,
	format.OpGt:        true,
	format.OpGe:        true,
	format.OpAnd:       true,
	format.OpOr:        true,
	format.OpNot:       true,
	format.OpXor:       true,
	format.OpPrint:     true,
}

// Lowerable reports whether op can appear in a lowered program.
func Lowerable(op format.OpCode) bool {
	return lowerable[op]
}

// Module is a lowered program.
type Module struct {
	// Binary is the encoded core wasm module.
	Binary []byte

	// Result is the static kind of the entry node: nil, bool or int.
	Result value.Kind

	// Entry is the result id of the entry node.
	Entry uint32

	// Nodes is the number of node functions emitted.
	Nodes int
}

const (
	unvisited = iota
	active
	done
)

type lowerer struct {
	p     *format.Program
	idx   map[uint32]int
	state map[uint32]int
	kinds map[uint32]value.Kind
	fn    map[uint32]uint32
	order []uint32 // dependencies before dependents
}

// Lower compiles the subgraph reachable from the entry node into a core
// wasm module. Every reachable node must be lowerable and statically
// typed: arms of a Branch must agree on their kind and arithmetic and
// ordering operands must be integers.
//
// Each node becomes a function guarded by a pair of globals, so a node runs
// at most once and Branch evaluates only the selected arm. Values are i64;
// booleans are 0 or 1 and nil is 0. Integer arithmetic wraps at 64 bits.
func Lower(p *format.Program) (*Module, error) {
	l := &lowerer{
		p:     p,
		idx:   p.Index(),
		state: make(map[uint32]int),
		kinds: make(map[uint32]value.Kind),
		fn:    make(map[uint32]uint32),
	}

	entry := p.Metadata.EntryPoint
	if _, ok := l.idx[entry]; !ok {
		return nil, errors.InvalidNodeRef(errors.PhaseLower, entry)
	}
	result, err := l.visit(entry)
	if err != nil {
		return nil, err
	}

	for i, id := range l.order {
		l.fn[id] = importCount + uint32(i)
	}

	m := &module{
		types: []signature{
			typeNode:    {results: []byte{valI64}},
			typeI64Void: {params: []byte{valI64}},
			typeVoid:    {},
		},
		imports: hostImports,
		exports: map[string]uint32{EntryExport: importCount + uint32(len(l.order))},
	}
	for i, id := range l.order {
		m.funcs = append(m.funcs, typeNode)
		m.globals = append(m.globals,
			global{valType: valI32, init: []byte{opI32Const, 0}},
			global{valType: valI64, init: []byte{opI64Const, 0}},
		)
		m.code = append(m.code, l.body(id, uint32(2*i), uint32(2*i+1)))
	}

	main := binary.NewWriter()
	main.Byte(opCall)
	main.WriteU32(l.fn[entry])
	main.Byte(opEnd)
	m.funcs = append(m.funcs, typeNode)
	m.code = append(m.code, main.Bytes())

	out := &Module{
		Binary: m.encode(),
		Result: result,
		Entry:  entry,
		Nodes:  len(l.order),
	}
	Logger().Debug("lowered program",
		zap.Uint32("entry", entry),
		zap.Int("nodes", out.Nodes),
		zap.Int("bytes", len(out.Binary)),
		zap.Stringer("result", result))
	return out, nil
}

func (l *lowerer) visit(id uint32) (value.Kind, error) {
	switch l.state[id] {
	case done:
		return l.kinds[id], nil
	case active:
		return 0, errors.Cycle(errors.PhaseLower, id)
	}

	n := l.p.Nodes[l.idx[id]]
	if !lowerable[n.OpCode] {
		return 0, errors.New(errors.PhaseLower, errors.KindUnsupported).
			Path(fmt.Sprintf("node %d", id)).
			Value(uint16(n.OpCode)).
			Detail("%s cannot be lowered", n.OpCode).
			Build()
	}

	l.state[id] = active
	kind, err := l.infer(n)
	if err != nil {
		return 0, err
	}
	l.state[id] = done
	l.kinds[id] = kind
	l.order = append(l.order, id)
	return kind, nil
}

// operand visits argument i of n and returns its kind.
func (l *lowerer) operand(n format.Node, i int) (value.Kind, error) {
	if i >= int(n.ArgCount) {
		return 0, errors.New(errors.PhaseLower, errors.KindInvalidArgCount).
			Path(fmt.Sprintf("node %d", n.ResultID)).
			Expected(fmt.Sprintf("%d arguments", i+1)).
			Actual(fmt.Sprintf("%d", n.ArgCount)).
			Build()
	}
	a := n.Args[i]
	if a == 0 {
		return value.KindNil, nil
	}
	if _, ok := l.idx[a]; !ok {
		return 0, errors.Unsupported(errors.PhaseLower,
			fmt.Sprintf("node %d reads %d, which names no node", n.ResultID, a))
	}
	return l.visit(a)
}

func (l *lowerer) operands(n format.Node, count int) ([]value.Kind, error) {
	kinds := make([]value.Kind, count)
	for i := range kinds {
		k, err := l.operand(n, i)
		if err != nil {
			return nil, err
		}
		kinds[i] = k
	}
	return kinds, nil
}

func (l *lowerer) infer(n format.Node) (value.Kind, error) {
	switch n.OpCode {
	case format.OpNop:
		return value.KindNil, nil

	case format.OpConstInt:
		if _, ok := l.p.Constants.GetInt(n.Args[0]); !ok || n.ArgCount == 0 {
			return 0, l.badConstant(n, "int")
		}
		return value.KindInt, nil

	case format.OpConstBool:
		if _, ok := l.p.Constants.GetBool(n.Args[0]); !ok || n.ArgCount == 0 {
			return 0, l.badConstant(n, "bool")
		}
		return value.KindBool, nil

	case format.OpReturn:
		if n.ArgCount == 0 {
			return value.KindNil, nil
		}
		return l.operand(n, 0)

	case format.OpBranch:
		kinds, err := l.operands(n, 2)
		if err != nil {
			return 0, err
		}
		otherwise := value.KindNil
		if n.ArgCount > 2 {
			if otherwise, err = l.operand(n, 2); err != nil {
				return 0, err
			}
		}
		if kinds[1] != otherwise {
			return 0, errors.Unsupported(errors.PhaseLower,
				fmt.Sprintf("branch %d yields %s or %s", n.ResultID, kinds[1], otherwise))
		}
		return otherwise, nil

	case format.OpAdd, format.OpSub, format.OpMul,
		format.OpLt, format.OpLe, format.OpGt, format.OpGe:
		kinds, err := l.operands(n, 2)
		if err != nil {
			return 0, err
		}
		for _, k := range kinds {
			if k != value.KindInt {
				return 0, errors.New(errors.PhaseLower, errors.KindTypeMismatch).
					Path(fmt.Sprintf("node %d", n.ResultID)).
					Expected("int").
					Actual(k.String()).
					Build()
			}
		}
		if n.OpCode.Category() == format.OpAdd.Category() {
			return value.KindInt, nil
		}
		return value.KindBool, nil

	case format.OpEq, format.OpNe, format.OpAnd, format.OpOr, format.OpXor:
		if _, err := l.operands(n, 2); err != nil {
			return 0, err
		}
		return value.KindBool, nil

	case format.OpNot:
		if _, err := l.operand(n, 0); err != nil {
			return 0, err
		}
		return value.KindBool, nil

	case format.OpPrint:
		if _, err := l.operands(n, int(n.ArgCount)); err != nil {
			return 0, err
		}
		return value.KindNil, nil
	}
	return 0, errors.Unsupported(errors.PhaseLower, n.OpCode.String())
}

func (l *lowerer) badConstant(n format.Node, pool string) error {
	return errors.New(errors.PhaseLower, errors.KindInvalidConstantIndex).
		Path(fmt.Sprintf("node %d", n.ResultID), pool).
		Value(n.Args[0]).
		Detail("invalid constant index %d", n.Args[0]).
		Build()
}

// kindOf returns the static kind of argument i of n.
func (l *lowerer) kindOf(n format.Node, i int) value.Kind {
	if n.Args[i] == 0 {
		return value.KindNil
	}
	return l.kinds[n.Args[i]]
}

// body emits the memoized function for node id:
//
//	if done { return val }
//	val = <node>; done = 1; return val
func (l *lowerer) body(id, doneGlobal, valGlobal uint32) []byte {
	w := binary.NewWriter()
	w.Byte(opGlobalGet)
	w.WriteU32(doneGlobal)
	w.Byte(opIf)
	w.Byte(blockVoid)
	w.Byte(opGlobalGet)
	w.WriteU32(valGlobal)
	w.Byte(opReturn)
	w.Byte(opEnd)

	l.emit(w, l.p.Nodes[l.idx[id]])

	w.Byte(opGlobalSet)
	w.WriteU32(valGlobal)
	w.Byte(opI32Const)
	w.WriteS64(1)
	w.Byte(opGlobalSet)
	w.WriteU32(doneGlobal)
	w.Byte(opGlobalGet)
	w.WriteU32(valGlobal)
	w.Byte(opEnd)
	return w.Bytes()
}

// arg pushes the value of argument i of n.
func (l *lowerer) arg(w *binary.Writer, n format.Node, i int) {
	if n.Args[i] == 0 {
		i64Const(w, 0)
		return
	}
	w.Byte(opCall)
	w.WriteU32(l.fn[n.Args[i]])
}

// emit pushes the i64 value of n. Operands were checked by infer.
func (l *lowerer) emit(w *binary.Writer, n format.Node) {
	switch n.OpCode {
	case format.OpNop:
		i64Const(w, 0)

	case format.OpConstInt:
		v, _ := l.p.Constants.GetInt(n.Args[0])
		i64Const(w, v)

	case format.OpConstBool:
		v, _ := l.p.Constants.GetBool(n.Args[0])
		i64Const(w, boolInt(v))

	case format.OpReturn:
		if n.ArgCount == 0 {
			i64Const(w, 0)
			return
		}
		l.arg(w, n, 0)

	case format.OpBranch:
		l.arg(w, n, 0)
		w.Byte(opI64Eqz)
		w.Byte(opIf)
		w.Byte(blockI64)
		if n.ArgCount > 2 {
			l.arg(w, n, 2)
		} else {
			i64Const(w, 0)
		}
		w.Byte(opElse)
		l.arg(w, n, 1)
		w.Byte(opEnd)

	case format.OpAdd, format.OpSub, format.OpMul:
		l.arg(w, n, 0)
		l.arg(w, n, 1)
		w.Byte(arithOps[n.OpCode])

	case format.OpLt, format.OpLe, format.OpGt, format.OpGe:
		l.arg(w, n, 0)
		l.arg(w, n, 1)
		w.Byte(compareOps[n.OpCode])
		w.Byte(opI64ExtendU)

	case format.OpEq, format.OpNe:
		if l.kindOf(n, 0) != l.kindOf(n, 1) {
			// Values of different kinds are never equal.
			l.arg(w, n, 0)
			w.Byte(opDrop)
			l.arg(w, n, 1)
			w.Byte(opDrop)
			i64Const(w, boolInt(n.OpCode == format.OpNe))
			return
		}
		l.arg(w, n, 0)
		l.arg(w, n, 1)
		w.Byte(compareOps[n.OpCode])
		w.Byte(opI64ExtendU)

	case format.OpAnd:
		l.arg(w, n, 0)
		w.Byte(opI64Eqz)
		w.Byte(opIf)
		w.Byte(blockI64)
		i64Const(w, 0)
		w.Byte(opElse)
		l.truthy(w, n, 1)
		w.Byte(opEnd)

	case format.OpOr:
		l.arg(w, n, 0)
		w.Byte(opI64Eqz)
		w.Byte(opIf)
		w.Byte(blockI64)
		l.truthy(w, n, 1)
		w.Byte(opElse)
		i64Const(w, 1)
		w.Byte(opEnd)

	case format.OpNot:
		l.arg(w, n, 0)
		w.Byte(opI64Eqz)
		w.Byte(opI64ExtendU)

	case format.OpXor:
		l.arg(w, n, 0)
		i64Const(w, 0)
		w.Byte(opI64Ne)
		l.arg(w, n, 1)
		i64Const(w, 0)
		w.Byte(opI64Ne)
		w.Byte(opI32Xor)
		w.Byte(opI64ExtendU)

	case format.OpPrint:
		for i := 0; i < int(n.ArgCount); i++ {
			l.arg(w, n, i)
			if i > 0 {
				call(w, importPrintSpace)
			}
			switch l.kindOf(n, i) {
			case value.KindInt:
				call(w, importPrintInt)
			case value.KindBool:
				call(w, importPrintBool)
			default:
				w.Byte(opDrop)
				call(w, importPrintNil)
			}
		}
		call(w, importPrintNewline)
		i64Const(w, 0)
	}
}

// truthy pushes 1 if argument i of n is non-zero, else 0.
func (l *lowerer) truthy(w *binary.Writer, n format.Node, i int) {
	l.arg(w, n, i)
	i64Const(w, 0)
	w.Byte(opI64Ne)
	w.Byte(opI64ExtendU)
}

var arithOps = map[format.OpCode]byte{
	format.OpAdd: opI64Add,
	format.OpSub: opI64Sub,
	format.OpMul: opI64Mul,
}

var compareOps = map[format.OpCode]byte{
	format.OpEq: opI64Eq,
	format.OpNe: opI64Ne,
	format.OpLt: opI64LtS,
	format.OpLe: opI64LeS,
	format.OpGt: opI64GtS,
	format.OpGe: opI64GeS,
}

func i64Const(w *binary.Writer, v int64) {
	w.Byte(opI64Const)
	w.WriteS64(v)
}

func call(w *binary.Writer, fn uint32) {
	w.Byte(opCall)
	w.WriteU32(fn)
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
