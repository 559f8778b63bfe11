package engine

import (
	"io"

	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/value"
)

// Constant opcodes read Args[0] as a pool index regardless of ArgCount.

func execConstInt(e *Executor, n format.Node) (value.Value, error) {
	v, ok := e.ctx.program.Constants.GetInt(n.Args[0])
	if !ok {
		return nil, errors.InvalidConstantIndex("int", n.Args[0])
	}
	return value.Int(v), nil
}

func execConstFloat(e *Executor, n format.Node) (value.Value, error) {
	v, ok := e.ctx.program.Constants.GetFloat(n.Args[0])
	if !ok {
		return nil, errors.InvalidConstantIndex("float", n.Args[0])
	}
	return value.Float(v), nil
}

func execConstString(e *Executor, n format.Node) (value.Value, error) {
	v, ok := e.ctx.program.Constants.GetString(n.Args[0])
	if !ok {
		return nil, errors.InvalidConstantIndex("string", n.Args[0])
	}
	return value.String(v), nil
}

func execConstBool(e *Executor, n format.Node) (value.Value, error) {
	v, ok := e.ctx.program.Constants.GetBool(n.Args[0])
	if !ok {
		return nil, errors.InvalidConstantIndex("bool", n.Args[0])
	}
	return value.Bool(v), nil
}

func execCreateArray(e *Executor, n format.Node) (value.Value, error) {
	arr := make(value.Array, 0, n.ArgCount)
	for i := 0; i < int(n.ArgCount); i++ {
		v, err := e.arg(n, i)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	return arr, nil
}

func execCreateMap(*Executor, format.Node) (value.Value, error) {
	return value.Map{}, nil
}

func execArrayGet(e *Executor, n format.Node) (value.Value, error) {
	a, i, err := e.args2(n)
	if err != nil {
		return nil, err
	}
	arr, idx, err := arrayIndex(a, i)
	if err != nil {
		return nil, err
	}
	return arr[idx], nil
}

func execArraySet(e *Executor, n format.Node) (value.Value, error) {
	a, i, v, err := e.args3(n)
	if err != nil {
		return nil, err
	}
	arr, idx, err := arrayIndex(a, i)
	if err != nil {
		return nil, err
	}
	return arr.Set(idx, v), nil
}

func arrayIndex(a, i value.Value) (value.Array, int, error) {
	arr, okA := a.(value.Array)
	idx, okI := i.(value.Int)
	if !okA || !okI {
		return nil, 0, operandMismatch("array and integer", a, i)
	}
	if idx < 0 || int64(idx) >= int64(len(arr)) {
		return nil, 0, errors.OutOfBounds(errors.PhaseRuntime, int64(idx), len(arr))
	}
	return arr, int(idx), nil
}

func execMapGet(e *Executor, n format.Node) (value.Value, error) {
	m, k, err := e.args2(n)
	if err != nil {
		return nil, err
	}
	mp, key, err := mapKey(m, k)
	if err != nil {
		return nil, err
	}
	v, ok := mp[key]
	if !ok {
		return nil, errors.KeyNotFound(key)
	}
	return v, nil
}

func execMapSet(e *Executor, n format.Node) (value.Value, error) {
	m, k, v, err := e.args3(n)
	if err != nil {
		return nil, err
	}
	mp, key, err := mapKey(m, k)
	if err != nil {
		return nil, err
	}
	return mp.With(key, v), nil
}

func mapKey(m, k value.Value) (value.Map, string, error) {
	mp, okM := m.(value.Map)
	key, okK := k.(value.String)
	if !okM || !okK {
		return nil, "", operandMismatch("map and string", m, k)
	}
	return mp, string(key), nil
}

// execDefineFunc reads its arguments raw: Args[0] is the body node and
// Args[1] the arity.
func execDefineFunc(_ *Executor, n format.Node) (value.Value, error) {
	return &value.Function{
		NodeID: n.Args[0],
		Arity:  int(n.Args[1]),
	}, nil
}

// execCreateClosure copies the function in Args[0] and captures the current
// values of the ids in the remaining slots. Ids without a value are skipped.
func execCreateClosure(e *Executor, n format.Node) (value.Value, error) {
	base, err := e.arg(n, 0)
	if err != nil {
		return nil, err
	}
	fn, ok := base.(*value.Function)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseRuntime, "function", value.TypeName(base))
	}

	closure := &value.Function{
		NodeID:   fn.NodeID,
		Arity:    fn.Arity,
		Captured: make(map[uint32]value.Value, len(fn.Captured)+int(n.ArgCount)),
	}
	for id, v := range fn.Captured {
		closure.Captured[id] = v
	}
	for _, id := range n.Operands()[1:] {
		if v, ok := e.ctx.Value(id); ok {
			closure.Captured[id] = v
		}
	}
	return closure, nil
}

// execPrint writes each argument as soon as it is evaluated. Output
// already written stays written if a later argument fails.
func execPrint(e *Executor, n format.Node) (value.Value, error) {
	for i := 0; i < int(n.ArgCount); i++ {
		v, err := e.arg(n, i)
		if err != nil {
			return nil, err
		}
		s := v.String()
		if i > 0 {
			s = " " + s
		}
		if _, err := io.WriteString(e.out, s); err != nil {
			return nil, errors.IO(errors.PhaseRuntime, err)
		}
	}
	if _, err := io.WriteString(e.out, "\n"); err != nil {
		return nil, errors.IO(errors.PhaseRuntime, err)
	}
	return value.Nil{}, nil
}
