package engine

import (
	"github.com/wippyai/der-runtime/async"
	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/value"
)

func execAlloc(e *Executor, n format.Node) (value.Value, error) {
	sv, err := e.arg(n, 0)
	if err != nil {
		return nil, err
	}
	size, ok := sv.(value.Int)
	if !ok || size <= 0 {
		return nil, errors.TypeMismatch(errors.PhaseRuntime, "positive integer", value.TypeName(sv))
	}

	var initial value.Value = value.Nil{}
	if n.ArgCount > 1 {
		if initial, err = e.arg(n, 1); err != nil {
			return nil, err
		}
	}

	addr, err := e.ctx.heap.Allocate(uint64(size), initial)
	if err != nil {
		return nil, err
	}
	return value.MemoryRef{Address: addr}, nil
}

func execFree(e *Executor, n format.Node) (value.Value, error) {
	ref, err := e.memoryRef(n)
	if err != nil {
		return nil, err
	}
	if err := e.ctx.heap.Free(ref.Address); err != nil {
		return nil, err
	}
	return value.Nil{}, nil
}

func execLoad(e *Executor, n format.Node) (value.Value, error) {
	ref, err := e.memoryRef(n)
	if err != nil {
		return nil, err
	}
	return e.ctx.heap.Load(ref.Address)
}

func execStore(e *Executor, n format.Node) (value.Value, error) {
	r, v, err := e.args2(n)
	if err != nil {
		return nil, err
	}
	ref, ok := r.(value.MemoryRef)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseRuntime, "memory reference", value.TypeName(r))
	}
	if err := e.ctx.heap.Store(ref.Address, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (e *Executor) memoryRef(n format.Node) (value.MemoryRef, error) {
	v, err := e.arg(n, 0)
	if err != nil {
		return value.MemoryRef{}, err
	}
	ref, ok := v.(value.MemoryRef)
	if !ok {
		return value.MemoryRef{}, errors.TypeMismatch(errors.PhaseRuntime, "memory reference", value.TypeName(v))
	}
	return ref, nil
}

// execLoadArg reads host argument i from slot format.ArgBase+i.
func execLoadArg(e *Executor, n format.Node) (value.Value, error) {
	iv, err := e.arg(n, 0)
	if err != nil {
		return nil, err
	}
	idx, ok := iv.(value.Int)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseRuntime, "integer", value.TypeName(iv))
	}
	if idx >= 0 && int64(idx) <= int64(^uint32(0)-format.ArgBase) {
		if v, ok := e.ctx.Value(format.ArgBase + uint32(idx)); ok {
			return v, nil
		}
	}
	return nil, errors.InvalidOperation(errors.PhaseRuntime, "argument %d not found", int64(idx))
}

func execAsyncBegin(e *Executor, _ format.Node) (value.Value, error) {
	return e.ctx.async.Begin().Value(), nil
}

// execAsyncAwait never blocks: a pending handle is returned unchanged.
func execAsyncAwait(e *Executor, n format.Node) (value.Value, error) {
	hv, h, err := e.asyncHandle(n)
	if err != nil {
		return nil, err
	}
	v, done, err := e.ctx.async.Result(h)
	if err != nil {
		return nil, err
	}
	if !done {
		return hv, nil
	}
	return v, nil
}

func execAsyncComplete(e *Executor, n format.Node) (value.Value, error) {
	_, h, err := e.asyncHandle(n)
	if err != nil {
		return nil, err
	}
	v, err := e.arg(n, 1)
	if err != nil {
		return nil, err
	}
	if err := e.ctx.async.Complete(h, v); err != nil {
		return nil, err
	}
	return value.Nil{}, nil
}

func (e *Executor) asyncHandle(n format.Node) (value.Value, *async.Handle, error) {
	v, err := e.arg(n, 0)
	if err != nil {
		return nil, nil, err
	}
	if hv, ok := v.(value.AsyncHandle); ok {
		if h, ok := hv.Handle.(*async.Handle); ok {
			return v, h, nil
		}
	}
	return nil, nil, errors.TypeMismatch(errors.PhaseRuntime, "async handle", value.TypeName(v))
}
