package engine

import (
	"go.uber.org/zap"

	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/value"
)

func execNop(*Executor, format.Node) (value.Value, error) {
	return value.Nil{}, nil
}

func execReturn(e *Executor, n format.Node) (value.Value, error) {
	if n.ArgCount == 0 {
		return value.Nil{}, nil
	}
	return e.arg(n, 0)
}

func execBranch(e *Executor, n format.Node) (value.Value, error) {
	cond, err := e.arg(n, 0)
	if err != nil {
		return nil, err
	}
	switch {
	case value.Truthy(cond):
		return e.arg(n, 1)
	case n.ArgCount > 2:
		return e.arg(n, 2)
	}
	return value.Nil{}, nil
}

// execCall evaluates the callee and its arguments in the caller's frame,
// then runs the body in a new frame with captures and positional locals
// bound.
func execCall(e *Executor, n format.Node) (value.Value, error) {
	callee, err := e.arg(n, 0)
	if err != nil {
		return nil, err
	}
	fn, ok := callee.(*value.Function)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseRuntime, "function", value.TypeName(callee))
	}

	var args []value.Value
	for i := 1; i < int(n.ArgCount); i++ {
		v, err := e.arg(n, i)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	if err := e.ctx.PushFrame(fn.NodeID, n.ResultID); err != nil {
		return nil, err
	}
	depth := e.ctx.Depth()
	Logger().Debug("push frame",
		zap.Uint32("body", fn.NodeID),
		zap.Uint32("call", n.ResultID),
		zap.Int("depth", depth))
	defer func() {
		e.ctx.PopFrame()
		Logger().Debug("pop frame", zap.Uint32("body", fn.NodeID), zap.Int("depth", depth))
	}()

	frame := e.ctx.CurrentFrame()
	for id, v := range fn.Captured {
		frame.Locals[id] = v
	}
	for i, v := range args {
		frame.Locals[uint32(i+1)] = v
	}

	return e.ExecuteNode(fn.NodeID)
}
