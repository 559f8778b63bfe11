package runtime

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/der-runtime/async"
	"github.com/wippyai/der-runtime/engine"
	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/memory"
	"github.com/wippyai/der-runtime/value"
)

// Instance is one execution of a module: its memo table, heap and async
// registry. Values computed by Run and Eval stay memoized for the life of
// the instance.
type Instance struct {
	module *Module
	exec   *engine.Executor
	heap   *memory.Manager
	async  *async.Runtime
}

// Run binds args and evaluates the entry node.
func (i *Instance) Run(ctx context.Context, args ...any) (value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidOperation, err, "run")
	}
	if err := i.Bind(args...); err != nil {
		return nil, err
	}
	return i.exec.Execute()
}

// Bind converts args with value.FromGo and stores them in the host
// argument slots, with their count in the argc slot. Nothing is evaluated.
func (i *Instance) Bind(args ...any) error {
	for n, a := range args {
		v, err := value.FromGo(a)
		if err != nil {
			return errors.Wrap(errors.PhaseRuntime, errors.KindInvalidInput, err, fmt.Sprintf("argument %d", n))
		}
		i.exec.SetArgument(n, v)
	}
	i.exec.SetArgc(len(args))
	return nil
}

// Eval evaluates a single node by result id.
func (i *Instance) Eval(id uint32) (value.Value, error) {
	return i.exec.ExecuteNode(id)
}

// Value returns the memoized value of id without evaluating anything.
func (i *Instance) Value(id uint32) (value.Value, bool) {
	return i.exec.Context().Value(id)
}

// Module returns the module the instance was created from.
func (i *Instance) Module() *Module {
	return i.module
}

// Executor returns the underlying executor.
func (i *Instance) Executor() *engine.Executor {
	return i.exec
}

// Heap returns the instance heap.
func (i *Instance) Heap() *memory.Manager {
	return i.heap
}

// Async returns the instance's async handle registry.
func (i *Instance) Async() *async.Runtime {
	return i.async
}

// Close drops terminal async handles and sweeps freed heap objects.
func (i *Instance) Close(ctx context.Context) error {
	handles := i.async.CleanupCompleted()
	swept := i.heap.CollectGarbage()
	Logger().Debug("instance closed",
		zap.Int("async_handles", handles),
		zap.Int("heap_swept", swept))
	return ctx.Err()
}
