package engine

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/value"
)

// Executor evaluates a program over a Context.
type Executor struct {
	ctx          *Context
	out          io.Writer
	detectCycles bool
}

// NewExecutor creates an executor with DefaultConfig.
func NewExecutor(p *format.Program) *Executor {
	return NewExecutorWithConfig(p, nil)
}

// NewExecutorWithConfig creates an executor with custom configuration.
// A nil cfg is the same as DefaultConfig.
func NewExecutorWithConfig(p *format.Program, cfg *Config) *Executor {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if c.Output == nil {
		c.Output = os.Stdout
	}
	return &Executor{
		ctx:          NewContext(p, c),
		out:          c.Output,
		detectCycles: c.DetectCycles,
	}
}

// Context returns the execution state.
func (e *Executor) Context() *Context {
	return e.ctx
}

// GrantCapability records capability on the context.
func (e *Executor) GrantCapability(capability format.Capability) {
	e.ctx.Grant(capability)
}

// SetArgument stores host argument i in slot format.ArgBase+i.
func (e *Executor) SetArgument(i int, v value.Value) {
	e.ctx.SetValue(format.ArgBase+uint32(i), v)
}

// SetArgc stores the host argument count in slot format.ArgcSlot.
func (e *Executor) SetArgc(n int) {
	e.ctx.SetValue(format.ArgcSlot, value.Int(n))
}

// Execute evaluates the program's entry node.
func (e *Executor) Execute() (value.Value, error) {
	entry := e.ctx.program.Metadata.EntryPoint
	v, err := e.ExecuteNode(entry)
	if err != nil {
		Logger().Debug("execution failed",
			zap.Uint32("entry", entry),
			zap.String("kind", string(errors.KindOf(err))),
			zap.Error(err))
		return nil, err
	}
	return v, nil
}

// ExecuteNode evaluates the node with result id id, returning the memoized
// value if it already ran.
func (e *Executor) ExecuteNode(id uint32) (value.Value, error) {
	n, ok := e.ctx.Node(id)
	if !ok {
		return nil, errors.InvalidNodeRef(errors.PhaseRuntime, id)
	}
	if v, ok := e.ctx.Value(n.ResultID); ok {
		return v, nil
	}

	if e.detectCycles {
		active := e.ctx.inProgress()
		if active[id] {
			return nil, errors.Cycle(errors.PhaseRuntime, id)
		}
		active[id] = true
		defer delete(active, id)
	}

	h, err := lookup(n.OpCode)
	if err != nil {
		return nil, err
	}
	v, err := h(e, n)
	if err != nil {
		return nil, err
	}

	e.ctx.SetValue(n.ResultID, v)
	return v, nil
}

// arg resolves argument i of n. A 0 slot is nil.
func (e *Executor) arg(n format.Node, i int) (value.Value, error) {
	if i >= int(n.ArgCount) {
		return nil, errors.InvalidArgCount(i+1, int(n.ArgCount))
	}
	if i >= format.MaxArgs {
		return nil, errors.InvalidArgCount(format.MaxArgs, int(n.ArgCount))
	}

	id := n.Args[i]
	if id == 0 {
		return value.Nil{}, nil
	}
	if v, ok := e.ctx.Value(id); ok {
		return v, nil
	}
	if _, ok := e.ctx.Node(id); ok {
		return e.ExecuteNode(id)
	}
	return nil, errors.InvalidNodeRef(errors.PhaseRuntime, id)
}

func (e *Executor) args2(n format.Node) (value.Value, value.Value, error) {
	l, err := e.arg(n, 0)
	if err != nil {
		return nil, nil, err
	}
	r, err := e.arg(n, 1)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func (e *Executor) args3(n format.Node) (value.Value, value.Value, value.Value, error) {
	a, b, err := e.args2(n)
	if err != nil {
		return nil, nil, nil, err
	}
	c, err := e.arg(n, 2)
	if err != nil {
		return nil, nil, nil, err
	}
	return a, b, c, nil
}
