package engine

import (
	"sort"

	derruntime "github.com/wippyai/der-runtime"
	"github.com/wippyai/der-runtime/async"
	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/memory"
	"github.com/wippyai/der-runtime/value"
)

// Frame is one entry of the call stack.
type Frame struct {
	Locals   map[uint32]value.Value
	visiting map[uint32]bool
	NodeID   uint32 // body node of the called function
	ReturnTo uint32 // result id of the Call node, 0 if none
}

// Context owns all state of one execution.
type Context struct {
	program  *format.Program
	nodes    map[uint32]int
	values   map[uint32]value.Value
	granted  map[format.Capability]bool
	visiting map[uint32]bool
	heap     derruntime.Heap
	async    *async.Runtime
	frames   []*Frame
	maxDepth int
}

// NewContext creates a context for p. Zero fields of cfg take their defaults.
func NewContext(p *format.Program, cfg Config) *Context {
	c := &Context{
		program:  p,
		nodes:    p.Index(),
		values:   make(map[uint32]value.Value),
		granted:  make(map[format.Capability]bool),
		visiting: make(map[uint32]bool),
		heap:     cfg.Heap,
		async:    cfg.Async,
		maxDepth: cfg.MaxCallDepth,
	}
	if c.heap == nil {
		c.heap = memory.New()
	}
	if c.async == nil {
		c.async = async.NewRuntime()
	}
	if c.maxDepth <= 0 {
		c.maxDepth = DefaultMaxCallDepth
	}
	return c
}

// Program returns the program being executed.
func (c *Context) Program() *format.Program {
	return c.program
}

// Node returns the node with the given result id.
func (c *Context) Node(id uint32) (format.Node, bool) {
	i, ok := c.nodes[id]
	if !ok {
		return format.Node{}, false
	}
	return c.program.Nodes[i], true
}

// Value looks id up in the current frame's locals, then in the memo table.
func (c *Context) Value(id uint32) (value.Value, bool) {
	if f := c.CurrentFrame(); f != nil {
		if v, ok := f.Locals[id]; ok {
			return v, true
		}
	}
	v, ok := c.values[id]
	return v, ok
}

// SetValue records v under id in the current frame and in the memo table.
func (c *Context) SetValue(id uint32, v value.Value) {
	if f := c.CurrentFrame(); f != nil {
		f.Locals[id] = v
	}
	c.values[id] = v
}

// Memoized returns the number of entries in the memo table.
func (c *Context) Memoized() int {
	return len(c.values)
}

// PushFrame enters the body of a function.
func (c *Context) PushFrame(nodeID, returnTo uint32) error {
	if len(c.frames) >= c.maxDepth {
		return errors.StackOverflow(c.maxDepth)
	}
	c.frames = append(c.frames, &Frame{
		NodeID:   nodeID,
		ReturnTo: returnTo,
		Locals:   make(map[uint32]value.Value),
		visiting: make(map[uint32]bool),
	})
	return nil
}

// PopFrame leaves the current function body.
func (c *Context) PopFrame() (*Frame, bool) {
	if len(c.frames) == 0 {
		return nil, false
	}
	f := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	return f, true
}

// CurrentFrame returns the innermost frame, or nil at top level.
func (c *Context) CurrentFrame() *Frame {
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

// Depth returns the number of active frames.
func (c *Context) Depth() int {
	return len(c.frames)
}

// MaxCallDepth returns the frame limit.
func (c *Context) MaxCallDepth() int {
	return c.maxDepth
}

func (c *Context) inProgress() map[uint32]bool {
	if f := c.CurrentFrame(); f != nil {
		return f.visiting
	}
	return c.visiting
}

// Grant records a capability.
func (c *Context) Grant(capability format.Capability) {
	c.granted[capability] = true
}

// CheckCapability fails with errors.KindMissingCapability unless the
// capability was granted.
func (c *Context) CheckCapability(capability format.Capability) error {
	if !c.granted[capability] {
		return errors.MissingCapability(capability.String())
	}
	return nil
}

// Capabilities returns the granted capabilities in ascending order.
func (c *Context) Capabilities() []format.Capability {
	out := make([]format.Capability, 0, len(c.granted))
	for capability := range c.granted {
		out = append(out, capability)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Heap returns the heap used by the memory opcodes.
func (c *Context) Heap() derruntime.Heap {
	return c.heap
}

// Async returns the async handle registry.
func (c *Context) Async() *async.Runtime {
	return c.async
}
