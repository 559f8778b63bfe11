package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/der-runtime/async"
	"github.com/wippyai/der-runtime/engine"
	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/memory"
)

// Module is a loaded program. Instances created from one Module share its
// program but nothing else.
type Module struct {
	runtime *Runtime
	program *format.Program
}

// Program returns the loaded program.
func (m *Module) Program() *format.Program {
	return m.program
}

// Required returns the capabilities the program declares.
func (m *Module) Required() []format.Capability {
	return append([]format.Capability(nil), m.program.Metadata.Capabilities...)
}

// Missing returns the declared capabilities the runtime does not grant.
func (m *Module) Missing() []format.Capability {
	granted := make(map[format.Capability]bool, len(m.runtime.caps))
	for _, c := range m.runtime.caps {
		granted[c] = true
	}
	var out []format.Capability
	for _, c := range m.program.Metadata.Capabilities {
		if !granted[c] {
			out = append(out, c)
		}
	}
	return out
}

// Instantiate creates a fresh execution state for the program.
// Missing capabilities are logged, not enforced.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Load("instantiate", err)
	}

	cfg := m.runtime.cfg
	limit := cfg.HeapLimit
	if limit == 0 {
		limit = memory.DefaultLimit
	}
	heap := memory.NewWithLimit(limit)
	heap.Subscribe(heapLogger{})
	registry := async.NewRuntime()

	ecfg := engine.DefaultConfig()
	ecfg.Heap = heap
	ecfg.Async = registry
	ecfg.MaxCallDepth = cfg.MaxCallDepth
	ecfg.DetectCycles = cfg.DetectCycles
	if cfg.Output != nil {
		ecfg.Output = cfg.Output
	}

	exec := engine.NewExecutorWithConfig(m.program, &ecfg)
	for _, c := range m.runtime.caps {
		exec.GrantCapability(c)
	}
	for _, c := range m.Missing() {
		Logger().Warn("capability required but not granted",
			zap.Stringer("capability", c),
			zap.Uint32("entry", m.program.Metadata.EntryPoint))
	}

	return &Instance{
		module: m,
		exec:   exec,
		heap:   heap,
		async:  registry,
	}, nil
}

// heapLogger reports heap events at debug level.
type heapLogger struct{}

func (heapLogger) OnHeapEvent(e memory.Event) {
	Logger().Debug("heap",
		zap.Stringer("event", e.Type),
		zap.Uint64("address", e.Address),
		zap.Uint64("size", e.Size))
}
