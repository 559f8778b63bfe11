package engine_test

import (
	"bytes"
	"testing"

	"github.com/wippyai/der-runtime/engine"
	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/value"
)

// graph builds test programs with result ids starting at 100, clear of the
// positional locals used by Call.
type graph struct {
	p    *format.Program
	next uint32
}

func newGraph() *graph {
	return &graph{p: format.NewProgram(), next: 100}
}

func (g *graph) add(op format.OpCode, args ...uint32) uint32 {
	id := g.next
	g.next++
	g.p.AddNode(format.NewNode(op, id).WithArgs(args...))
	return id
}

// at adds a node with an explicit result id.
func (g *graph) at(id uint32, op format.OpCode, args ...uint32) uint32 {
	g.p.AddNode(format.NewNode(op, id).WithArgs(args...))
	return id
}

func (g *graph) i64(v int64) uint32 {
	return g.add(format.OpConstInt, g.p.Constants.AddInt(v))
}

func (g *graph) f64(v float64) uint32 {
	return g.add(format.OpConstFloat, g.p.Constants.AddFloat(v))
}

func (g *graph) str(v string) uint32 {
	return g.add(format.OpConstString, g.p.Constants.AddString(v))
}

func (g *graph) boolean(v bool) uint32 {
	return g.add(format.OpConstBool, g.p.Constants.AddBool(v))
}

func (g *graph) executor(entry uint32, out *bytes.Buffer, mutate ...func(*engine.Config)) *engine.Executor {
	g.p.SetEntryPoint(entry)
	cfg := engine.DefaultConfig()
	cfg.Output = out
	for _, m := range mutate {
		m(&cfg)
	}
	return engine.NewExecutorWithConfig(g.p, &cfg)
}

func (g *graph) run(t *testing.T, entry uint32) (value.Value, string, error) {
	t.Helper()
	var out bytes.Buffer
	v, err := g.executor(entry, &out).Execute()
	return v, out.String(), err
}

func (g *graph) mustRun(t *testing.T, entry uint32) value.Value {
	t.Helper()
	v, _, err := g.run(t, entry)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return v
}
