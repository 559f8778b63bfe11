package wasmgen_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/wippyai/der-runtime/engine"
	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/value"
	"github.com/wippyai/der-runtime/wasmgen"
)

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

func (g *graph) i64(v int64) uint32 {
	return g.add(format.OpConstInt, g.p.Constants.AddInt(v))
}

func (g *graph) boolean(v bool) uint32 {
	return g.add(format.OpConstBool, g.p.Constants.AddBool(v))
}

func interpret(t *testing.T, p *format.Program) (value.Value, string) {
	t.Helper()
	var out bytes.Buffer
	cfg := engine.DefaultConfig()
	cfg.Output = &out
	v, err := engine.NewExecutorWithConfig(p, &cfg).Execute()
	if err != nil {
		t.Fatalf("interpreter: %v", err)
	}
	return v, out.String()
}

func TestLoweredMatchesInterpreter(t *testing.T) {
	tests := []struct {
		name  string
		build func(g *graph) uint32
		out   string
	}{
		{
			name: "arithmetic",
			build: func(g *graph) uint32 {
				sum := g.add(format.OpAdd, g.i64(2), g.i64(3))
				prod := g.add(format.OpMul, sum, g.i64(-4))
				return g.add(format.OpSub, prod, g.i64(1))
			},
		},
		{
			name: "print",
			build: func(g *graph) uint32 {
				sum := g.add(format.OpAdd, g.i64(2), g.i64(3))
				return g.add(format.OpPrint, sum, g.boolean(true), 0)
			},
			out: "5 true nil\n",
		},
		{
			name: "lazy branch",
			build: func(g *graph) uint32 {
				yes := g.add(format.OpPrint, g.i64(1))
				no := g.add(format.OpPrint, g.i64(2))
				return g.add(format.OpBranch, g.boolean(false), yes, no)
			},
			out: "2\n",
		},
		{
			name: "branch without else",
			build: func(g *graph) uint32 {
				yes := g.add(format.OpPrint, g.i64(1))
				return g.add(format.OpBranch, g.i64(0), yes)
			},
		},
		{
			name: "memoized print",
			build: func(g *graph) uint32 {
				inner := g.add(format.OpPrint, g.i64(7))
				return g.add(format.OpPrint, inner, inner)
			},
			out: "7\nnil nil\n",
		},
		{
			name: "comparisons",
			build: func(g *graph) uint32 {
				a, b := g.i64(3), g.i64(5)
				lt := g.add(format.OpLt, a, b)
				ge := g.add(format.OpGe, a, b)
				le := g.add(format.OpLe, a, a)
				return g.add(format.OpPrint, lt, ge, le)
			},
			out: "true false true\n",
		},
		{
			name: "equality across kinds",
			build: func(g *graph) uint32 {
				one, yes := g.i64(1), g.boolean(true)
				eq := g.add(format.OpEq, one, yes)
				ne := g.add(format.OpNe, one, yes)
				nils := g.add(format.OpEq, 0, 0)
				return g.add(format.OpPrint, eq, ne, nils)
			},
			out: "false true true\n",
		},
		{
			name: "short circuit",
			build: func(g *graph) uint32 {
				and := g.add(format.OpAnd, g.boolean(false), g.add(format.OpPrint, g.i64(1)))
				or := g.add(format.OpOr, g.i64(9), g.add(format.OpPrint, g.i64(2)))
				return g.add(format.OpPrint, and, or)
			},
			out: "false true\n",
		},
		{
			name: "not and xor",
			build: func(g *graph) uint32 {
				not := g.add(format.OpNot, g.i64(0))
				xor := g.add(format.OpXor, g.i64(4), g.boolean(true))
				return g.add(format.OpReturn, g.add(format.OpAnd, not, g.add(format.OpNot, xor)))
			},
		},
		{
			name: "nop entry",
			build: func(g *graph) uint32 {
				return g.add(format.OpNop)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGraph()
			g.p.SetEntryPoint(tt.build(g))
			want, wantOut := interpret(t, g.p)
			if wantOut != tt.out {
				t.Fatalf("interpreter output = %q, want %q", wantOut, tt.out)
			}

			mod, err := wasmgen.Lower(g.p)
			if err != nil {
				t.Fatalf("Lower: %v", err)
			}
			if !bytes.HasPrefix(mod.Binary, []byte("\x00asm\x01\x00\x00\x00")) {
				t.Fatalf("binary header = % x", mod.Binary[:8])
			}

			var out bytes.Buffer
			got, err := wasmgen.Run(context.Background(), mod, &out)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if !value.Equal(got, want) {
				t.Errorf("result = %v (%s), interpreter %v (%s)", got, got.Kind(), want, want.Kind())
			}
			if out.String() != wantOut {
				t.Errorf("output = %q, want %q", out.String(), wantOut)
			}
		})
	}
}

func TestLowerOnlyReachable(t *testing.T) {
	g := newGraph()
	g.add(format.OpConstString, g.p.Constants.AddString("ignored"))
	entry := g.add(format.OpAdd, g.i64(1), g.i64(2))
	g.p.SetEntryPoint(entry)

	mod, err := wasmgen.Lower(g.p)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if mod.Nodes != 3 || mod.Result != value.KindInt || mod.Entry != entry {
		t.Errorf("module = %d nodes, %s, entry %d", mod.Nodes, mod.Result, mod.Entry)
	}
}

func TestLowerErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(g *graph) uint32
		kind  errors.Kind
	}{
		{
			name: "string constant",
			build: func(g *graph) uint32 {
				return g.add(format.OpPrint, g.add(format.OpConstString, g.p.Constants.AddString("x")))
			},
			kind: errors.KindUnsupported,
		},
		{
			name: "mixed branch arms",
			build: func(g *graph) uint32 {
				return g.add(format.OpBranch, g.boolean(true), g.i64(1), g.boolean(false))
			},
			kind: errors.KindUnsupported,
		},
		{
			name: "bool arithmetic",
			build: func(g *graph) uint32 {
				return g.add(format.OpAdd, g.i64(1), g.boolean(true))
			},
			kind: errors.KindTypeMismatch,
		},
		{
			name: "frame local",
			build: func(g *graph) uint32 {
				return g.add(format.OpNot, 1)
			},
			kind: errors.KindUnsupported,
		},
		{
			name: "missing operand",
			build: func(g *graph) uint32 {
				return g.add(format.OpSub, g.i64(1))
			},
			kind: errors.KindInvalidArgCount,
		},
		{
			name: "bad constant",
			build: func(g *graph) uint32 {
				return g.add(format.OpConstInt, 42)
			},
			kind: errors.KindInvalidConstantIndex,
		},
		{
			name: "cycle",
			build: func(g *graph) uint32 {
				g.p.AddNode(format.NewNode(format.OpNot, 300).WithArgs(301))
				g.p.AddNode(format.NewNode(format.OpNot, 301).WithArgs(300))
				return 300
			},
			kind: errors.KindCycle,
		},
		{
			name: "missing entry",
			build: func(g *graph) uint32 {
				g.i64(1)
				return 999
			},
			kind: errors.KindInvalidNodeRef,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGraph()
			g.p.SetEntryPoint(tt.build(g))
			_, err := wasmgen.Lower(g.p)
			if !errors.IsKind(err, tt.kind) {
				t.Fatalf("Lower = %v, want %s", err, tt.kind)
			}
			if errors.KindOf(err) != tt.kind {
				t.Errorf("KindOf = %s", errors.KindOf(err))
			}
		})
	}
}

func TestLowerable(t *testing.T) {
	if !wasmgen.Lowerable(format.OpBranch) || wasmgen.Lowerable(format.OpCall) {
		t.Error("Lowerable disagrees with the supported subset")
	}
}
