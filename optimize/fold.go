package optimize

import (
	"github.com/wippyai/der-runtime/engine"
	"github.com/wippyai/der-runtime/format"
	"github.com/wippyai/der-runtime/value"
)

// exactLimit bounds folded operands and results. Strictly inside it the
// interpreter's float-backed arithmetic is exact.
const exactLimit = 1 << 53

var foldable = map[format.OpCode]func(a, b float64) float64{
	format.OpAdd: func(a, b float64) float64 { return a + b },
	format.OpSub: func(a, b float64) float64 { return a - b },
	format.OpMul: func(a, b float64) float64 { return a * b },
}

// FoldConstants replaces Add, Sub and Mul nodes whose two operands are
// ConstInt nodes with a ConstInt holding the result. Folds cascade, so a
// chain of constant arithmetic collapses to one constant. It returns the
// number of nodes folded.
func FoldConstants(p *format.Program) int {
	idx := p.Index()
	consts := make(map[uint32]int64)
	for i, n := range p.Nodes {
		if n.OpCode != format.OpConstInt || idx[n.ResultID] != i || n.ArgCount == 0 {
			continue
		}
		if v, ok := p.Constants.GetInt(n.Args[0]); ok {
			consts[n.ResultID] = v
		}
	}

	folded := 0
	for changed := true; changed; {
		changed = false
		for i, n := range p.Nodes {
			op, ok := foldable[n.OpCode]
			if !ok || n.ArgCount != 2 || idx[n.ResultID] != i {
				continue
			}
			a, okA := consts[n.Args[0]]
			b, okB := consts[n.Args[1]]
			if !okA || !okB || !exact(a) || !exact(b) {
				continue
			}
			r, err := engine.Arithmetic(value.Int(a), value.Int(b), op)
			if err != nil {
				continue
			}
			result, ok := r.(value.Int)
			if !ok || !exact(int64(result)) {
				continue
			}

			n.OpCode = format.OpConstInt
			p.Nodes[i] = n.WithArgs(p.Constants.AddInt(int64(result)))
			consts[n.ResultID] = int64(result)
			folded++
			changed = true
		}
	}
	return folded
}

func exact(v int64) bool {
	return v > -exactLimit && v < exactLimit
}
