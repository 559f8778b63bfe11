package optimize

import (
	"math"

	"github.com/wippyai/der-runtime/format"
)

type exprKey struct {
	op   format.OpCode
	argc uint8
	args [format.MaxArgs]uint32
	lit  any // constant value; constants are keyed by value, not pool index
}

// EliminateCommonSubexpressions merges pure nodes that compute the same
// thing. Constants merge when their pool values are equal; other pure nodes
// merge when opcode and arguments match and every argument names a node or
// is empty. References to a merged node are rewritten to the surviving
// node, the first in program order. It returns the number of nodes removed.
func EliminateCommonSubexpressions(p *format.Program) int {
	merged := 0
	for {
		idx := p.Index()
		seen := make(map[exprKey]uint32)
		to := make(map[uint32]uint32)
		for i, n := range p.Nodes {
			if idx[n.ResultID] != i || !n.OpCode.IsPure() {
				continue
			}
			k, ok := keyOf(p, n, idx)
			if !ok {
				continue
			}
			if survivor, dup := seen[k]; dup {
				to[n.ResultID] = survivor
				continue
			}
			seen[k] = n.ResultID
		}
		if len(to) == 0 {
			return merged
		}

		rewrite(p, to)
		kept := p.Nodes[:0]
		for _, n := range p.Nodes {
			if _, gone := to[n.ResultID]; !gone {
				kept = append(kept, n)
			}
		}
		p.Nodes = kept
		merged += len(to)
	}
}

func keyOf(p *format.Program, n format.Node, idx map[uint32]int) (exprKey, bool) {
	k := exprKey{op: n.OpCode, argc: n.ArgCount}

	if n.OpCode.IsConst() {
		if n.ArgCount == 0 {
			return k, false
		}
		var ok bool
		switch n.OpCode {
		case format.OpConstInt:
			k.lit, ok = p.Constants.GetInt(n.Args[0])
		case format.OpConstFloat:
			var f float64
			f, ok = p.Constants.GetFloat(n.Args[0])
			k.lit = math.Float64bits(f)
		case format.OpConstString:
			k.lit, ok = p.Constants.GetString(n.Args[0])
		case format.OpConstBool:
			k.lit, ok = p.Constants.GetBool(n.Args[0])
		}
		return k, ok
	}

	for _, s := range refSlots(n) {
		if a := n.Args[s]; a != 0 {
			if _, ok := idx[a]; !ok {
				return k, false
			}
		}
	}
	k.args = n.Args
	return k, true
}
