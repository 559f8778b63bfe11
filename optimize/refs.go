package optimize

import "github.com/wippyai/der-runtime/format"

// refSlots returns the argument positions of n that hold result ids.
// Constant arguments are pool indices and the second DefineFunc argument
// is an arity.
func refSlots(n format.Node) []int {
	switch {
	case n.OpCode.IsConst():
		return nil
	case n.OpCode == format.OpDefineFunc:
		if n.ArgCount == 0 {
			return nil
		}
		return []int{0}
	}
	slots := make([]int, 0, n.ArgCount)
	for i := range n.Operands() {
		slots = append(slots, i)
	}
	return slots
}

// refs returns the non-zero result ids n refers to.
func refs(n format.Node) []uint32 {
	var out []uint32
	for _, i := range refSlots(n) {
		if n.Args[i] != 0 {
			out = append(out, n.Args[i])
		}
	}
	return out
}

// rewrite replaces every reference in p according to to, entry point
// included.
func rewrite(p *format.Program, to map[uint32]uint32) {
	for i := range p.Nodes {
		n := &p.Nodes[i]
		for _, s := range refSlots(*n) {
			if id, ok := to[n.Args[s]]; ok {
				n.Args[s] = id
			}
		}
	}
	if id, ok := to[p.Metadata.EntryPoint]; ok {
		p.Metadata.EntryPoint = id
	}
}
