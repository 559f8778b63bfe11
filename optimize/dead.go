package optimize

import "github.com/wippyai/der-runtime/format"

// EliminateDeadNodes removes every node the entry point cannot reach.
// Function bodies named by DefineFunc and values captured by CreateClosure
// count as reachable. A program whose entry point names no node is left
// unchanged. It returns the number of nodes removed.
func EliminateDeadNodes(p *format.Program) int {
	idx := p.Index()
	if _, ok := idx[p.Metadata.EntryPoint]; !ok {
		return 0
	}

	live := map[uint32]bool{}
	stack := []uint32{p.Metadata.EntryPoint}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if live[id] {
			continue
		}
		live[id] = true
		pos, ok := idx[id]
		if !ok {
			continue
		}
		stack = append(stack, refs(p.Nodes[pos])...)
	}

	kept := p.Nodes[:0]
	for _, n := range p.Nodes {
		if live[n.ResultID] {
			kept = append(kept, n)
		}
	}
	removed := len(p.Nodes) - len(kept)
	p.Nodes = kept
	return removed
}
