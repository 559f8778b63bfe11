package format

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/wippyai/der-runtime/errors"
)

// Validate checks the static well-formedness of p and returns every problem
// found, combined with multierr.
//
// References to ids that are not nodes are allowed: call frames bind
// positional locals and hosts pre-populate argument slots.
func Validate(p *Program) error {
	var errs error

	seen := make(map[uint32]bool, len(p.Nodes))
	for i, n := range p.Nodes {
		path := []string{fmt.Sprintf("node[%d]", i)}

		if !n.OpCode.Known() {
			errs = multierr.Append(errs, errors.New(errors.PhaseValidate, errors.KindUnknownOpcode).
				Path(path...).
				Value(uint16(n.OpCode)).
				Detail("unknown opcode 0x%04X", uint16(n.OpCode)).
				Build())
		}
		if n.ArgCount > MaxArgs {
			errs = multierr.Append(errs, errors.New(errors.PhaseValidate, errors.KindInvalidArgCount).
				Path(path...).
				Expected(fmt.Sprintf("at most %d arguments", MaxArgs)).
				Actual(fmt.Sprintf("%d", n.ArgCount)).
				Build())
		}
		if n.ResultID == 0 {
			errs = multierr.Append(errs, errors.InvalidData(errors.PhaseValidate, path,
				"result id 0 is reserved for empty argument slots"))
		}
		if seen[n.ResultID] {
			errs = multierr.Append(errs, errors.DuplicateNode(n.ResultID))
		}
		seen[n.ResultID] = true
	}

	if !seen[p.Metadata.EntryPoint] {
		errs = multierr.Append(errs, errors.New(errors.PhaseValidate, errors.KindInvalidNodeRef).
			Path("META", "entry_point").
			Value(p.Metadata.EntryPoint).
			Detail("entry point %d names no node", p.Metadata.EntryPoint).
			Build())
	}

	for _, id := range findCycles(p) {
		errs = multierr.Append(errs, errors.Cycle(errors.PhaseValidate, id))
	}

	return errs
}

// EvalEdges returns the result ids a node evaluates when it runs.
// Constant pool indices and the raw operands of DefineFunc are not edges;
// CreateClosure evaluates only its function operand.
func EvalEdges(n Node) []uint32 {
	switch {
	case n.OpCode.IsConst(), n.OpCode == OpDefineFunc, n.OpCode == OpCreateMap:
		return nil
	case n.OpCode == OpCreateClosure:
		if n.ArgCount == 0 || n.Args[0] == 0 {
			return nil
		}
		return []uint32{n.Args[0]}
	}
	var out []uint32
	for _, a := range n.Operands() {
		if a != 0 {
			out = append(out, a)
		}
	}
	return out
}

// callLocals is the highest positional local a Call can bind: the callee
// takes one slot, leaving MaxArgs-1 for arguments.
const callLocals = MaxArgs - 1

// findCycles returns one node id per cycle over evaluation edges,
// in first-visit order. Inside function bodies, ids 1..callLocals may name
// call-frame locals rather than nodes, so edges to them are not followed.
func findCycles(p *Program) []uint32 {
	const (
		unvisited = iota
		active
		done
	)

	idx := p.Index()
	body := functionBodies(p, idx)
	state := make(map[uint32]int, len(idx))
	var cycles []uint32

	var visit func(id uint32)
	visit = func(id uint32) {
		state[id] = active
		for _, dep := range EvalEdges(p.Nodes[idx[id]]) {
			if _, ok := idx[dep]; !ok {
				continue
			}
			if body[id] && dep <= callLocals {
				continue
			}
			switch state[dep] {
			case unvisited:
				visit(dep)
			case active:
				cycles = append(cycles, dep)
			}
		}
		state[id] = done
	}

	for _, n := range p.Nodes {
		if state[n.ResultID] == unvisited {
			visit(n.ResultID)
		}
	}
	return cycles
}

// functionBodies returns the nodes reachable from a DefineFunc body without
// passing through an id that could be a call-frame local.
func functionBodies(p *Program, idx map[uint32]int) map[uint32]bool {
	body := make(map[uint32]bool)
	var stack []uint32
	for _, n := range p.Nodes {
		if n.OpCode == OpDefineFunc && n.ArgCount > 0 {
			stack = append(stack, n.Args[0])
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		i, ok := idx[id]
		if !ok || body[id] {
			continue
		}
		body[id] = true
		for _, dep := range EvalEdges(p.Nodes[i]) {
			if dep > callLocals {
				stack = append(stack, dep)
			}
		}
	}
	return body
}
