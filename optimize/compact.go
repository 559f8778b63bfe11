package optimize

import "github.com/wippyai/der-runtime/format"

// CompactConstants drops constant pool entries no node refers to and
// renumbers the rest in their original order. A pool referenced with an
// out-of-range index is left untouched. It returns the number of entries
// dropped.
func CompactConstants(p *format.Program) int {
	pools := []struct {
		op  format.OpCode
		len int
		set func(keep []uint32)
	}{
		{format.OpConstInt, len(p.Constants.Ints), func(keep []uint32) {
			p.Constants.Ints = pick(p.Constants.Ints, keep)
		}},
		{format.OpConstFloat, len(p.Constants.Floats), func(keep []uint32) {
			p.Constants.Floats = pick(p.Constants.Floats, keep)
		}},
		{format.OpConstString, len(p.Constants.Strings), func(keep []uint32) {
			p.Constants.Strings = pick(p.Constants.Strings, keep)
		}},
		{format.OpConstBool, len(p.Constants.Bools), func(keep []uint32) {
			p.Constants.Bools = pick(p.Constants.Bools, keep)
		}},
	}

	dropped := 0
	for _, pool := range pools {
		used := make([]bool, pool.len)
		valid := true
		for _, n := range p.Nodes {
			if n.OpCode != pool.op || n.ArgCount == 0 {
				continue
			}
			if int(n.Args[0]) >= pool.len {
				valid = false
				break
			}
			used[n.Args[0]] = true
		}
		if !valid {
			continue
		}

		remap := make([]uint32, pool.len)
		var keep []uint32
		for i, u := range used {
			if u {
				remap[i] = uint32(len(keep))
				keep = append(keep, uint32(i))
			}
		}
		if len(keep) == pool.len {
			continue
		}

		for i := range p.Nodes {
			if n := &p.Nodes[i]; n.OpCode == pool.op && n.ArgCount > 0 {
				n.Args[0] = remap[n.Args[0]]
			}
		}
		pool.set(keep)
		dropped += pool.len - len(keep)
	}
	return dropped
}

func pick[T any](s []T, keep []uint32) []T {
	out := make([]T, len(keep))
	for i, k := range keep {
		out[i] = s[k]
	}
	return out
}
