package wasmgen

import (
	"sort"

	"github.com/wippyai/der-runtime/internal/binary"
)

// signature is a function type with at most one result.
type signature struct {
	params  []byte
	results []byte
}

type hostImport struct {
	name    string
	typeIdx uint32
}

type global struct {
	valType byte
	init    []byte // constant expression without the trailing end
}

// module is the subset of a core wasm module that lowering produces:
// function imports from env, functions, mutable globals and exports.
type module struct {
	types   []signature
	imports []hostImport
	funcs   []uint32 // type index per defined function
	globals []global
	exports map[string]uint32
	code    [][]byte // instruction bytes per defined function, end included
}

func (m *module) encode() []byte {
	w := binary.NewWriter()
	w.WriteU32LE(wasmMagic)
	w.WriteU32LE(wasmVersion)

	sec := binary.NewWriter()
	sec.WriteU32(uint32(len(m.types)))
	for _, t := range m.types {
		sec.Byte(funcType)
		writeValTypes(sec, t.params)
		writeValTypes(sec, t.results)
	}
	writeSection(w, sectionType, sec.Bytes())

	if len(m.imports) > 0 {
		sec = binary.NewWriter()
		sec.WriteU32(uint32(len(m.imports)))
		for _, imp := range m.imports {
			sec.WriteName(hostModule)
			sec.WriteName(imp.name)
			sec.Byte(kindFunc)
			sec.WriteU32(imp.typeIdx)
		}
		writeSection(w, sectionImport, sec.Bytes())
	}

	sec = binary.NewWriter()
	sec.WriteU32(uint32(len(m.funcs)))
	for _, typeIdx := range m.funcs {
		sec.WriteU32(typeIdx)
	}
	writeSection(w, sectionFunction, sec.Bytes())

	if len(m.globals) > 0 {
		sec = binary.NewWriter()
		sec.WriteU32(uint32(len(m.globals)))
		for _, g := range m.globals {
			sec.Byte(g.valType)
			sec.Byte(globalMut)
			sec.WriteBytes(g.init)
			sec.Byte(globalInit)
		}
		writeSection(w, sectionGlobal, sec.Bytes())
	}

	sec = binary.NewWriter()
	sec.WriteU32(uint32(len(m.exports)))
	for _, name := range sortedNames(m.exports) {
		sec.WriteName(name)
		sec.Byte(kindFunc)
		sec.WriteU32(m.exports[name])
	}
	writeSection(w, sectionExport, sec.Bytes())

	sec = binary.NewWriter()
	sec.WriteU32(uint32(len(m.code)))
	for _, body := range m.code {
		fn := binary.NewWriter()
		fn.WriteU32(0) // no locals
		fn.WriteBytes(body)
		sec.WriteU32(uint32(fn.Len()))
		sec.WriteBytes(fn.Bytes())
	}
	writeSection(w, sectionCode, sec.Bytes())

	return w.Bytes()
}

func writeSection(w *binary.Writer, id byte, data []byte) {
	w.Byte(id)
	w.WriteU32(uint32(len(data)))
	w.WriteBytes(data)
}

func writeValTypes(w *binary.Writer, types []byte) {
	w.WriteU32(uint32(len(types)))
	w.WriteBytes(types)
}

func sortedNames(m map[string]uint32) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
