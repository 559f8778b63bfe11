package format

import (
	"fmt"
	"io"

	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/internal/binary"
)

// Encode serializes p to the container format.
// The encoder always emits DefaultChunkCount chunks (META, IMPL, CNST) and
// records that count in p.Header.ChunkCount, so a program decoded from a
// file with extra chunks is normalized by re-encoding. Chunk checksums are
// written as zero.
func Encode(p *Program) ([]byte, error) {
	w := binary.NewWriter()

	for i, n := range p.Nodes {
		if n.ArgCount > MaxArgs {
			return nil, errors.InvalidData(errors.PhaseEncode,
				[]string{"IMPL", fmt.Sprintf("node[%d]", i)},
				fmt.Sprintf("arg count %d exceeds %d", n.ArgCount, MaxArgs))
		}
	}

	p.Header.ChunkCount = DefaultChunkCount
	writeHeader(w, p.Header)
	writeChunk(w, ChunkMeta, encodeMetadata(&p.Metadata))
	writeChunk(w, ChunkImpl, encodeNodes(p.Nodes))
	writeChunk(w, ChunkConst, encodeConstants(&p.Constants))

	return w.Bytes(), nil
}

// Write serializes p to dst.
func Write(dst io.Writer, p *Program) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	if _, err := dst.Write(data); err != nil {
		return errors.IO(errors.PhaseEncode, err)
	}
	return nil
}

func writeHeader(w *binary.Writer, h Header) {
	w.WriteBytes(h.Magic[:])
	w.WriteU16LE(h.Version)
	w.WriteU16LE(h.Flags)
	w.WriteU32LE(h.ChunkCount)
	w.WriteBytes(h.Reserved[:])
}

func writeChunk(w *binary.Writer, tag [4]byte, payload []byte) {
	w.WriteBytes(tag[:])
	w.WriteU32LE(uint32(len(payload)))
	w.WriteU32LE(0) // flags
	w.WriteU32LE(0) // checksum
	w.WriteBytes(payload)
}

func encodeMetadata(m *Metadata) []byte {
	w := binary.NewWriter()
	w.WriteU32LE(m.EntryPoint)

	w.WriteU32LE(uint32(len(m.Capabilities)))
	for _, c := range m.Capabilities {
		w.WriteU32LE(uint32(c))
	}

	w.WriteU32LE(uint32(len(m.Traits)))
	for _, t := range m.Traits {
		w.WriteString(t.Name)
		writeStrings(w, t.Preconditions)
		writeStrings(w, t.Postconditions)
	}
	return w.Bytes()
}

func writeStrings(w *binary.Writer, ss []string) {
	w.WriteU32LE(uint32(len(ss)))
	for _, s := range ss {
		w.WriteString(s)
	}
}

func encodeNodes(nodes []Node) []byte {
	w := binary.NewWriter()
	for _, n := range nodes {
		writeNode(w, n)
	}
	return w.Bytes()
}

// writeNode emits exactly NodeWireSize bytes.
func writeNode(w *binary.Writer, n Node) {
	w.WriteU16LE(uint16(n.OpCode))
	w.WriteU16LE(uint16(n.Flags))
	w.WriteU32LE(n.ResultID)
	w.WriteU64LE(n.Timestamp)
	w.Byte(n.ArgCount)
	for _, a := range n.Args {
		w.WriteU32LE(a)
	}
}

func encodeConstants(c *ConstantPool) []byte {
	w := binary.NewWriter()

	w.WriteU32LE(uint32(len(c.Ints)))
	for _, v := range c.Ints {
		w.WriteI64LE(v)
	}

	w.WriteU32LE(uint32(len(c.Floats)))
	for _, v := range c.Floats {
		w.WriteF64LE(v)
	}

	writeStrings(w, c.Strings)

	w.WriteU32LE(uint32(len(c.Bools)))
	for _, v := range c.Bools {
		if v {
			w.Byte(1)
		} else {
			w.Byte(0)
		}
	}
	return w.Bytes()
}
