package format

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/der-runtime/errors"
	"github.com/wippyai/der-runtime/internal/binary"
)

// Decode parses a container held in memory.
func Decode(data []byte) (*Program, error) {
	return Read(bytes.NewReader(data))
}

// Read parses a container from r.
// Exactly Header.ChunkCount chunks are consumed; unknown chunk tags are
// skipped by size. No partial program is returned on error.
func Read(r io.Reader) (*Program, error) {
	br := binary.NewReader(r)

	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	if h.Version != Version {
		Logger().Warn("unexpected container version",
			zap.Uint16("version", h.Version),
			zap.Uint16("supported", Version))
	}

	p := &Program{Header: h}
	for i := uint32(0); i < h.ChunkCount; i++ {
		if err := readChunk(br, p, i); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func readHeader(r *binary.Reader) (Header, error) {
	var h Header

	magic, err := r.ReadBytes(4)
	if err != nil {
		return h, decodeErr(r, []string{"header", "magic"}, err)
	}
	copy(h.Magic[:], magic)
	if h.Magic != Magic {
		return h, errors.BadMagic(magic)
	}

	if h.Version, err = r.ReadU16(); err != nil {
		return h, decodeErr(r, []string{"header", "version"}, err)
	}
	if h.Flags, err = r.ReadU16(); err != nil {
		return h, decodeErr(r, []string{"header", "flags"}, err)
	}
	if h.ChunkCount, err = r.ReadU32(); err != nil {
		return h, decodeErr(r, []string{"header", "chunk_count"}, err)
	}
	reserved, err := r.ReadBytes(4)
	if err != nil {
		return h, decodeErr(r, []string{"header", "reserved"}, err)
	}
	copy(h.Reserved[:], reserved)
	return h, nil
}

func readChunk(r *binary.Reader, p *Program, index uint32) error {
	path := []string{fmt.Sprintf("chunk[%d]", index)}

	tagBytes, err := r.ReadBytes(4)
	if err != nil {
		return decodeErr(r, path, err)
	}
	var tag [4]byte
	copy(tag[:], tagBytes)

	size, err := r.ReadU32()
	if err != nil {
		return decodeErr(r, path, err)
	}
	// flags and checksum are carried on the wire but never interpreted
	if _, err := r.ReadU32(); err != nil {
		return decodeErr(r, path, err)
	}
	if _, err := r.ReadU32(); err != nil {
		return decodeErr(r, path, err)
	}

	switch tag {
	case ChunkMeta, ChunkImpl, ChunkConst:
	default:
		Logger().Debug("skipping chunk",
			zap.String("tag", string(tag[:])),
			zap.Uint32("size", size))
		if err := r.Skip(uint64(size)); err != nil {
			return decodeErr(r, []string{string(tag[:])}, err)
		}
		return nil
	}

	payload, err := r.ReadBytes(uint64(size))
	if err != nil {
		return decodeErr(r, []string{string(tag[:])}, err)
	}
	cr := binary.NewReader(bytes.NewReader(payload))

	switch tag {
	case ChunkMeta:
		return readMetadata(cr, &p.Metadata)
	case ChunkImpl:
		return readNodes(cr, size, p)
	default:
		return readConstants(cr, &p.Constants)
	}
}

func readMetadata(r *binary.Reader, m *Metadata) error {
	var err error
	if m.EntryPoint, err = r.ReadU32(); err != nil {
		return decodeErr(r, []string{"META", "entry_point"}, err)
	}

	count, err := r.ReadU32()
	if err != nil {
		return decodeErr(r, []string{"META", "capabilities"}, err)
	}
	for i := uint32(0); i < count; i++ {
		id, err := r.ReadU32()
		if err != nil {
			return decodeErr(r, []string{"META", "capabilities"}, err)
		}
		c := Capability(id)
		if !c.Valid() {
			Logger().Debug("skipping unknown capability", zap.Uint32("id", id))
			continue
		}
		m.Capabilities = append(m.Capabilities, c)
	}

	count, err = r.ReadU32()
	if err != nil {
		return decodeErr(r, []string{"META", "traits"}, err)
	}
	for i := uint32(0); i < count; i++ {
		var t Trait
		path := []string{"META", fmt.Sprintf("trait[%d]", i)}
		if t.Name, err = r.ReadString(); err != nil {
			return decodeErr(r, append(path, "name"), err)
		}
		if t.Preconditions, err = readStrings(r); err != nil {
			return decodeErr(r, append(path, "preconditions"), err)
		}
		if t.Postconditions, err = readStrings(r); err != nil {
			return decodeErr(r, append(path, "postconditions"), err)
		}
		m.Traits = append(m.Traits, t)
	}
	return nil
}

func readStrings(r *binary.Reader) ([]string, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	var out []string
	for i := uint32(0); i < count; i++ {
		s, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// readNodes derives the record count from the wire record size.
func readNodes(r *binary.Reader, size uint32, p *Program) error {
	if size%NodeWireSize != 0 {
		return errors.InvalidData(errors.PhaseDecode, []string{"IMPL"},
			fmt.Sprintf("size %d is not a multiple of the %d-byte node record", size, NodeWireSize))
	}
	count := size / NodeWireSize
	p.Nodes = make([]Node, 0, count)
	for i := uint32(0); i < count; i++ {
		n, err := readNode(r)
		if err != nil {
			return decodeErr(r, []string{"IMPL", fmt.Sprintf("node[%d]", i)}, err)
		}
		p.Nodes = append(p.Nodes, n)
	}
	return nil
}

func readNode(r *binary.Reader) (Node, error) {
	var n Node
	op, err := r.ReadU16()
	if err != nil {
		return n, err
	}
	n.OpCode = OpCode(op)
	flags, err := r.ReadU16()
	if err != nil {
		return n, err
	}
	n.Flags = NodeFlags(flags)
	if n.ResultID, err = r.ReadU32(); err != nil {
		return n, err
	}
	if n.Timestamp, err = r.ReadU64(); err != nil {
		return n, err
	}
	if n.ArgCount, err = r.ReadU8(); err != nil {
		return n, err
	}
	for i := range n.Args {
		if n.Args[i], err = r.ReadU32(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func readConstants(r *binary.Reader, c *ConstantPool) error {
	count, err := r.ReadU32()
	if err != nil {
		return decodeErr(r, []string{"CNST", "ints"}, err)
	}
	for i := uint32(0); i < count; i++ {
		v, err := r.ReadI64()
		if err != nil {
			return decodeErr(r, []string{"CNST", "ints"}, err)
		}
		c.Ints = append(c.Ints, v)
	}

	if count, err = r.ReadU32(); err != nil {
		return decodeErr(r, []string{"CNST", "floats"}, err)
	}
	for i := uint32(0); i < count; i++ {
		v, err := r.ReadF64()
		if err != nil {
			return decodeErr(r, []string{"CNST", "floats"}, err)
		}
		c.Floats = append(c.Floats, v)
	}

	if c.Strings, err = readStrings(r); err != nil {
		return decodeErr(r, []string{"CNST", "strings"}, err)
	}

	if count, err = r.ReadU32(); err != nil {
		return decodeErr(r, []string{"CNST", "bools"}, err)
	}
	for i := uint32(0); i < count; i++ {
		v, err := r.ReadU8()
		if err != nil {
			return decodeErr(r, []string{"CNST", "bools"}, err)
		}
		c.Bools = append(c.Bools, v != 0)
	}
	return nil
}

// decodeErr maps reader failures onto the decode error kinds.
func decodeErr(r *binary.Reader, path []string, err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return err
	}
	switch {
	case stderrors.Is(err, binary.ErrInvalidUTF8):
		return errors.New(errors.PhaseDecode, errors.KindInvalidUTF8).
			Path(path...).
			Detail("invalid UTF-8 sequence").
			Cause(err).
			Build()
	case binary.IsEOF(err):
		return errors.Truncated(path, r.WrapError(path[0], err))
	default:
		return errors.New(errors.PhaseDecode, errors.KindIO).
			Path(path...).
			Cause(err).
			Build()
	}
}
