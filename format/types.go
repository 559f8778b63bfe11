package format

import (
	"fmt"
	"strings"
	"time"
)

// NodeFlags is the advisory bitset carried by every node.
// Execution never consults it.
type NodeFlags uint16

const (
	FlagIsAsync        NodeFlags = 0x0001
	FlagIsPure         NodeFlags = 0x0002
	FlagIsUnsafe       NodeFlags = 0x0004
	FlagHasSideEffects NodeFlags = 0x0008
	FlagIsTerminal     NodeFlags = 0x0010
	FlagIsEntryPoint   NodeFlags = 0x0020
	FlagRequiresProof  NodeFlags = 0x0040
)

var flagNames = []struct {
	flag NodeFlags
	name string
}{
	{FlagIsAsync, "async"},
	{FlagIsPure, "pure"},
	{FlagIsUnsafe, "unsafe"},
	{FlagHasSideEffects, "side-effects"},
	{FlagIsTerminal, "terminal"},
	{FlagIsEntryPoint, "entry"},
	{FlagRequiresProof, "proof"},
}

func (f NodeFlags) String() string {
	if f == 0 {
		return "-"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	if rest := f &^ (FlagRequiresProof<<1 - 1); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%04X", uint16(rest)))
	}
	return strings.Join(parts, "|")
}

// Node is one operation record in the graph.
type Node struct {
	OpCode    OpCode
	Flags     NodeFlags
	ResultID  uint32 // caller-assigned logical name of this node's output
	Timestamp uint64 // creation time in microseconds, informational
	ArgCount  uint8
	Args      [MaxArgs]uint32 // unused slots hold 0
}

// NewNode creates a node stamped with the current time.
func NewNode(op OpCode, resultID uint32) Node {
	return Node{
		OpCode:    op,
		ResultID:  resultID,
		Timestamp: uint64(time.Now().UnixMicro()),
	}
}

// WithArgs returns a copy of n with the given arguments.
// It panics if more than MaxArgs arguments are given.
func (n Node) WithArgs(args ...uint32) Node {
	if len(args) > MaxArgs {
		panic(fmt.Sprintf("format: %s node %d given %d arguments, at most %d fit a record",
			n.OpCode, n.ResultID, len(args), MaxArgs))
	}
	n.Args = [MaxArgs]uint32{}
	copy(n.Args[:], args)
	n.ArgCount = uint8(len(args))
	return n
}

// WithFlags returns a copy of n with flags set.
func (n Node) WithFlags(flags NodeFlags) Node {
	n.Flags |= flags
	return n
}

// HasFlag reports whether flag is set.
func (n Node) HasFlag(flag NodeFlags) bool {
	return n.Flags&flag != 0
}

// Operands returns the used argument slots.
func (n Node) Operands() []uint32 {
	count := int(n.ArgCount)
	if count > MaxArgs {
		count = MaxArgs
	}
	return n.Args[:count]
}

// String renders the node in disassembly form, e.g. "%3 = Add %1, %2".
func (n Node) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%%%d = %s", n.ResultID, n.OpCode)
	for i, a := range n.Operands() {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		if n.OpCode.IsConst() || (n.OpCode == OpDefineFunc && i == 1) {
			fmt.Fprintf(&b, "#%d", a)
		} else {
			fmt.Fprintf(&b, "%%%d", a)
		}
	}
	return b.String()
}

// Header is the fixed 16-byte file header.
type Header struct {
	Magic      [4]byte
	Version    uint16
	Flags      uint16
	ChunkCount uint32
	Reserved   [4]byte
}

// NewHeader returns a header for the current format version.
func NewHeader(chunkCount uint32) Header {
	return Header{
		Magic:      Magic,
		Version:    Version,
		ChunkCount: chunkCount,
	}
}

// Capability is a declared permission tag.
type Capability uint32

const (
	CapFileSystem   Capability = 1
	CapNetwork      Capability = 2
	CapProcess      Capability = 3
	CapUI           Capability = 4
	CapExternalCode Capability = 5
)

var capNames = map[Capability]string{
	CapFileSystem:   "FileSystem",
	CapNetwork:      "Network",
	CapProcess:      "Process",
	CapUI:           "UI",
	CapExternalCode: "ExternalCode",
}

func (c Capability) String() string {
	if name, ok := capNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Capability(%d)", uint32(c))
}

// Valid reports whether c is one of the defined capabilities.
func (c Capability) Valid() bool {
	_, ok := capNames[c]
	return ok
}

// ParseCapability parses a capability name, ignoring case and separators.
func ParseCapability(s string) (Capability, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	for c, name := range capNames {
		if strings.ToLower(name) == norm {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown capability %q", s)
}

// Trait is a documentation annotation attached to a program.
type Trait struct {
	Name           string
	Preconditions  []string
	Postconditions []string
}

// Metadata is the META chunk content.
type Metadata struct {
	EntryPoint   uint32 // result id of the entry node
	Capabilities []Capability
	Traits       []Trait
}

// ConstantPool holds the literal values referenced by constant nodes.
// Indices are assigned in insertion order and never change.
type ConstantPool struct {
	Ints    []int64
	Floats  []float64
	Strings []string
	Bools   []bool
}

// AddInt appends v and returns its index.
func (c *ConstantPool) AddInt(v int64) uint32 {
	c.Ints = append(c.Ints, v)
	return uint32(len(c.Ints) - 1)
}

// AddFloat appends v and returns its index.
func (c *ConstantPool) AddFloat(v float64) uint32 {
	c.Floats = append(c.Floats, v)
	return uint32(len(c.Floats) - 1)
}

// AddString appends v and returns its index.
func (c *ConstantPool) AddString(v string) uint32 {
	c.Strings = append(c.Strings, v)
	return uint32(len(c.Strings) - 1)
}

// AddBool appends v and returns its index.
func (c *ConstantPool) AddBool(v bool) uint32 {
	c.Bools = append(c.Bools, v)
	return uint32(len(c.Bools) - 1)
}

// GetInt returns the entry at index i.
func (c *ConstantPool) GetInt(i uint32) (int64, bool) {
	if uint64(i) >= uint64(len(c.Ints)) {
		return 0, false
	}
	return c.Ints[i], true
}

// GetFloat returns the entry at index i.
func (c *ConstantPool) GetFloat(i uint32) (float64, bool) {
	if uint64(i) >= uint64(len(c.Floats)) {
		return 0, false
	}
	return c.Floats[i], true
}

// GetString returns the entry at index i.
func (c *ConstantPool) GetString(i uint32) (string, bool) {
	if uint64(i) >= uint64(len(c.Strings)) {
		return "", false
	}
	return c.Strings[i], true
}

// GetBool returns the entry at index i.
func (c *ConstantPool) GetBool(i uint32) (bool, bool) {
	if uint64(i) >= uint64(len(c.Bools)) {
		return false, false
	}
	return c.Bools[i], true
}

// Program is a decoded DER container.
type Program struct {
	Header    Header
	Nodes     []Node // insertion order, not sorted by result id
	Constants ConstantPool
	Metadata  Metadata
}

// NewProgram creates an empty program with a current-version header.
func NewProgram() *Program {
	return &Program{Header: NewHeader(DefaultChunkCount)}
}

// AddNode appends n and returns its position in Nodes.
// The position is not a result id; references between nodes and the entry
// point always use ResultID.
func (p *Program) AddNode(n Node) uint32 {
	p.Nodes = append(p.Nodes, n)
	return uint32(len(p.Nodes) - 1)
}

// SetEntryPoint sets the result id evaluated by Execute.
func (p *Program) SetEntryPoint(resultID uint32) {
	p.Metadata.EntryPoint = resultID
}

// RequireCapability records c once.
func (p *Program) RequireCapability(c Capability) {
	for _, existing := range p.Metadata.Capabilities {
		if existing == c {
			return
		}
	}
	p.Metadata.Capabilities = append(p.Metadata.Capabilities, c)
}

// AddTrait appends a documentation trait.
func (p *Program) AddTrait(t Trait) {
	p.Metadata.Traits = append(p.Metadata.Traits, t)
}

// Index maps each result id to the position of its first node.
func (p *Program) Index() map[uint32]int {
	idx := make(map[uint32]int, len(p.Nodes))
	for i, n := range p.Nodes {
		if _, dup := idx[n.ResultID]; !dup {
			idx[n.ResultID] = i
		}
	}
	return idx
}

// Node returns the first node with the given result id.
func (p *Program) Node(resultID uint32) (Node, bool) {
	for _, n := range p.Nodes {
		if n.ResultID == resultID {
			return n, true
		}
	}
	return Node{}, false
}

// MaxResultID returns the largest result id in use.
func (p *Program) MaxResultID() uint32 {
	var highest uint32
	for _, n := range p.Nodes {
		if n.ResultID > highest {
			highest = n.ResultID
		}
	}
	return highest
}

// Clone returns a deep copy of p.
func (p *Program) Clone() *Program {
	out := &Program{
		Header: p.Header,
		Nodes:  append([]Node(nil), p.Nodes...),
		Constants: ConstantPool{
			Ints:    append([]int64(nil), p.Constants.Ints...),
			Floats:  append([]float64(nil), p.Constants.Floats...),
			Strings: append([]string(nil), p.Constants.Strings...),
			Bools:   append([]bool(nil), p.Constants.Bools...),
		},
		Metadata: Metadata{
			EntryPoint:   p.Metadata.EntryPoint,
			Capabilities: append([]Capability(nil), p.Metadata.Capabilities...),
		},
	}
	for _, t := range p.Metadata.Traits {
		out.Metadata.Traits = append(out.Metadata.Traits, Trait{
			Name:           t.Name,
			Preconditions:  append([]string(nil), t.Preconditions...),
			Postconditions: append([]string(nil), t.Postconditions...),
		})
	}
	return out
}
