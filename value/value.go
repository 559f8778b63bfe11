// Package value defines the runtime values produced by graph evaluation.
//
// Value is a closed tagged union. Arrays and maps are value types: the
// mutating helpers (Array.Set, Map.With) return a new container and never
// alias the receiver.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant of a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindMap
	KindFunction
	KindNodeRef
	KindMemoryRef
	KindAsyncHandle
)

var kindNames = [...]string{
	KindNil:         "nil",
	KindBool:        "bool",
	KindInt:         "int",
	KindFloat:       "float",
	KindString:      "string",
	KindArray:       "array",
	KindMap:         "map",
	KindFunction:    "function",
	KindNodeRef:     "noderef",
	KindMemoryRef:   "memoryref",
	KindAsyncHandle: "asynchandle",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a runtime value.
type Value interface {
	Kind() Kind
	String() string
}

// Nil is the absence of a value.
type Nil struct{}

// Bool is a boolean value.
type Bool bool

// Int is a 64-bit signed integer.
type Int int64

// Float is a 64-bit IEEE-754 number.
type Float float64

// String is a UTF-8 string.
type String string

// Array is an ordered sequence of values.
type Array []Value

// Map is a string-keyed mapping.
type Map map[string]Value

// Function is a callable graph fragment rooted at NodeID.
type Function struct {
	Captured map[uint32]Value
	NodeID   uint32
	Arity    int
}

// NodeRef names a node by result id.
type NodeRef uint32

// MemoryRef points into the heap.
type MemoryRef struct {
	Address uint64
	Offset  uint64
}

// Awaitable is the identity of an asynchronous computation.
type Awaitable interface {
	ID() uint64
}

// AsyncHandle wraps an in-flight asynchronous computation.
type AsyncHandle struct {
	Handle Awaitable
}

func (Nil) Kind() Kind { return KindNil }
func (Bool) Kind() Kind { return KindBool }
func (Int) Kind() Kind { return KindInt }
func (Float) Kind() Kind { return KindFloat }
func (String) Kind() Kind { return KindString }
func (Array) Kind() Kind { return KindArray }
func (Map) Kind() Kind { return KindMap }
func (*Function) Kind() Kind { return KindFunction }
func (NodeRef) Kind() Kind { return KindNodeRef }
func (MemoryRef) Kind() Kind { return KindMemoryRef }
func (AsyncHandle) Kind() Kind { return KindAsyncHandle }

func (Nil) String() string { return "nil" }

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// String formats the float in shortest round-trip form without exponent.
func (f Float) String() string {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (s String) String() string { return string(s) }

func (a Array) String() string {
	parts := make([]string, len(a))
	for i, v := range a {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// String renders entries sorted by key so output is deterministic.
func (m Map) String() string {
	keys := m.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + m[k].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (f *Function) String() string { return fmt.Sprintf("<function:%d>", f.NodeID) }

func (r NodeRef) String() string { return fmt.Sprintf("<node:%d>", uint32(r)) }

func (r MemoryRef) String() string { return fmt.Sprintf("<memory:0x%x+%d>", r.Address, r.Offset) }

func (h AsyncHandle) String() string {
	if h.Handle == nil {
		return "<async:?>"
	}
	return fmt.Sprintf("<async:%d>", h.Handle.ID())
}

// Keys returns the map keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set returns a copy of a with index i replaced.
// The caller is responsible for bounds checking.
func (a Array) Set(i int, v Value) Array {
	out := make(Array, len(a))
	copy(out, a)
	out[i] = v
	return out
}

// With returns a copy of m with key bound to v.
func (m Map) With(key string, v Value) Map {
	out := make(Map, len(m)+1)
	for k, e := range m {
		out[k] = e
	}
	out[key] = v
	return out
}

// Truthy reports the boolean interpretation of v.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil, Nil:
		return false
	case Bool:
		return bool(x)
	case Int:
		return x != 0
	case Float:
		return x != 0
	case String:
		return x != ""
	case Array:
		return len(x) > 0
	case Map:
		return len(x) > 0
	default:
		return true
	}
}

// Equal reports structural equality.
// Floats compare within machine epsilon. Functions, memory references and
// async handles never compare equal.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Int:
		y, ok := b.(Int)
		return ok && x == y
	case Float:
		y, ok := b.(Float)
		return ok && math.Abs(float64(x)-float64(y)) < epsilon
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Map:
		y, ok := b.(Map)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	case NodeRef:
		y, ok := b.(NodeRef)
		return ok && x == y
	}
	return false
}

// epsilon is the difference between 1.0 and the next representable float64.
const epsilon = 2.220446049250313e-16

// Number returns v as a float64 when v is an Int or Float.
func Number(v Value) (float64, bool) {
	switch x := v.(type) {
	case Int:
		return float64(x), true
	case Float:
		return float64(x), true
	}
	return 0, false
}

// TypeName returns the kind name of v, treating a nil interface as nil.
func TypeName(v Value) string {
	if v == nil {
		return KindNil.String()
	}
	return v.Kind().String()
}
