package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode   Phase = "decode"   // container to Program
	PhaseEncode   Phase = "encode"   // Program to container
	PhaseValidate Phase = "validate" // static program checks
	PhaseRuntime  Phase = "runtime"  // graph execution
	PhaseMemory   Phase = "memory"   // heap manager
	PhaseAsync    Phase = "async"    // async registry
	PhaseLoad     Phase = "load"     // program loading
	PhaseLower    Phase = "lower"    // wasm lowering
	PhaseConfig   Phase = "config"   // configuration files
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch         Kind = "type_mismatch"
	KindInvalidOperation     Kind = "invalid_operation"
	KindUnknownOpcode        Kind = "unknown_opcode"
	KindInvalidNodeRef       Kind = "invalid_node_ref"
	KindDivisionByZero       Kind = "division_by_zero"
	KindInvalidArgCount      Kind = "invalid_arg_count"
	KindMissingCapability    Kind = "missing_capability"
	KindInvalidConstantIndex Kind = "invalid_constant_index"
	KindOutOfBounds          Kind = "out_of_bounds"
	KindKeyNotFound          Kind = "key_not_found"
	KindStackOverflow        Kind = "stack_overflow"
	KindIO                   Kind = "io"
	KindExternalCall         Kind = "external_call"
	KindBadMagic             Kind = "bad_magic"
	KindTruncated            Kind = "truncated"
	KindInvalidUTF8          Kind = "invalid_utf8"
	KindInvalidData          Kind = "invalid_data"
	KindDuplicateNode        Kind = "duplicate_node"
	KindCycle                Kind = "cycle"
	KindUnsupported          Kind = "unsupported"
	KindNotFound             Kind = "not_found"
	KindInvalidInput         Kind = "invalid_input"
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Expected string
	Actual   string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Expected != "" || e.Actual != "" {
		b.WriteString(": expected ")
		b.WriteString(e.Expected)
		b.WriteString(", got ")
		b.WriteString(e.Actual)
	}

	if e.Detail != "" {
		if e.Expected != "" || e.Actual != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return stderrors.Is(err, &Error{Kind: kind})
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Expected sets the expected type name
func (b *Builder) Expected(t string) *Builder {
	b.err.Expected = t
	return b
}

// Actual sets the actual type name
func (b *Builder) Actual(t string) *Builder {
	b.err.Actual = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, expected, actual string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Expected: expected,
		Actual:   actual,
	}
}

// InvalidOperation creates the catch-all invalid operation error
func InvalidOperation(phase Phase, format string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidOperation,
		Detail: fmt.Sprintf(format, args...),
	}
}

// Unimplemented creates the error for a declared opcode that has no handler.
func Unimplemented(name string, code uint16) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInvalidOperation,
		Detail: fmt.Sprintf("opcode %s (0x%04X) not implemented", name, code),
		Value:  code,
	}
}

// UnknownOpcode creates an error for an opcode outside the enumeration
func UnknownOpcode(code uint16) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindUnknownOpcode,
		Detail: fmt.Sprintf("unknown opcode 0x%04X", code),
		Value:  code,
	}
}

// InvalidNodeRef creates an error for an id that names neither a value nor a node
func InvalidNodeRef(phase Phase, id uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidNodeRef,
		Detail: fmt.Sprintf("invalid node reference %d", id),
		Value:  id,
	}
}

// DivisionByZero creates a division by zero error
func DivisionByZero() *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindDivisionByZero,
		Detail: "division by zero",
	}
}

// InvalidArgCount creates an argument count error
func InvalidArgCount(expected, actual int) *Error {
	return &Error{
		Phase:    PhaseRuntime,
		Kind:     KindInvalidArgCount,
		Expected: fmt.Sprintf("%d arguments", expected),
		Actual:   fmt.Sprintf("%d", actual),
		Value:    actual,
	}
}

// MissingCapability creates an error for a capability that was not granted
func MissingCapability(name string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindMissingCapability,
		Detail: fmt.Sprintf("capability %s not granted", name),
		Value:  name,
	}
}

// InvalidConstantIndex creates an error for a constant pool miss
func InvalidConstantIndex(pool string, index uint32) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInvalidConstantIndex,
		Path:   []string{pool},
		Detail: fmt.Sprintf("invalid constant index %d", index),
		Value:  index,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, index int64, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// KeyNotFound creates a missing map key error
func KeyNotFound(key string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindKeyNotFound,
		Detail: fmt.Sprintf("map key %q not found", key),
		Value:  key,
	}
}

// StackOverflow creates a call depth error
func StackOverflow(depth int) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindStackOverflow,
		Detail: fmt.Sprintf("maximum call depth %d exceeded", depth),
		Value:  depth,
	}
}

// IO wraps an I/O failure
func IO(phase Phase, cause error) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindIO,
		Cause: cause,
	}
}

// BadMagic creates an error for a container that does not start with the magic bytes
func BadMagic(got []byte) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindBadMagic,
		Detail: fmt.Sprintf("invalid magic % x", got),
		Value:  got,
	}
}

// Truncated creates an error for a stream that ended early
func Truncated(path []string, cause error) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindTruncated,
		Path:   path,
		Detail: "unexpected end of data",
		Cause:  cause,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// DuplicateNode creates an error for two nodes sharing a result id
func DuplicateNode(id uint32) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindDuplicateNode,
		Detail: fmt.Sprintf("result id %d defined more than once", id),
		Value:  id,
	}
}

// Cycle creates an error for a node that depends on itself
func Cycle(phase Phase, id uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCycle,
		Detail: fmt.Sprintf("node %d depends on itself", id),
		Value:  id,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Load creates a program loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}
