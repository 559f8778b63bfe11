package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when a length-prefixed string is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8 in string")

// Reader wraps an io.Reader with position tracking and little-endian read methods.
type Reader struct {
	r   io.Reader
	pos int64
	buf [8]byte
}

// NewReader creates a new Reader wrapping the given io.Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Position returns the current byte position.
func (r *Reader) Position() int64 {
	return r.pos
}

func (r *Reader) fill(n int) ([]byte, error) {
	got, err := io.ReadFull(r.r, r.buf[:n])
	r.pos += int64(got)
	if err != nil {
		return nil, err
	}
	return r.buf[:n], nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a little-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.fill(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads a little-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadI64 reads a little-endian two's complement int64.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadF64 reads a little-endian IEEE-754 binary64.
func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadBytes reads exactly n bytes.
// The buffer grows with the data actually present, so a corrupt length
// cannot force a large allocation up front.
func (r *Reader) ReadBytes(n uint64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.r, int64(n)))
	r.pos += int64(len(data))
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) != n {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}

// ReadString reads a u32 length followed by that many UTF-8 bytes.
func (r *Reader) ReadString() (string, error) {
	length, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	data, err := r.ReadBytes(uint64(length))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", r.wrapError(ErrInvalidUTF8)
	}
	return string(data), nil
}

// Skip discards n bytes.
func (r *Reader) Skip(n uint64) error {
	got, err := io.CopyN(io.Discard, r.r, int64(n))
	r.pos += got
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (r *Reader) wrapError(err error) error {
	return fmt.Errorf("at position %d: %w", r.pos, err)
}

// ParseError represents an error during binary parsing with position information.
type ParseError struct {
	Err      error
	Section  string
	Position int64
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("der: %s at position %d: %v", e.Section, e.Position, e.Err)
	}
	return fmt.Sprintf("der: at position %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WrapError creates a ParseError with the current position.
func (r *Reader) WrapError(section string, err error) error {
	return &ParseError{
		Position: r.pos,
		Section:  section,
		Err:      err,
	}
}

// IsEOF reports whether err signals a stream that ended early.
func IsEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
