package binary

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
)

func TestReaderFixedWidth(t *testing.T) {
	w := NewWriter()
	w.Byte(0xAB)
	w.WriteU16LE(0x0100)
	w.WriteU32LE(0xDEADBEEF)
	w.WriteU64LE(1 << 40)
	w.WriteI64LE(-42)
	w.WriteF64LE(2.5)

	r := NewReader(bytes.NewReader(w.Bytes()))

	u8, err := r.ReadU8()
	if err != nil || u8 != 0xAB {
		t.Fatalf("ReadU8: got 0x%02x, %v", u8, err)
	}
	u16, err := r.ReadU16()
	if err != nil || u16 != 0x0100 {
		t.Fatalf("ReadU16: got 0x%04x, %v", u16, err)
	}
	u32, err := r.ReadU32()
	if err != nil || u32 != 0xDEADBEEF {
		t.Fatalf("ReadU32: got 0x%08x, %v", u32, err)
	}
	u64, err := r.ReadU64()
	if err != nil || u64 != 1<<40 {
		t.Fatalf("ReadU64: got %d, %v", u64, err)
	}
	i64, err := r.ReadI64()
	if err != nil || i64 != -42 {
		t.Fatalf("ReadI64: got %d, %v", i64, err)
	}
	f64, err := r.ReadF64()
	if err != nil || f64 != 2.5 {
		t.Fatalf("ReadF64: got %v, %v", f64, err)
	}

	if r.Position() != int64(w.Len()) {
		t.Errorf("position: got %d, want %d", r.Position(), w.Len())
	}

	_, err = r.ReadU8()
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestLittleEndianLayout(t *testing.T) {
	w := NewWriter()
	w.WriteU16LE(0x0100)
	w.WriteU32LE(3)
	want := []byte{0x00, 0x01, 0x03, 0x00, 0x00, 0x00}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("got % x, want % x", w.Bytes(), want)
	}
}

func TestReaderFloatSpecials(t *testing.T) {
	for _, f := range []float64{math.Inf(1), math.Inf(-1), -0.0, math.MaxFloat64} {
		w := NewWriter()
		w.WriteF64LE(f)
		got, err := NewReader(bytes.NewReader(w.Bytes())).ReadF64()
		if err != nil {
			t.Fatalf("ReadF64(%v): %v", f, err)
		}
		if math.Float64bits(got) != math.Float64bits(f) {
			t.Errorf("ReadF64: got %v, want %v", got, f)
		}
	}

	w := NewWriter()
	w.WriteF64LE(math.NaN())
	got, err := NewReader(bytes.NewReader(w.Bytes())).ReadF64()
	if err != nil || !math.IsNaN(got) {
		t.Errorf("NaN: got %v, %v", got, err)
	}
}

func TestReaderString(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr error
	}{
		{"empty", []byte{0, 0, 0, 0}, "", nil},
		{"ascii", []byte{5, 0, 0, 0, 'h', 'e', 'l', 'l', 'o'}, "hello", nil},
		{"multibyte", []byte{2, 0, 0, 0, 0xC3, 0xA9}, "é", nil},
		{"invalid utf8", []byte{2, 0, 0, 0, 0xFF, 0xFE}, "", ErrInvalidUTF8},
		{"short body", []byte{4, 0, 0, 0, 'a'}, "", io.ErrUnexpectedEOF},
		{"huge length", []byte{0xFF, 0xFF, 0xFF, 0xFF, 'a'}, "", io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewReader(bytes.NewReader(tt.data)).ReadString()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadString: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReaderSkip(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2, 3, 4, 5}))
	if err := r.Skip(3); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	b, err := r.ReadU8()
	if err != nil || b != 4 {
		t.Fatalf("after skip got %d, %v", b, err)
	}
	if err := r.Skip(10); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Skip past end: got %v", err)
	}
}

func TestWriterLEB128(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  []byte
	}{
		{"u32 zero", func(w *Writer) { w.WriteU32(0) }, []byte{0x00}},
		{"u32 127", func(w *Writer) { w.WriteU32(127) }, []byte{0x7f}},
		{"u32 128", func(w *Writer) { w.WriteU32(128) }, []byte{0x80, 0x01}},
		{"u32 624485", func(w *Writer) { w.WriteU32(624485) }, []byte{0xe5, 0x8e, 0x26}},
		{"s64 -1", func(w *Writer) { w.WriteS64(-1) }, []byte{0x7f}},
		{"s64 63", func(w *Writer) { w.WriteS64(63) }, []byte{0x3f}},
		{"s64 64", func(w *Writer) { w.WriteS64(64) }, []byte{0xc0, 0x00}},
		{"s64 -123456", func(w *Writer) { w.WriteS64(-123456) }, []byte{0xc0, 0xbb, 0x78}},
		{"name", func(w *Writer) { w.WriteName("env") }, []byte{0x03, 'e', 'n', 'v'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter()
			tt.write(w)
			if !bytes.Equal(w.Bytes(), tt.want) {
				t.Errorf("got % x, want % x", w.Bytes(), tt.want)
			}
		})
	}
}

func TestParseError(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2}))
	_, _ = r.ReadU8()
	err := r.WrapError("IMPL", io.ErrUnexpectedEOF)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatal("expected ParseError")
	}
	if pe.Position != 1 || pe.Section != "IMPL" {
		t.Errorf("got position %d section %q", pe.Position, pe.Section)
	}
	if !IsEOF(err) {
		t.Error("IsEOF should see through ParseError")
	}
}
