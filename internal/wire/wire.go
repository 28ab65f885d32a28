// Package wire encodes the scalar primitives every remote-control message is
// built from. All multi-byte values are big-endian. Strings are a 4-byte
// signed length (in bytes) followed by that many UTF-8 bytes.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// MaxStringLen caps the byte length of a string on the wire, in both
// directions.
const MaxStringLen = 1 << 20

var (
	// ErrTruncatedInput is matched by every read that ran out of bytes.
	ErrTruncatedInput = errors.New("wire: truncated input")
	// ErrInvalidEncoding is matched by malformed strings, lengths and flags.
	ErrInvalidEncoding = errors.New("wire: invalid encoding")
)

// Field names reported by TruncatedError.
const (
	FieldStringLength = "string length"
	FieldString       = "string"
	FieldInt32        = "int32"
	FieldFloat32      = "float32"
	FieldInt8         = "int8"
	FieldBool         = "bool"
)

// TruncatedError reports a field that ended before all of its bytes arrived.
// Got is 0 when the source was already exhausted at the start of the field.
type TruncatedError struct {
	Field string
	Want  int
	Got   int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("wire: truncated %s: got %d of %d bytes", e.Field, e.Got, e.Want)
}

// Is reports ErrTruncatedInput as a match.
func (e *TruncatedError) Is(target error) bool {
	return target == ErrTruncatedInput
}

func (e *TruncatedError) Unwrap() error {
	return io.ErrUnexpectedEOF
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidEncoding}, args...)...)
}

// Writer encodes primitives onto a byte sink.
type Writer struct {
	w   io.Writer
	buf [4]byte
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) write(p []byte) error {
	if _, err := w.w.Write(p); err != nil {
		return fmt.Errorf("wire: write: %w", err)
	}
	return nil
}

// WriteString writes s as a length-prefixed UTF-8 byte sequence.
func (w *Writer) WriteString(s string) error {
	if !utf8.ValidString(s) {
		return invalid("string is not valid UTF-8")
	}
	if len(s) > MaxStringLen {
		return invalid("string length %d exceeds %d", len(s), MaxStringLen)
	}
	if err := w.WriteInt32(int32(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	return w.write([]byte(s))
}

// WriteInt32 writes v as 4 big-endian bytes.
func (w *Writer) WriteInt32(v int32) error {
	binary.BigEndian.PutUint32(w.buf[:], uint32(v))
	return w.write(w.buf[:4])
}

// WriteFloat32 writes the IEEE-754 bit pattern of v as 4 big-endian bytes.
func (w *Writer) WriteFloat32(v float32) error {
	binary.BigEndian.PutUint32(w.buf[:], math.Float32bits(v))
	return w.write(w.buf[:4])
}

// WriteInt8 writes v as a single byte.
func (w *Writer) WriteInt8(v int8) error {
	w.buf[0] = byte(v)
	return w.write(w.buf[:1])
}

// WriteBool writes 1 for true and 0 for false.
func (w *Writer) WriteBool(v bool) error {
	w.buf[0] = 0
	if v {
		w.buf[0] = 1
	}
	return w.write(w.buf[:1])
}

// Reader decodes primitives from a byte source. It never reads past the
// bytes of the field being decoded.
type Reader struct {
	r   io.Reader
	buf [4]byte
}

// NewReader returns a Reader that reads from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (r *Reader) fill(field string, p []byte) error {
	n, err := io.ReadFull(r.r, p)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &TruncatedError{Field: field, Want: len(p), Got: n}
	}
	return fmt.Errorf("wire: read %s: %w", field, err)
}

// ReadString reads a length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.readInt32(FieldStringLength)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", invalid("negative string length %d", n)
	}
	if n > MaxStringLen {
		return "", invalid("string length %d exceeds %d", n, MaxStringLen)
	}
	if n == 0 {
		return "", nil
	}
	data := make([]byte, n)
	if err := r.fill(FieldString, data); err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", invalid("string of %d bytes is not valid UTF-8", n)
	}
	return string(data), nil
}

// ReadInt32 reads 4 big-endian bytes as a signed integer.
func (r *Reader) ReadInt32() (int32, error) {
	return r.readInt32(FieldInt32)
}

func (r *Reader) readInt32(field string) (int32, error) {
	if err := r.fill(field, r.buf[:4]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(r.buf[:4])), nil
}

// ReadFloat32 reads 4 big-endian bytes as an IEEE-754 float.
func (r *Reader) ReadFloat32() (float32, error) {
	if err := r.fill(FieldFloat32, r.buf[:4]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(r.buf[:4])), nil
}

// ReadInt8 reads a single signed byte.
func (r *Reader) ReadInt8() (int8, error) {
	if err := r.fill(FieldInt8, r.buf[:1]); err != nil {
		return 0, err
	}
	return int8(r.buf[0]), nil
}

// ReadBool reads a single byte that must be 0 or 1.
func (r *Reader) ReadBool() (bool, error) {
	if err := r.fill(FieldBool, r.buf[:1]); err != nil {
		return false, err
	}
	switch r.buf[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, invalid("bool byte 0x%02x", r.buf[0])
}
