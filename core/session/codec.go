package session

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// ErrShortBuffer is returned by Reader methods when the underlying buffer
// does not contain enough bytes for the requested primitive.
var ErrShortBuffer = errors.New("session: short buffer")

// Writer builds the binary encoding of a session value. It wraps a small,
// fixed set of primitives (u8/u32/u64/length-prefixed bytes) rather than a
// general-purpose serialization format, matching the wire contract the
// container defines for its own session values.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteU8 appends a single byte.
func (w *Writer) WriteU8(v uint8) {
	w.buf.WriteByte(v)
}

// WriteU32 appends v as 4 big-endian bytes.
func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// WriteU64 appends v as 8 big-endian bytes.
func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// WriteBytes appends a u32 length prefix followed by b.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteU32(uint32(len(b)))
	w.buf.Write(b)
}

// WriteString appends s as length-prefixed bytes.
func (w *Writer) WriteString(s string) {
	w.WriteBytes([]byte(s))
}

// Bytes returns the encoded value.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Reader decodes a value previously produced by Writer.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps b for sequential decoding.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU32 reads 4 big-endian bytes.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadU64 reads 8 big-endian bytes.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadBytes reads a u32 length prefix followed by that many bytes.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

// ReadString reads a length-prefixed byte string as a string.
func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Remaining reports how many undecoded bytes are left.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// EncodeUint32 is a ready-made Writer-based encoder for uint32 session
// values, the shape used by the "session set/get" scenario.
func EncodeUint32(v uint32) []byte {
	w := NewWriter()
	w.WriteU32(v)
	return w.Bytes()
}

// DecodeUint32 decodes a value produced by EncodeUint32.
func DecodeUint32(b []byte) (uint32, error) {
	return NewReader(b).ReadU32()
}

// EncodeString is a ready-made Writer-based encoder for string session
// values.
func EncodeString(v string) []byte {
	w := NewWriter()
	w.WriteString(v)
	return w.Bytes()
}

// DecodeString decodes a value produced by EncodeString.
func DecodeString(b []byte) (string, error) {
	return NewReader(b).ReadString()
}
