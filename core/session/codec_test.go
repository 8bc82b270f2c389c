package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-rustlet/rustlet/core/session"
)

func TestWriterReaderPrimitives(t *testing.T) {
	t.Parallel()

	w := session.NewWriter()
	w.WriteU8(7)
	w.WriteU32(0xdeadbeef)
	w.WriteU64(0x0102030405060708)
	w.WriteBytes([]byte("hello"))
	w.WriteString("world")

	r := session.NewReader(w.Bytes())

	u8, err := r.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(7), u8)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), u32)

	u64, err := r.ReadU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)

	b, err := r.ReadBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b)

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "world", s)

	assert.Equal(t, 0, r.Remaining())
}

func TestReaderShortBuffer(t *testing.T) {
	t.Parallel()

	r := session.NewReader([]byte{1, 2})
	_, err := r.ReadU32()
	assert.ErrorIs(t, err, session.ErrShortBuffer)
}

func TestEncodeDecodeUint32(t *testing.T) {
	t.Parallel()

	b := session.EncodeUint32(42)
	v, err := session.DecodeUint32(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)
}
