package raknet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamFixedWidthRoundTrip(t *testing.T) {
	w := NewWriteStream()
	w.WriteUint8(0x42)
	w.WriteUint16BE(1234)
	w.WriteUint24LE(0xABCDEF)
	w.WriteUint32BE(567890)
	w.WriteUint64BE(123456789012)
	w.WriteInt64BE(-42)

	r := NewStream(w.Bytes())
	b, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), b)

	u16, err := r.ReadUint16BE()
	require.NoError(t, err)
	assert.EqualValues(t, 1234, u16)

	u24, err := r.ReadUint24LE()
	require.NoError(t, err)
	assert.EqualValues(t, 0xABCDEF, u24)

	u32, err := r.ReadUint32BE()
	require.NoError(t, err)
	assert.EqualValues(t, 567890, u32)

	u64, err := r.ReadUint64BE()
	require.NoError(t, err)
	assert.EqualValues(t, 123456789012, u64)

	i64, err := r.ReadInt64BE()
	require.NoError(t, err)
	assert.EqualValues(t, -42, i64)

	assert.True(t, r.EOF())
}

func TestStreamVarints(t *testing.T) {
	w := NewWriteStream()
	w.WriteVarUint32(300)
	w.WriteVarInt32(-150)
	w.WriteVarUint64(1 << 40)
	w.WriteString("hello raknet")
	w.WriteByteSlice([]byte{1, 2, 3})

	r := NewStream(w.Bytes())
	vu32, err := r.ReadVarUint32()
	require.NoError(t, err)
	assert.EqualValues(t, 300, vu32)

	vi32, err := r.ReadVarInt32()
	require.NoError(t, err)
	assert.EqualValues(t, -150, vi32)

	vu64, err := r.ReadVarUint64()
	require.NoError(t, err)
	assert.EqualValues(t, 1<<40, vu64)

	str, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hello raknet", str)

	bs, err := r.ReadByteSlice()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, bs)
}

func TestStreamUnderflow(t *testing.T) {
	r := NewStream([]byte{0x01})
	_, err := r.ReadUint32BE()
	assert.Error(t, err)
}

func TestAddressRoundTripIPv4(t *testing.T) {
	w := NewWriteStream()
	endpoint := Endpoint{Version: 4, Host: "192.168.1.10", Port: 19132}
	require.NoError(t, w.WriteEndpoint(endpoint))

	r := NewStream(w.Bytes())
	decoded, err := r.ReadEndpoint()
	require.NoError(t, err)
	assert.Equal(t, endpoint, decoded)
}
