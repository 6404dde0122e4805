package gamepacket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raknet-bedrock/client/pkg/crypto"
)

func TestCodecPlainRoundTrip(t *testing.T) {
	c := NewCodec()
	login := (&RequestNetworkSettingsPacket{ProtocolVersion: 712}).Encode()

	envelope, err := c.EncodeBatch([][]byte{login})
	require.NoError(t, err)

	packets, err := c.DecodeBatch(envelope)
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, login, packets[0])
}

func TestCodecCompressedPlainRoundTrip(t *testing.T) {
	c := NewCodec()
	c.Mode = CompressedPlain
	c.Compressor = NewZlibCompressor(6)

	ping := (&ClientToServerHandshakePacket{}).Encode()
	envelope, err := c.EncodeBatch([][]byte{ping, ping})
	require.NoError(t, err)

	packets, err := c.DecodeBatch(envelope)
	require.NoError(t, err)
	require.Len(t, packets, 2)
}

func TestCodecCompressedEncryptedRoundTrip(t *testing.T) {
	key := crypto.DeriveSessionKey([]byte("salt"), []byte("shared-secret"))
	senderAEAD, err := crypto.NewAEAD(key)
	require.NoError(t, err)
	receiverAEAD, err := crypto.NewAEAD(key)
	require.NoError(t, err)

	sender := &Codec{Mode: CompressedEncrypted, Compressor: SnappyCompressor{}, AEAD: senderAEAD}
	receiver := &Codec{Mode: CompressedEncrypted, Compressor: SnappyCompressor{}, AEAD: receiverAEAD}

	resp := (&ResourcePackClientResponsePacket{Status: ResponseHaveAllPacks}).Encode()
	envelope, err := sender.EncodeBatch([][]byte{resp})
	require.NoError(t, err)

	packets, err := receiver.DecodeBatch(envelope)
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, resp, packets[0])
}

func TestEncodingModeMonotonic(t *testing.T) {
	assert.True(t, Plain.CanAdvanceTo(CompressedPlain))
	assert.True(t, CompressedPlain.CanAdvanceTo(CompressedEncrypted))
	assert.False(t, CompressedEncrypted.CanAdvanceTo(Plain))
	assert.False(t, CompressedPlain.CanAdvanceTo(Plain))
}

func TestPlayStatusDecode(t *testing.T) {
	s := (&PlayStatusPacket{Status: PlayStatusLoginSuccess}).Encode()
	p, err := DecodePlayStatus(s)
	require.NoError(t, err)
	assert.Equal(t, PlayStatusLoginSuccess, p.Status)
}
