package gamepacket

import (
	"github.com/pkg/errors"

	"github.com/raknet-bedrock/client/pkg/crypto"
	"github.com/raknet-bedrock/client/pkg/raknet"
)

// EncodingMode tracks how the Game envelope (0xFE) is laid out. It only
// ever advances forward, per spec.md §4.E's handshake invariant: Plain
// until NetworkSettings compression is negotiated, CompressedPlain from
// then until the encrypted handshake completes, CompressedEncrypted for
// the remainder of the session.
type EncodingMode byte

const (
	Plain EncodingMode = iota
	CompressedPlain
	CompressedEncrypted
)

// String implements fmt.Stringer for log messages.
func (m EncodingMode) String() string {
	switch m {
	case Plain:
		return "plain"
	case CompressedPlain:
		return "compressed-plain"
	case CompressedEncrypted:
		return "compressed-encrypted"
	default:
		return "unknown"
	}
}

// CanAdvanceTo reports whether transitioning from m to next respects the
// strictly-monotonic ordering spec.md §4.E requires.
func (m EncodingMode) CanAdvanceTo(next EncodingMode) bool {
	return next > m
}

// Codec packs and unpacks the Game envelope body — a batch of one or more
// application packets — according to the session's current EncodingMode.
// AEAD is nil until CompressedEncrypted is reached.
type Codec struct {
	Mode       EncodingMode
	Compressor Compressor
	AEAD       *crypto.AEAD
}

// NewCodec starts a session in Plain mode with no compression negotiated.
func NewCodec() *Codec {
	return &Codec{Mode: Plain, Compressor: NoneCompressor{}}
}

// EncodeBatch packs application packets (each already-serialized,
// including its own leading VarUint packet ID) into one Game-tagged
// envelope ready to hand to the reliability layer as a Frame body.
func (c *Codec) EncodeBatch(packets [][]byte) ([]byte, error) {
	body := NewWriteBatch(packets)

	switch c.Mode {
	case Plain:
		// no-op: body carries the raw batch
	case CompressedPlain, CompressedEncrypted:
		compressed, err := c.Compressor.Compress(body)
		if err != nil {
			return nil, err
		}
		// spec.md §4.F: u8 compression_type precedes the compressed body
		// in both CompressedPlain and CompressedEncrypted.
		body = append([]byte{byte(c.Compressor.Algorithm())}, compressed...)
	}

	if c.Mode == CompressedEncrypted {
		if c.AEAD == nil {
			return nil, errors.New("gamepacket: CompressedEncrypted mode with no AEAD installed")
		}
		body = c.AEAD.Encrypt(body)
	}

	s := raknet.NewWriteStream()
	s.WriteUint8(byte(raknet.GameTag))
	s.WriteBytes(body)
	return s.Bytes(), nil
}

// DecodeBatch reverses EncodeBatch, returning the individual application
// packet payloads in order.
func (c *Codec) DecodeBatch(envelope []byte) ([][]byte, error) {
	s := raknet.NewStream(envelope)
	tag, err := s.ReadUint8()
	if err != nil {
		return nil, err
	}
	if raknet.OnlinePacketID(tag) != raknet.GameTag {
		return nil, errors.Errorf("gamepacket: expected Game tag 0x%02x, got 0x%02x", raknet.GameTag, tag)
	}
	body := s.ReadRemaining()

	if c.Mode == CompressedEncrypted {
		if c.AEAD == nil {
			return nil, errors.New("gamepacket: CompressedEncrypted mode with no AEAD installed")
		}
		plain, err := c.AEAD.Decrypt(body)
		if err != nil {
			return nil, err
		}
		body = plain
	}

	switch c.Mode {
	case CompressedPlain, CompressedEncrypted:
		if len(body) < 1 {
			return nil, errors.New("gamepacket: batch body missing compression_type byte")
		}
		algo := CompressionAlgorithm(body[0])
		compressor, err := CompressorFor(algo)
		if err != nil {
			return nil, err
		}
		plain, err := compressor.Decompress(body[1:])
		if err != nil {
			return nil, err
		}
		body = plain
	}

	return ReadBatch(body)
}

// NewWriteBatch serializes a list of packet payloads as a concatenation
// of VarUint32-length-prefixed frames, the Bedrock batch format.
func NewWriteBatch(packets [][]byte) []byte {
	s := raknet.NewWriteStream()
	for _, pkt := range packets {
		s.WriteByteSlice(pkt)
	}
	return s.Bytes()
}

// ReadBatch splits a decompressed/decrypted batch body back into its
// individual packet payloads.
func ReadBatch(body []byte) ([][]byte, error) {
	s := raknet.NewStream(body)
	var out [][]byte
	for !s.EOF() {
		pkt, err := s.ReadByteSlice()
		if err != nil {
			return nil, errors.Wrap(err, "gamepacket: malformed batch")
		}
		out = append(out, pkt)
	}
	return out, nil
}
