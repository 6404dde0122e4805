package gamepacket

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"

	"github.com/raknet-bedrock/client/pkg/raknet"
)

// RequestNetworkSettingsPacket is the first application packet this
// client sends, before compression or encryption are negotiated.
type RequestNetworkSettingsPacket struct {
	ProtocolVersion int32
}

func (p *RequestNetworkSettingsPacket) Encode() []byte {
	s := raknet.NewWriteStream()
	s.WriteVarUint32(uint32(IDRequestNetworkSettings))
	s.WriteUint32BE(uint32(p.ProtocolVersion))
	return s.Bytes()
}

// NetworkSettingsPacket is the server's reply: the compression threshold
// and algorithm this client must switch to for every subsequent batch.
type NetworkSettingsPacket struct {
	CompressionThreshold    uint16
	CompressionAlgorithm    CompressionAlgorithm
	ClientThrottle          bool
	ClientThrottleThreshold byte
	ClientThrottleScalar    float32
}

func DecodeNetworkSettings(body []byte) (*NetworkSettingsPacket, error) {
	s := raknet.NewStream(body)
	id, err := s.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if PacketID(id) != IDNetworkSettings {
		return nil, errors.Errorf("gamepacket: expected NetworkSettings id, got %d", id)
	}
	threshold, err := s.ReadUint16BE()
	if err != nil {
		return nil, err
	}
	algo, err := s.ReadUint16BE()
	if err != nil {
		return nil, err
	}
	throttle, err := s.ReadBool()
	if err != nil {
		return nil, err
	}
	thresholdByte, err := s.ReadUint8()
	if err != nil {
		return nil, err
	}
	scalar, err := s.ReadUint32BE()
	if err != nil {
		return nil, err
	}
	return &NetworkSettingsPacket{
		CompressionThreshold:    threshold,
		CompressionAlgorithm:    CompressionAlgorithm(algo),
		ClientThrottle:          throttle,
		ClientThrottleThreshold: thresholdByte,
		ClientThrottleScalar:    math.Float32frombits(scalar),
	}, nil
}

// LoginPacket carries the client's signed JWT identity chain and client
// data JWT, per spec.md §1's "assumed" auth chain and §4.E's handshake.
type LoginPacket struct {
	ProtocolVersion int32
	Chain           []string
	ClientDataJWT   string
}

type jwtChainDoc struct {
	Chain []string `json:"chain"`
}

func (p *LoginPacket) Encode() ([]byte, error) {
	chainJSON, err := json.Marshal(jwtChainDoc{Chain: p.Chain})
	if err != nil {
		return nil, errors.Wrap(err, "gamepacket: marshal JWT chain")
	}

	inner := raknet.NewWriteStream()
	inner.WriteByteSlice(chainJSON)
	inner.WriteByteSlice([]byte(p.ClientDataJWT))

	s := raknet.NewWriteStream()
	s.WriteVarUint32(uint32(IDLogin))
	s.WriteUint32BE(uint32(p.ProtocolVersion))
	s.WriteByteSlice(inner.Bytes())
	return s.Bytes(), nil
}

// ServerToClientHandshakePacket carries the server's JWT whose header
// holds the `x5u` EC public key and whose payload holds the `salt` used
// to derive the shared AEAD session key, per spec.md §4.D.
type ServerToClientHandshakePacket struct {
	JWT string
}

func DecodeServerToClientHandshake(body []byte) (*ServerToClientHandshakePacket, error) {
	s := raknet.NewStream(body)
	id, err := s.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if PacketID(id) != IDServerToClientHandshake {
		return nil, errors.Errorf("gamepacket: expected ServerToClientHandshake id, got %d", id)
	}
	jwt, err := s.ReadString()
	if err != nil {
		return nil, err
	}
	return &ServerToClientHandshakePacket{JWT: jwt}, nil
}

// ClientToServerHandshakePacket is the tag-only acknowledgement the
// client sends back once it has installed the derived AEAD and switched
// EncodingMode to CompressedEncrypted.
type ClientToServerHandshakePacket struct{}

func (p *ClientToServerHandshakePacket) Encode() []byte {
	s := raknet.NewWriteStream()
	s.WriteVarUint32(uint32(IDClientToServerHandshake))
	return s.Bytes()
}
