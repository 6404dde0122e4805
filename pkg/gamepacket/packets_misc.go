package gamepacket

import (
	"github.com/pkg/errors"

	"github.com/raknet-bedrock/client/pkg/raknet"
)

// PlayStatusPacket reports login progress; PlayStatusLoginSuccess is the
// signal this client's handshake state machine waits on before declaring
// the session LoggedIn, per spec.md §4.E.
type PlayStatusPacket struct {
	Status PlayStatusCode
}

func (p *PlayStatusPacket) Encode() []byte {
	s := raknet.NewWriteStream()
	s.WriteVarUint32(uint32(IDPlayStatus))
	s.WriteUint32BE(uint32(int32(p.Status)))
	return s.Bytes()
}

func DecodePlayStatus(body []byte) (*PlayStatusPacket, error) {
	s := raknet.NewStream(body)
	id, err := s.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if PacketID(id) != IDPlayStatus {
		return nil, errors.Errorf("gamepacket: expected PlayStatus id, got %d", id)
	}
	raw, err := s.ReadUint32BE()
	if err != nil {
		return nil, err
	}
	return &PlayStatusPacket{Status: PlayStatusCode(int32(raw))}, nil
}

// DisconnectPacket is the server's graceful session teardown, carrying an
// optional human-readable reason.
type DisconnectPacket struct {
	HideDisconnectScreen bool
	Message              string
}

func DecodeDisconnect(body []byte) (*DisconnectPacket, error) {
	s := raknet.NewStream(body)
	id, err := s.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if PacketID(id) != IDDisconnect {
		return nil, errors.Errorf("gamepacket: expected Disconnect id, got %d", id)
	}
	hide, err := s.ReadBool()
	if err != nil {
		return nil, err
	}
	p := &DisconnectPacket{HideDisconnectScreen: hide}
	if !hide {
		msg, err := s.ReadString()
		if err != nil {
			return nil, err
		}
		p.Message = msg
	}
	return p, nil
}

// StartGamePacket is the large world/session-bootstrap packet sent right
// after the resource pack exchange completes; this client only needs the
// fields that confirm the world is ready to observe, not the full
// gameplay state (out of scope per spec.md's Non-goals).
type StartGamePacket struct {
	EntityUniqueID  int64
	EntityRuntimeID uint64
	WorldName       string
	WorldSeed       int64
}

func DecodeStartGame(body []byte) (*StartGamePacket, error) {
	s := raknet.NewStream(body)
	id, err := s.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if PacketID(id) != IDStartGame {
		return nil, errors.Errorf("gamepacket: expected StartGame id, got %d", id)
	}
	entityUnique, err := s.ReadVarInt32()
	if err != nil {
		return nil, err
	}
	entityRuntime, err := s.ReadVarUint64()
	if err != nil {
		return nil, err
	}
	seed, err := s.ReadVarInt32()
	if err != nil {
		return nil, err
	}
	worldName, err := s.ReadString()
	if err != nil {
		return nil, err
	}
	return &StartGamePacket{
		EntityUniqueID:  int64(entityUnique),
		EntityRuntimeID: entityRuntime,
		WorldSeed:       int64(seed),
		WorldName:       worldName,
	}, nil
}
