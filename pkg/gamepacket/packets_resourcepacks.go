package gamepacket

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/raknet-bedrock/client/pkg/raknet"
)

// ResourcePackEntry describes one pack advertised by ResourcePacksInfo,
// identified by a UUID the client must echo back in its response.
type ResourcePackEntry struct {
	PackID  uuid.UUID
	Version string
	Size    uint64
}

// ResourcePacksInfoPacket lists every pack the server wants the client to
// acknowledge (or download) before StartGame, per spec.md's supplemented
// features (original_source/src/client.rs decodes this struct fully
// rather than skipping straight past it).
type ResourcePacksInfoPacket struct {
	MustAccept   bool
	HasScripts   bool
	TexturePacks []ResourcePackEntry
}

func DecodeResourcePacksInfo(body []byte) (*ResourcePacksInfoPacket, error) {
	s := raknet.NewStream(body)
	id, err := s.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if PacketID(id) != IDResourcePacksInfo {
		return nil, errors.Errorf("gamepacket: expected ResourcePacksInfo id, got %d", id)
	}
	mustAccept, err := s.ReadBool()
	if err != nil {
		return nil, err
	}
	hasScripts, err := s.ReadBool()
	if err != nil {
		return nil, err
	}
	count, err := s.ReadUint16BE()
	if err != nil {
		return nil, err
	}
	p := &ResourcePacksInfoPacket{MustAccept: mustAccept, HasScripts: hasScripts}
	for i := 0; i < int(count); i++ {
		idStr, err := s.ReadString()
		if err != nil {
			return nil, err
		}
		version, err := s.ReadString()
		if err != nil {
			return nil, err
		}
		size, err := s.ReadUint64BE()
		if err != nil {
			return nil, err
		}
		packID, parseErr := uuid.Parse(idStr)
		if parseErr != nil {
			packID = uuid.Nil
		}
		p.TexturePacks = append(p.TexturePacks, ResourcePackEntry{PackID: packID, Version: version, Size: size})
	}
	return p, nil
}

// ResourcePackStackPacket is sent after ResourcePacksInfo, ordering how
// accepted packs should stack; this client only needs to acknowledge it.
type ResourcePackStackPacket struct {
	MustAccept bool
}

func DecodeResourcePackStack(body []byte) (*ResourcePackStackPacket, error) {
	s := raknet.NewStream(body)
	id, err := s.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if PacketID(id) != IDResourcePackStack {
		return nil, errors.Errorf("gamepacket: expected ResourcePackStack id, got %d", id)
	}
	mustAccept, err := s.ReadBool()
	if err != nil {
		return nil, err
	}
	return &ResourcePackStackPacket{MustAccept: mustAccept}, nil
}

// ResponseStatus enumerates this client's reply to ResourcePacksInfo.
type ResponseStatus byte

const (
	ResponseRefused      ResponseStatus = 1
	ResponseSendPacks    ResponseStatus = 2
	ResponseHaveAllPacks ResponseStatus = 3
	ResponseCompleted    ResponseStatus = 4
)

// ResourcePackClientResponsePacket is this client's acknowledgement; it
// always responds HaveAllPacks then Completed since this client never
// downloads packs, per spec.md's Non-goals. The Completed response must
// echo every UUID the server advertised in ResourcePacksInfo.
type ResourcePackClientResponsePacket struct {
	Status  ResponseStatus
	PackIDs []uuid.UUID
}

func (p *ResourcePackClientResponsePacket) Encode() []byte {
	s := raknet.NewWriteStream()
	s.WriteVarUint32(uint32(IDResourcePackClientResp))
	s.WriteUint8(byte(p.Status))
	s.WriteUint16BE(uint16(len(p.PackIDs)))
	for _, id := range p.PackIDs {
		s.WriteString(id.String())
	}
	return s.Bytes()
}
