package gamepacket

import "github.com/raknet-bedrock/client/pkg/raknet"

// PacketID enumerates the Bedrock application packet IDs this client
// encodes or decodes, per spec.md §4.E/§4.F. Each travels as a
// VarUint32 ID followed by its body inside a Game batch entry.
type PacketID uint32

const (
	IDLogin                   PacketID = 0x01
	IDPlayStatus              PacketID = 0x02
	IDServerToClientHandshake PacketID = 0x03
	IDClientToServerHandshake PacketID = 0x04
	IDDisconnect              PacketID = 0x05
	IDResourcePacksInfo       PacketID = 0x06
	IDResourcePackStack       PacketID = 0x07
	IDResourcePackClientResp  PacketID = 0x08
	IDStartGame               PacketID = 0x0B
	IDRequestNetworkSettings  PacketID = 0xC1
	IDNetworkSettings         PacketID = 0x8F
)

// PlayStatusCode enumerates the values carried by PlayStatusPacket.
type PlayStatusCode int32

// PeekID returns the VarUint32 packet ID a batch entry leads with,
// without consuming the caller's copy of body.
func PeekID(body []byte) (PacketID, error) {
	s := raknet.NewStream(body)
	id, err := s.ReadVarUint32()
	if err != nil {
		return 0, err
	}
	return PacketID(id), nil
}

const (
	PlayStatusLoginSuccess                PlayStatusCode = 0
	PlayStatusFailedClient                PlayStatusCode = 1
	PlayStatusFailedSpawn                 PlayStatusCode = 2
	PlayStatusPlayerSpawn                 PlayStatusCode = 3
	PlayStatusFailedInvalidTenant         PlayStatusCode = 4
	PlayStatusFailedVanillaEdu            PlayStatusCode = 5
	PlayStatusFailedIncompatiblePack      PlayStatusCode = 6
	PlayStatusFailedServerFull            PlayStatusCode = 7
	PlayStatusFailedEditorVanillaMismatch PlayStatusCode = 8
	PlayStatusFailedVanillaEditorMismatch PlayStatusCode = 9
)
