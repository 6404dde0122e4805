package raknet

// OnlinePacketID tags the first byte of an assembled Frame payload once a
// session is established — distinct from the connection-setup PacketType,
// which only applies before the handshake reaches MtuNegotiated. spec.md
// §6 names these as the RakNet-level packets the client emits/consumes
// directly over Frames, with GameTag carrying every Bedrock application
// message behind it.
type OnlinePacketID byte

const (
	ConnectedPing           OnlinePacketID = 0x00
	ConnectedPong           OnlinePacketID = 0x03
	OnlineConnectionRequest OnlinePacketID = 0x09
	ConnReqAccepted         OnlinePacketID = 0x10
	NewIncomingConnection   OnlinePacketID = 0x13
	OnlineDisconnectNotify  OnlinePacketID = 0x15
	GameTag                 OnlinePacketID = 0xFE
)

// ConnectedPingPacket / ConnectedPongPacket carry the liveness exchange
// that can occur from any session state, per spec.md §4.E.
type ConnectedPingPacket struct {
	PingTime int64
}

func (p *ConnectedPingPacket) Encode() []byte {
	s := NewWriteStream()
	s.WriteUint8(byte(ConnectedPing))
	s.WriteInt64BE(p.PingTime)
	return s.Bytes()
}

func DecodeConnectedPing(payload []byte) (*ConnectedPingPacket, error) {
	s := NewStream(payload)
	if _, err := s.ReadUint8(); err != nil {
		return nil, err
	}
	t, err := s.ReadInt64BE()
	if err != nil {
		return nil, err
	}
	return &ConnectedPingPacket{PingTime: t}, nil
}

type ConnectedPongPacket struct {
	PingTime int64
	PongTime int64
}

func (p *ConnectedPongPacket) Encode() []byte {
	s := NewWriteStream()
	s.WriteUint8(byte(ConnectedPong))
	s.WriteInt64BE(p.PingTime)
	s.WriteInt64BE(p.PongTime)
	return s.Bytes()
}

func DecodeConnectedPong(payload []byte) (*ConnectedPongPacket, error) {
	s := NewStream(payload)
	if _, err := s.ReadUint8(); err != nil {
		return nil, err
	}
	ping, err := s.ReadInt64BE()
	if err != nil {
		return nil, err
	}
	pong, err := s.ReadInt64BE()
	if err != nil {
		return nil, err
	}
	return &ConnectedPongPacket{PingTime: ping, PongTime: pong}, nil
}

// ConnectionRequestPacket is sent once OpenConnReply2 is received.
type ConnectionRequestPacket struct {
	ClientGUID       int64
	RequestTimestamp int64
	Security         bool
}

func (p *ConnectionRequestPacket) Encode() []byte {
	s := NewWriteStream()
	s.WriteUint8(byte(OnlineConnectionRequest))
	s.WriteInt64BE(p.ClientGUID)
	s.WriteInt64BE(p.RequestTimestamp)
	s.WriteBool(p.Security)
	return s.Bytes()
}

// ConnReqAcceptedPacket is the server's acceptance of ConnectionRequest.
type ConnReqAcceptedPacket struct {
	ClientAddr        Endpoint
	SystemIndex       uint16
	SystemAddresses   [SystemAddressCount]Endpoint
	RequestTimestamp  int64
	AcceptedTimestamp int64
}

func DecodeConnReqAccepted(payload []byte) (*ConnReqAcceptedPacket, error) {
	s := NewStream(payload)
	if _, err := s.ReadUint8(); err != nil {
		return nil, err
	}
	addr, err := s.ReadEndpoint()
	if err != nil {
		return nil, err
	}
	p := &ConnReqAcceptedPacket{ClientAddr: addr}
	idx, err := s.ReadUint16BE()
	if err != nil {
		return nil, err
	}
	p.SystemIndex = idx
	for i := 0; i < SystemAddressCount; i++ {
		if s.Remaining() < 1 {
			break
		}
		sysAddr, err := s.ReadEndpoint()
		if err != nil {
			break
		}
		p.SystemAddresses[i] = sysAddr
	}
	if s.Remaining() >= 16 {
		req, err := s.ReadInt64BE()
		if err != nil {
			return nil, err
		}
		acc, err := s.ReadInt64BE()
		if err != nil {
			return nil, err
		}
		p.RequestTimestamp, p.AcceptedTimestamp = req, acc
	}
	return p, nil
}

// NewIncomingConnectionPacket echoes the server address and the fixed
// system-address padding list back to the server.
type NewIncomingConnectionPacket struct {
	ServerAddr        Endpoint
	SystemAddresses   [SystemAddressCount]Endpoint
	RequestTimestamp  int64
	AcceptedTimestamp int64
}

func (p *NewIncomingConnectionPacket) Encode() ([]byte, error) {
	s := NewWriteStream()
	s.WriteUint8(byte(NewIncomingConnection))
	if err := s.WriteEndpoint(p.ServerAddr); err != nil {
		return nil, err
	}
	for i := 0; i < SystemAddressCount; i++ {
		addr := p.SystemAddresses[i]
		if addr.Host == "" {
			addr = UnassignedEndpoint
		}
		if err := s.WriteEndpoint(addr); err != nil {
			return nil, err
		}
	}
	s.WriteInt64BE(p.RequestTimestamp)
	s.WriteInt64BE(p.AcceptedTimestamp)
	return s.Bytes(), nil
}

// IsGamePacket reports whether an assembled Frame payload is a Bedrock
// Game envelope (tag 0xFE) versus a RakNet-level online packet.
func IsGamePacket(payload []byte) bool {
	return len(payload) >= 1 && OnlinePacketID(payload[0]) == GameTag
}

// IsOnlineDisconnect reports whether payload is a post-handshake
// DisconnectionNotification (tag-only, per spec.md §6).
func IsOnlineDisconnect(payload []byte) bool {
	return len(payload) >= 1 && OnlinePacketID(payload[0]) == OnlineDisconnectNotify
}
