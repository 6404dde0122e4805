package raknet

// PacketType identifies a connection-setup (non-datagram) packet by its
// leading byte, per spec.md §6.
type PacketType byte

const (
	PacketOpenConnReq1           PacketType = 0x05
	PacketOpenConnReply1         PacketType = 0x06
	PacketOpenConnReq2           PacketType = 0x07
	PacketOpenConnReply2         PacketType = 0x08
	PacketIncompatibleProtocol   PacketType = 0x19
	PacketDisconnectNotification PacketType = 0x15
	PacketUnknown                PacketType = 0xFF
)

// PacketTypeOf returns the PacketType for the given leading byte, or
// PacketUnknown for a tag this client doesn't act on (§7 error kind 6:
// unknown packet, logged and skipped).
func PacketTypeOf(tag byte) PacketType {
	switch PacketType(tag) {
	case PacketOpenConnReq1, PacketOpenConnReply1, PacketOpenConnReq2, PacketOpenConnReply2,
		PacketIncompatibleProtocol, PacketDisconnectNotification:
		return PacketType(tag)
	default:
		return PacketUnknown
	}
}

// Magic is the fixed 16-byte sentinel shared between client and server
// to confirm protocol identity in connection-setup packets.
var Magic = [16]byte{0x00, 0xff, 0xff, 0x00, 0xfe, 0xfe, 0xfe, 0xfe, 0xfd, 0xfd, 0xfd, 0xfd, 0x12, 0x34, 0x56, 0x78}

func writeMagic(s *Stream) {
	s.WriteBytes(Magic[:])
}

func readMagic(s *Stream) ([16]byte, error) {
	b, err := s.ReadBytes(16)
	if err != nil {
		return [16]byte{}, err
	}
	var m [16]byte
	copy(m[:], b)
	return m, nil
}

// MtuProbePadding is the fixed padding length spec.md §4.E/§6/§8 Scenario 1
// requires on the initial OpenConnReq1 probe, independent of any
// negotiated MTU.
const MtuProbePadding = 1492

// OpenConnReq1 probes path MTU: the UDP payload is padded with zero bytes
// to MtuPadding beyond the header, so the server can infer the MTU the
// path supports from whether the datagram arrived intact.
type OpenConnReq1 struct {
	ProtocolVersion byte
	MtuPadding      int
}

func (p *OpenConnReq1) Encode() []byte {
	s := NewWriteStream()
	s.WriteUint8(byte(PacketOpenConnReq1))
	writeMagic(s)
	s.WriteUint8(p.ProtocolVersion)
	s.WriteBytes(make([]byte, p.MtuPadding))
	return s.Bytes()
}

// OpenConnReply1 is the server's MTU/identity reply. Cookie is present iff
// ServerSecurity != 0.
type OpenConnReply1 struct {
	Magic          [16]byte
	ServerGUID     uint64
	ServerSecurity byte
	Cookie         uint32
	HasCookie      bool
	MTU            uint16
}

func DecodeOpenConnReply1(payload []byte) (*OpenConnReply1, error) {
	s := NewStream(payload)
	if _, err := s.ReadUint8(); err != nil { // tag
		return nil, err
	}
	magic, err := readMagic(s)
	if err != nil {
		return nil, err
	}
	guid, err := s.ReadUint64BE()
	if err != nil {
		return nil, err
	}
	security, err := s.ReadUint8()
	if err != nil {
		return nil, err
	}
	r := &OpenConnReply1{Magic: magic, ServerGUID: guid, ServerSecurity: security}
	if security != 0 {
		cookie, err := s.ReadUint32BE()
		if err != nil {
			return nil, err
		}
		r.Cookie = cookie
		r.HasCookie = true
	}
	mtu, err := s.ReadUint16BE()
	if err != nil {
		return nil, err
	}
	r.MTU = mtu
	return r, nil
}

// OpenConnReq2 carries the server address, echoes the cookie if one was
// issued, and introduces the client GUID that identifies this session.
type OpenConnReq2 struct {
	ServerAddr Endpoint
	Cookie     uint32
	HasCookie  bool
	Security   byte
	MTU        uint16
	ClientGUID int64
}

func (p *OpenConnReq2) Encode() ([]byte, error) {
	s := NewWriteStream()
	s.WriteUint8(byte(PacketOpenConnReq2))
	writeMagic(s)
	if err := s.WriteEndpoint(p.ServerAddr); err != nil {
		return nil, err
	}
	if p.HasCookie {
		s.WriteUint32BE(p.Cookie)
	}
	s.WriteUint8(p.Security)
	s.WriteUint16BE(p.MTU)
	s.WriteInt64BE(p.ClientGUID)
	return s.Bytes(), nil
}

// OpenConnReply2 confirms the negotiated MTU and whether the server wants
// RakNet-level encryption (distinct from the Bedrock application-layer
// encryption this client drives through the handshake state machine).
type OpenConnReply2 struct {
	Magic             [16]byte
	ServerGUID        uint64
	ClientAddr        Endpoint
	MTU               uint16
	EncryptionEnabled byte
}

func DecodeOpenConnReply2(payload []byte) (*OpenConnReply2, error) {
	s := NewStream(payload)
	if _, err := s.ReadUint8(); err != nil {
		return nil, err
	}
	magic, err := readMagic(s)
	if err != nil {
		return nil, err
	}
	guid, err := s.ReadUint64BE()
	if err != nil {
		return nil, err
	}
	addr, err := s.ReadEndpoint()
	if err != nil {
		return nil, err
	}
	mtu, err := s.ReadUint16BE()
	if err != nil {
		return nil, err
	}
	enc, err := s.ReadUint8()
	if err != nil {
		return nil, err
	}
	return &OpenConnReply2{Magic: magic, ServerGUID: guid, ClientAddr: addr, MTU: mtu, EncryptionEnabled: enc}, nil
}

// IncompatibleProtocol is sent when the server rejects this client's
// RakNet protocol version; receiving one is a §7 "Protocol fatal" error.
type IncompatibleProtocol struct {
	ServerProtocol byte
	Magic          [16]byte
	ServerGUID     uint64
}

func DecodeIncompatibleProtocol(payload []byte) (*IncompatibleProtocol, error) {
	s := NewStream(payload)
	if _, err := s.ReadUint8(); err != nil {
		return nil, err
	}
	proto, err := s.ReadUint8()
	if err != nil {
		return nil, err
	}
	magic, err := readMagic(s)
	if err != nil {
		return nil, err
	}
	guid, err := s.ReadUint64BE()
	if err != nil {
		return nil, err
	}
	return &IncompatibleProtocol{ServerProtocol: proto, Magic: magic, ServerGUID: guid}, nil
}

// IsDisconnectionNotification reports whether payload is the tag-only
// DisconnectionNotification connection-setup packet.
func IsDisconnectionNotification(payload []byte) bool {
	return len(payload) >= 1 && PacketType(payload[0]) == PacketDisconnectNotification
}
