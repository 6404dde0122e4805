package raknet

import (
	"fmt"
	"net"
)

// Endpoint is an IPv4 or IPv6 address/port pair in the on-wire form RakNet
// uses for OpenConnReq2.server_addr, OpenConnReply2.client_addr and the
// 20 padding system-addresses of ConnReqAccepted/NewIncomingConnection.
type Endpoint struct {
	Version byte // 4 or 6
	Host    string
	Port    uint16
}

// UnassignedEndpoint is the zero-address padding entry RakNet expects for
// the system-address list it never actually uses for anything but a fixed
// count.
var UnassignedEndpoint = Endpoint{Version: 4, Host: "0.0.0.0", Port: 0}

// WriteEndpoint encodes e the way the teacher's BitStream.WriteAddress did:
// IPv4 octets bitwise-inverted, port little-endian.
func (s *Stream) WriteEndpoint(e Endpoint) error {
	if e.Version == 4 {
		ip4 := net.ParseIP(e.Host).To4()
		if ip4 == nil {
			return fmt.Errorf("raknet: %q is not a valid IPv4 host", e.Host)
		}
		s.WriteUint8(4)
		for _, b := range ip4 {
			s.WriteUint8(^b)
		}
		s.WriteUint8(byte(e.Port))
		s.WriteUint8(byte(e.Port >> 8))
		return nil
	}
	if e.Version == 6 {
		ip6 := net.ParseIP(e.Host).To16()
		if ip6 == nil {
			return fmt.Errorf("raknet: %q is not a valid IPv6 host", e.Host)
		}
		s.WriteUint8(6)
		s.WriteUint16BE(uint16(23)) // AF_INET6 on the reference platform
		s.WriteUint8(byte(e.Port >> 8))
		s.WriteUint8(byte(e.Port))
		s.WriteUint32BE(0) // flow info
		s.WriteBytes(ip6)
		s.WriteUint32BE(0) // scope id
		return nil
	}
	return fmt.Errorf("raknet: unsupported address version %d", e.Version)
}

// ReadEndpoint decodes an Endpoint in the same on-wire form.
func (s *Stream) ReadEndpoint() (Endpoint, error) {
	version, err := s.ReadUint8()
	if err != nil {
		return Endpoint{}, err
	}
	switch version {
	case 4:
		octets, err := s.ReadBytes(4)
		if err != nil {
			return Endpoint{}, err
		}
		inv := make([]byte, 4)
		for i, b := range octets {
			inv[i] = ^b
		}
		lo, err := s.ReadUint8()
		if err != nil {
			return Endpoint{}, err
		}
		hi, err := s.ReadUint8()
		if err != nil {
			return Endpoint{}, err
		}
		port := uint16(lo) | uint16(hi)<<8
		return Endpoint{Version: 4, Host: net.IPv4(inv[0], inv[1], inv[2], inv[3]).String(), Port: port}, nil
	case 6:
		if _, err := s.ReadUint16BE(); err != nil { // AF family, ignored
			return Endpoint{}, err
		}
		hi, err := s.ReadUint8()
		if err != nil {
			return Endpoint{}, err
		}
		lo, err := s.ReadUint8()
		if err != nil {
			return Endpoint{}, err
		}
		port := uint16(hi)<<8 | uint16(lo)
		if _, err := s.ReadUint32BE(); err != nil { // flow info
			return Endpoint{}, err
		}
		ip6, err := s.ReadBytes(16)
		if err != nil {
			return Endpoint{}, err
		}
		if _, err := s.ReadUint32BE(); err != nil { // scope id
			return Endpoint{}, err
		}
		return Endpoint{Version: 6, Host: net.IP(ip6).String(), Port: port}, nil
	default:
		return Endpoint{}, fmt.Errorf("raknet: unsupported address version %d", version)
	}
}

// SystemAddressCount is the fixed number of padding Endpoint entries
// carried by ConnReqAccepted and NewIncomingConnection, matching RakNet's
// historical "20 remote systems" allowance.
const SystemAddressCount = 20
