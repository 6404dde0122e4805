// Package raknet implements the reliability layer that rides over the
// connection-less datagram transport: sequence numbering, ACK/NACK,
// splitting/reassembly, and the connection-setup wire packets.
package raknet

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Stream is a cursor over a byte buffer with typed reads/writes in the
// encodings the Bedrock wire protocol uses: fixed-width network-order
// integers for the RakNet envelope, and little-endian variable-length
// integers for everything inside a Game packet.
type Stream struct {
	buf    []byte
	offset int
}

// NewStream wraps an existing buffer for reading.
func NewStream(buf []byte) *Stream {
	return &Stream{buf: buf}
}

// NewWriteStream returns an empty stream ready for writes.
func NewWriteStream() *Stream {
	return &Stream{buf: make([]byte, 0, 64)}
}

// Bytes returns the stream's underlying buffer.
func (s *Stream) Bytes() []byte {
	return s.buf
}

// Offset returns the current read/write cursor.
func (s *Stream) Offset() int {
	return s.offset
}

// Remaining reports how many unread bytes are left in the stream.
func (s *Stream) Remaining() int {
	return len(s.buf) - s.offset
}

// EOF reports whether the cursor has consumed the entire buffer.
func (s *Stream) EOF() bool {
	return s.offset >= len(s.buf)
}

func (s *Stream) need(n int) error {
	if s.offset+n > len(s.buf) {
		return fmt.Errorf("raknet: stream underflow: need %d bytes, have %d", n, s.Remaining())
	}
	return nil
}

// ReadUint8 reads a single byte.
func (s *Stream) ReadUint8() (byte, error) {
	if err := s.need(1); err != nil {
		return 0, err
	}
	b := s.buf[s.offset]
	s.offset++
	return b, nil
}

// ReadBool reads a single byte as a boolean.
func (s *Stream) ReadBool() (bool, error) {
	b, err := s.ReadUint8()
	return b != 0, err
}

// ReadBytes reads n raw bytes.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if err := s.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, s.buf[s.offset:s.offset+n])
	s.offset += n
	return b, nil
}

// ReadRemaining returns every byte left in the stream.
func (s *Stream) ReadRemaining() []byte {
	b := s.buf[s.offset:]
	s.offset = len(s.buf)
	return b
}

// ReadUint16BE reads a big-endian uint16 (used by the Frame length field).
func (s *Stream) ReadUint16BE() (uint16, error) {
	b, err := s.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadUint24LE reads a little-endian 24-bit unsigned integer — the
// encoding used for sequence numbers and reliable/ordered frame indices.
func (s *Stream) ReadUint24LE() (uint32, error) {
	b, err := s.ReadBytes(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

// ReadUint32BE reads a big-endian uint32 (split-packet compound size).
func (s *Stream) ReadUint32BE() (uint32, error) {
	b, err := s.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadUint64BE reads a big-endian uint64.
func (s *Stream) ReadUint64BE() (uint64, error) {
	b, err := s.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadVarUint32 reads a Bedrock-style unsigned LEB128 varint.
func (s *Stream) ReadVarUint32() (uint32, error) {
	var value uint32
	for shift := uint(0); shift < 35; shift += 7 {
		b, err := s.ReadUint8()
		if err != nil {
			return 0, err
		}
		value |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, nil
		}
	}
	return 0, fmt.Errorf("raknet: varuint32 too long")
}

// WriteVarUint32 writes v as an unsigned LEB128 varint.
func (s *Stream) WriteVarUint32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			s.buf = append(s.buf, b|0x80)
		} else {
			s.buf = append(s.buf, b)
			return
		}
	}
}

// ReadVarInt32 reads a zig-zag encoded signed varint.
func (s *Stream) ReadVarInt32() (int32, error) {
	u, err := s.ReadVarUint32()
	if err != nil {
		return 0, err
	}
	return int32(u>>1) ^ -int32(u&1), nil
}

// WriteVarInt32 writes v as a zig-zag encoded signed varint.
func (s *Stream) WriteVarInt32(v int32) {
	s.WriteVarUint32(uint32(v<<1) ^ uint32(v>>31))
}

// ReadVarUint64 reads a 64-bit unsigned LEB128 varint.
func (s *Stream) ReadVarUint64() (uint64, error) {
	var value uint64
	for shift := uint(0); shift < 70; shift += 7 {
		b, err := s.ReadUint8()
		if err != nil {
			return 0, err
		}
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, nil
		}
	}
	return 0, fmt.Errorf("raknet: varuint64 too long")
}

// WriteVarUint64 writes v as an unsigned LEB128 varint.
func (s *Stream) WriteVarUint64(v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			s.buf = append(s.buf, b|0x80)
		} else {
			s.buf = append(s.buf, b)
			return
		}
	}
}

// ReadString reads a VarUint32-prefixed UTF-8 string.
func (s *Stream) ReadString() (string, error) {
	n, err := s.ReadVarUint32()
	if err != nil {
		return "", err
	}
	b, err := s.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteString writes s as a VarUint32-prefixed UTF-8 string.
func (s *Stream) WriteString(str string) {
	s.WriteVarUint32(uint32(len(str)))
	s.buf = append(s.buf, str...)
}

// ReadByteSlice reads a VarUint32-prefixed byte slice.
func (s *Stream) ReadByteSlice() ([]byte, error) {
	n, err := s.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	return s.ReadBytes(int(n))
}

// WriteByteSlice writes b as a VarUint32-prefixed byte slice.
func (s *Stream) WriteByteSlice(b []byte) {
	s.WriteVarUint32(uint32(len(b)))
	s.buf = append(s.buf, b...)
}

// WriteUint8 writes a single byte.
func (s *Stream) WriteUint8(b byte) {
	s.buf = append(s.buf, b)
}

// WriteBool writes a boolean as a single byte.
func (s *Stream) WriteBool(b bool) {
	if b {
		s.WriteUint8(1)
	} else {
		s.WriteUint8(0)
	}
}

// WriteBytes appends raw bytes.
func (s *Stream) WriteBytes(b []byte) {
	s.buf = append(s.buf, b...)
}

// WriteUint16BE writes a big-endian uint16.
func (s *Stream) WriteUint16BE(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

// WriteUint24LE writes a little-endian 24-bit unsigned integer.
func (s *Stream) WriteUint24LE(v uint32) {
	s.buf = append(s.buf, byte(v), byte(v>>8), byte(v>>16))
}

// WriteUint32BE writes a big-endian uint32.
func (s *Stream) WriteUint32BE(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

// WriteUint64BE writes a big-endian uint64.
func (s *Stream) WriteUint64BE(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

// WriteInt64BE writes a big-endian int64 (e.g. handshake timestamps).
func (s *Stream) WriteInt64BE(v int64) {
	s.WriteUint64BE(uint64(v))
}

// ReadInt64BE reads a big-endian int64.
func (s *Stream) ReadInt64BE() (int64, error) {
	v, err := s.ReadUint64BE()
	return int64(v), err
}

// WriteFloat32BE writes a big-endian IEEE-754 float32.
func (s *Stream) WriteFloat32BE(f float32) {
	s.WriteUint32BE(math.Float32bits(f))
}
