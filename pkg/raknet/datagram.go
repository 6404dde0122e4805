package raknet

import (
	"fmt"
	"sort"
)

// datagramFlag is the top bit spec.md §4.C uses to distinguish a
// reliability Datagram from a raw connection-setup packet.
const datagramFlag = 0x80

// IsDatagram classifies a received UDP payload per spec.md §4.C: a
// Datagram iff its first byte has the high bit set.
func IsDatagram(payload []byte) bool {
	return len(payload) > 0 && payload[0]&datagramFlag != 0
}

// Datagram is one UDP payload carrying the reliability layer's sequence
// header plus one or more Frames.
type Datagram struct {
	SequenceNumber uint32
	Frames         []*Frame
}

// Encode serializes the datagram to its wire form: flags | sequence:u24_le
// | frames...
func (d *Datagram) Encode() []byte {
	s := NewWriteStream()
	s.WriteUint8(datagramFlag)
	s.WriteUint24LE(d.SequenceNumber)
	for _, f := range d.Frames {
		f.encode(s)
	}
	return s.Bytes()
}

// DecodeDatagram parses a Datagram from a payload already classified by
// IsDatagram.
func DecodeDatagram(payload []byte) (*Datagram, error) {
	s := NewStream(payload)
	flags, err := s.ReadUint8()
	if err != nil {
		return nil, err
	}
	if flags&datagramFlag == 0 {
		return nil, fmt.Errorf("raknet: payload is not a datagram")
	}
	seq, err := s.ReadUint24LE()
	if err != nil {
		return nil, err
	}
	d := &Datagram{SequenceNumber: seq}
	for !s.EOF() {
		frame, err := decodeFrame(s)
		if err != nil {
			return nil, err
		}
		d.Frames = append(d.Frames, frame)
	}
	if len(d.Frames) == 0 {
		return nil, fmt.Errorf("raknet: datagram has no frames")
	}
	return d, nil
}

// AckTag/NackTag are the connection-setup-style byte tags ACK/NACK share,
// per spec.md §6: "tag:u8 | record_count:u16_be | record…".
const (
	AckTag  byte = 0xC0
	NackTag byte = 0xA0
)

// ackRecord is a single ACK/NACK record: either one sequence number, or a
// contiguous [start, end] range.
type ackRecord struct {
	single   bool
	sequence uint32
	start    uint32
	end      uint32
}

// AckFrame is the decoded/encoded form of an ACK or NACK wire packet.
type AckFrame struct {
	Tag       byte
	Sequences []uint32 // flattened view: every sequence this frame names
}

// EncodeAck builds an ACK or NACK packet naming the given sequences,
// coalescing consecutive runs into range records the way spec.md §6
// describes ("single_flag:u8 | (if single) sequence | (else) start, end").
func EncodeAck(tag byte, sequences []uint32) []byte {
	records := coalesce(sequences)

	s := NewWriteStream()
	s.WriteUint8(tag)
	s.WriteUint16BE(uint16(len(records)))
	for _, r := range records {
		if r.single {
			s.WriteUint8(1)
			s.WriteUint24LE(r.sequence)
		} else {
			s.WriteUint8(0)
			s.WriteUint24LE(r.start)
			s.WriteUint24LE(r.end)
		}
	}
	return s.Bytes()
}

// DecodeAck parses an ACK/NACK packet, expanding ranges back into a flat
// sequence list.
func DecodeAck(payload []byte) (*AckFrame, error) {
	s := NewStream(payload)
	tag, err := s.ReadUint8()
	if err != nil {
		return nil, err
	}
	count, err := s.ReadUint16BE()
	if err != nil {
		return nil, err
	}
	af := &AckFrame{Tag: tag}
	for i := uint16(0); i < count; i++ {
		single, err := s.ReadBool()
		if err != nil {
			return nil, err
		}
		if single {
			seq, err := s.ReadUint24LE()
			if err != nil {
				return nil, err
			}
			af.Sequences = append(af.Sequences, seq)
		} else {
			start, err := s.ReadUint24LE()
			if err != nil {
				return nil, err
			}
			end, err := s.ReadUint24LE()
			if err != nil {
				return nil, err
			}
			for seq := start; seq <= end; seq++ {
				af.Sequences = append(af.Sequences, seq)
			}
		}
	}
	return af, nil
}

// coalesce turns a list of sequence numbers into single/range records,
// assuming the caller wants minimal record count for contiguous runs.
func coalesce(sequences []uint32) []ackRecord {
	if len(sequences) == 0 {
		return nil
	}
	sorted := append([]uint32(nil), sequences...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var records []ackRecord
	start := sorted[0]
	prev := sorted[0]
	for _, seq := range sorted[1:] {
		if seq == prev {
			continue // de-dup
		}
		if seq == prev+1 {
			prev = seq
			continue
		}
		records = append(records, rangeRecord(start, prev))
		start, prev = seq, seq
	}
	records = append(records, rangeRecord(start, prev))
	return records
}

func rangeRecord(start, end uint32) ackRecord {
	if start == end {
		return ackRecord{single: true, sequence: start}
	}
	return ackRecord{start: start, end: end}
}
