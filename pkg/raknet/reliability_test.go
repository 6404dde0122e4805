package raknet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 2 from spec.md §8: ACK after one datagram.
func TestReceiverAckAfterOneDatagram(t *testing.T) {
	r := NewReceiver()
	d := &Datagram{SequenceNumber: 7, Frames: []*Frame{{Reliability: Unreliable, Body: []byte{0x01}}}}

	result := r.Receive(d)

	ack, err := DecodeAck(result.Acks)
	require.NoError(t, err)
	assert.Equal(t, []uint32{7}, ack.Sequences)
	assert.Nil(t, result.Nacks)
	require.Len(t, result.Payloads, 1)
	assert.Equal(t, []byte{0x01}, result.Payloads[0])
}

// Scenario 3: gap triggers NACKs for the missing sequences, none after
// the gap is filled.
func TestReceiverGapTriggersNacks(t *testing.T) {
	r := NewReceiver()

	mkDatagram := func(seq uint32) *Datagram {
		return &Datagram{SequenceNumber: seq, Frames: []*Frame{{Reliability: Unreliable, Body: []byte{byte(seq)}}}}
	}

	res0 := r.Receive(mkDatagram(0))
	assert.Nil(t, res0.Nacks)

	res1 := r.Receive(mkDatagram(1))
	assert.Nil(t, res1.Nacks)

	res4 := r.Receive(mkDatagram(4))
	nack, err := DecodeAck(res4.Nacks)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint32{2, 3}, nack.Sequences)

	// Only 0 and 1 were contiguous, so sequence 4 should still be pending.
	assert.EqualValues(t, 1, r.LastHandledSequence())

	res2 := r.Receive(mkDatagram(2))
	assert.Nil(t, res2.Nacks)
	res3 := r.Receive(mkDatagram(3))
	assert.Nil(t, res3.Nacks)

	// Filling the gap delivers 2, 3 and 4 in order.
	assert.EqualValues(t, 4, r.LastHandledSequence())
}

// Scenario 4: fragment reassembly across out-of-order datagrams.
func TestReceiverFragmentReassembly(t *testing.T) {
	r := NewReceiver()

	mkFragment := func(seq uint32, index uint32, body byte) *Datagram {
		return &Datagram{
			SequenceNumber: seq,
			Frames: []*Frame{{
				Reliability: Reliable,
				Fragment:    &Fragment{CompoundSize: 3, CompoundID: 42, Index: index},
				Body:        []byte{body},
			}},
		}
	}

	res0 := r.Receive(mkFragment(0, 1, 0xAA))
	assert.Empty(t, res0.Payloads)
	res1 := r.Receive(mkFragment(1, 0, 0xBB))
	assert.Empty(t, res1.Payloads)
	res2 := r.Receive(mkFragment(2, 2, 0xCC))
	require.Len(t, res2.Payloads, 1)
	assert.Equal(t, []byte{0xBB, 0xAA, 0xCC}, res2.Payloads[0])
}

func TestSplitPayloadRoundTrip(t *testing.T) {
	cache := &FrameNumberCache{}
	payload := make([]byte, 4000)
	for i := range payload {
		payload[i] = byte(i)
	}

	datagrams := SplitPayload(payload, 500, cache)
	require.Greater(t, len(datagrams), 1)

	r := NewReceiver()
	var delivered [][]byte
	for _, d := range datagrams {
		res := r.Receive(d)
		delivered = append(delivered, res.Payloads...)
	}
	require.Len(t, delivered, 1)
	assert.Equal(t, payload, delivered[0])
}

func TestFrameNumberCacheMonotonic(t *testing.T) {
	cache := &FrameNumberCache{}

	f1 := cache.NewFrame(Reliable, []byte("a"))
	f2 := cache.NewFrame(Reliable, []byte("b"))
	assert.EqualValues(t, 0, f1.ReliableIndex)
	assert.EqualValues(t, 1, f2.ReliableIndex)

	o1 := cache.NewFrame(ReliableOrdered, []byte("c"))
	o2 := cache.NewFrame(ReliableOrdered, []byte("d"))
	assert.EqualValues(t, 0, o1.OrderedIndex)
	assert.EqualValues(t, 1, o2.OrderedIndex)

	d1 := SendSingle([]byte("e"), Unreliable, cache)
	d2 := SendSingle([]byte("f"), Unreliable, cache)
	assert.Less(t, d1.SequenceNumber, d2.SequenceNumber)
}

func TestAckEncodeDecodeRange(t *testing.T) {
	packet := EncodeAck(AckTag, []uint32{1, 2, 3, 7})
	decoded, err := DecodeAck(packet)
	require.NoError(t, err)
	assert.Equal(t, AckTag, decoded.Tag)
	assert.ElementsMatch(t, []uint32{1, 2, 3, 7}, decoded.Sequences)
}

func TestDatagramEncodeDecode(t *testing.T) {
	cache := &FrameNumberCache{}
	frame := cache.NewFrame(ReliableOrdered, []byte("payload"))
	d := &Datagram{SequenceNumber: 9, Frames: []*Frame{frame}}

	encoded := d.Encode()
	assert.True(t, IsDatagram(encoded))

	decoded, err := DecodeDatagram(encoded)
	require.NoError(t, err)
	assert.EqualValues(t, 9, decoded.SequenceNumber)
	require.Len(t, decoded.Frames, 1)
	assert.Equal(t, []byte("payload"), decoded.Frames[0].Body)
	assert.EqualValues(t, 0, decoded.Frames[0].OrderedIndex)
}
