package raknet

import (
	"sort"
	"time"
)

// FrameNumberCache is the sender's counters: sequence_number,
// reliable_frame_index and ordered_frame_index, per spec.md §3. All three
// start at zero, are monotonic, and never decrement within a session.
// It is plain state threaded by exclusive reference through send paths —
// never shared across goroutines.
type FrameNumberCache struct {
	SequenceNumber     uint32
	ReliableFrameIndex uint32
	OrderedFrameIndex  uint32
	nextCompoundID     uint16
}

func (c *FrameNumberCache) nextSequence() uint32 {
	seq := c.SequenceNumber
	c.SequenceNumber++
	return seq
}

func (c *FrameNumberCache) nextCompound() uint16 {
	id := c.nextCompoundID
	c.nextCompoundID++
	return id
}

// NewFrame stamps a Frame with the counters appropriate for its
// reliability, per spec.md §3 invariants 3–4. It does not assign a
// sequence number — that happens when the frame is placed in a Datagram.
func (c *FrameNumberCache) NewFrame(reliability Reliability, body []byte) *Frame {
	f := &Frame{Reliability: reliability, Body: body}
	if reliability.isReliable() {
		f.ReliableIndex = c.ReliableFrameIndex
		c.ReliableFrameIndex++
	}
	if reliability == ReliableOrdered {
		f.OrderedIndex = c.OrderedFrameIndex
		c.OrderedFrameIndex++
		f.OrderChannel = 0
	}
	return f
}

// frameHeaderOverhead is the worst-case per-frame header size (reliable
// ordered + split), used to size split chunks conservatively.
const frameHeaderOverhead = 1 + 2 + 3 + 4 + 10

// datagramHeaderOverhead is the Datagram envelope: flags + u24 sequence.
const datagramHeaderOverhead = 1 + 3

// FitsUnfragmented reports whether payload fits in a single Frame within
// one mtu-budget Datagram, i.e. whether a caller can skip SplitPayload.
func FitsUnfragmented(payload []byte, mtu int) bool {
	return len(payload) <= mtu-datagramHeaderOverhead-frameHeaderOverhead
}

// SplitPayload splits payload into Reliable frames sized to fit within
// mtu-budget datagrams, per spec.md §4.C "Splitting on send". Each chunk
// is returned as a complete Datagram ready to encode, with its own
// sequence number and reliable index, sharing one compoundID drawn from
// the per-session monotonic counter.
func SplitPayload(payload []byte, mtu int, cache *FrameNumberCache) []*Datagram {
	chunkSize := mtu - datagramHeaderOverhead - frameHeaderOverhead
	if chunkSize <= 0 {
		chunkSize = 1
	}
	compoundSize := (len(payload) + chunkSize - 1) / chunkSize
	if compoundSize == 0 {
		compoundSize = 1
	}
	compoundID := cache.nextCompound()

	datagrams := make([]*Datagram, 0, compoundSize)
	for i := 0; i < compoundSize; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		frame := cache.NewFrame(Reliable, payload[start:end])
		frame.Fragment = &Fragment{
			CompoundSize: uint32(compoundSize),
			CompoundID:   compoundID,
			Index:        uint32(i),
		}
		datagrams = append(datagrams, &Datagram{
			SequenceNumber: cache.nextSequence(),
			Frames:         []*Frame{frame},
		})
	}
	return datagrams
}

// SendSingle wraps payload in one Frame with the requested reliability
// and places it in a single Datagram, advancing counters per spec.md §3
// invariants 3–5.
func SendSingle(payload []byte, reliability Reliability, cache *FrameNumberCache) *Datagram {
	frame := cache.NewFrame(reliability, payload)
	return &Datagram{
		SequenceNumber: cache.nextSequence(),
		Frames:         []*Frame{frame},
	}
}

// SendBatch places multiple Frames, each already stamped via NewFrame,
// into a single Datagram carrying one sequence number — used for the
// NewIncomingConnection + ConnectedPing datagram sent after
// ConnReqAccepted. RequestNetworkSettings is not part of that datagram;
// it follows in a datagram of its own.
func SendBatch(frames []*Frame, cache *FrameNumberCache) *Datagram {
	return &Datagram{
		SequenceNumber: cache.nextSequence(),
		Frames:         frames,
	}
}

// sentDatagram is a cache entry kept so a later NACK can trigger
// retransmission, per spec.md §4.C's "design contract" cache.
type sentDatagram struct {
	seq  uint32
	data []byte
	sent time.Time
}

// Receiver implements the receive side of the reliability layer:
// classification is external (IsDatagram); this type owns ACK/NACK
// emission, in-order delivery and fragment reassembly.
type Receiver struct {
	pendingDatagrams     map[uint32]*Datagram
	pendingFragments     map[uint16]map[uint32][]byte
	fragmentTotals       map[uint16]uint32
	fragmentTouched      map[uint16]time.Time
	lastReceivedSequence int64 // -1 until the first datagram arrives
	lastHandledSequence  int64 // -1 until the first delivery

	sentDatagrams   []sentDatagram
	retransmitSpan  time.Duration
	fragmentTimeout time.Duration
}

// NewReceiver returns a Receiver with the suggested 30s fragment eviction
// bound and retransmit-cache horizon from spec.md §5/§9's Open Questions.
func NewReceiver() *Receiver {
	return &Receiver{
		pendingDatagrams:     make(map[uint32]*Datagram),
		pendingFragments:     make(map[uint16]map[uint32][]byte),
		fragmentTotals:       make(map[uint16]uint32),
		fragmentTouched:      make(map[uint16]time.Time),
		lastReceivedSequence: -1,
		lastHandledSequence:  -1,
		retransmitSpan:       30 * time.Second,
		fragmentTimeout:      30 * time.Second,
	}
}

// ReceiveResult is what feeding one Datagram into the receiver produces:
// the acks/nacks to send immediately, and the payloads now ready for
// upper-layer dispatch, in delivery order.
type ReceiveResult struct {
	Acks     []byte   // single EncodeAck(AckTag, ...) packet, nil if none due
	Nacks    []byte   // single EncodeAck(NackTag, ...) packet, nil if none due
	Payloads [][]byte // assembled application payloads ready to dispatch
}

// Receive feeds one Datagram into the reliability layer: it emits the ACK
// for its sequence, emits NACKs for any gap per spec.md §4.C, inserts the
// datagram, then drains every contiguous sequence starting at
// lastHandledSequence+1, assembling fragments as they complete.
func (r *Receiver) Receive(d *Datagram) *ReceiveResult {
	result := &ReceiveResult{}
	seq := int64(d.SequenceNumber)

	// The first datagram of a session sets the baseline: no gap before it
	// is NACKed, and its frames are delivered at once.
	if r.lastReceivedSequence < 0 {
		r.lastReceivedSequence = seq - 1
		r.lastHandledSequence = seq - 1
	}

	result.Acks = EncodeAck(AckTag, []uint32{d.SequenceNumber})

	if seq > r.lastReceivedSequence+1 {
		missing := make([]uint32, 0, seq-r.lastReceivedSequence-1)
		for s := r.lastReceivedSequence + 1; s < seq; s++ {
			missing = append(missing, uint32(s))
		}
		result.Nacks = EncodeAck(NackTag, missing)
	}
	if seq > r.lastReceivedSequence {
		r.lastReceivedSequence = seq
	}

	r.pendingDatagrams[d.SequenceNumber] = d

	for {
		next := r.lastHandledSequence + 1
		pending, ok := r.pendingDatagrams[uint32(next)]
		if !ok {
			break
		}
		for _, frame := range pending.Frames {
			if payload, ready := r.resolveFrame(frame); ready {
				result.Payloads = append(result.Payloads, payload)
			}
		}
		delete(r.pendingDatagrams, uint32(next))
		r.lastHandledSequence = next
	}

	return result
}

// resolveFrame returns the frame's payload directly for non-fragmented
// frames. For fragmented frames it stores the chunk and, only once every
// chunk of that compound has arrived, returns the reassembled payload.
// Per the corrected behavior in spec.md §9's Open Question, an incomplete
// fragment set is simply deferred: fragment state lives independently of
// lastHandledSequence/pendingDatagrams and is resolved whenever the final
// chunk arrives, even if that chunk is in a later datagram.
func (r *Receiver) resolveFrame(frame *Frame) ([]byte, bool) {
	if frame.Fragment == nil {
		return frame.Body, true
	}
	frag := frame.Fragment
	set, ok := r.pendingFragments[frag.CompoundID]
	if !ok {
		set = make(map[uint32][]byte)
		r.pendingFragments[frag.CompoundID] = set
	}
	set[frag.Index] = frame.Body
	r.fragmentTotals[frag.CompoundID] = frag.CompoundSize
	r.fragmentTouched[frag.CompoundID] = time.Now()

	if uint32(len(set)) < frag.CompoundSize {
		return nil, false
	}

	indices := make([]uint32, 0, len(set))
	for idx := range set {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	total := 0
	for _, idx := range indices {
		total += len(set[idx])
	}
	assembled := make([]byte, 0, total)
	for _, idx := range indices {
		assembled = append(assembled, set[idx]...)
	}

	delete(r.pendingFragments, frag.CompoundID)
	delete(r.fragmentTotals, frag.CompoundID)
	delete(r.fragmentTouched, frag.CompoundID)
	return assembled, true
}

// EvictStaleFragments drops fragment sets that haven't received a new
// chunk within the receiver's fragment timeout, per spec.md §5's
// suggested 30s eviction bound. Returns the compound IDs dropped.
func (r *Receiver) EvictStaleFragments(now time.Time) []uint16 {
	var dropped []uint16
	for id, touched := range r.fragmentTouched {
		if now.Sub(touched) > r.fragmentTimeout {
			delete(r.pendingFragments, id)
			delete(r.fragmentTotals, id)
			delete(r.fragmentTouched, id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// RecordSent appends a just-transmitted datagram to the retransmit cache
// and evicts entries older than the configured horizon (FIFO by send
// time), per spec.md §4.C's design contract for the NACK-driven resend.
func (r *Receiver) RecordSent(seq uint32, data []byte) {
	now := time.Now()
	r.sentDatagrams = append(r.sentDatagrams, sentDatagram{seq: seq, data: data, sent: now})

	cut := 0
	for cut < len(r.sentDatagrams) && now.Sub(r.sentDatagrams[cut].sent) > r.retransmitSpan {
		cut++
	}
	if cut > 0 {
		r.sentDatagrams = r.sentDatagrams[cut:]
	}
}

// Retransmit looks up previously-sent datagram bytes by sequence number
// for a peer-issued NACK. Returns nil if the datagram has already aged
// out of the cache.
func (r *Receiver) Retransmit(seq uint32) ([]byte, bool) {
	for _, sd := range r.sentDatagrams {
		if sd.seq == seq {
			return sd.data, true
		}
	}
	return nil, false
}

// SetRetransmitSpan overrides the NACK retransmit-cache horizon.
func (r *Receiver) SetRetransmitSpan(d time.Duration) { r.retransmitSpan = d }

// SetFragmentTimeout overrides the idle-fragment eviction bound.
func (r *Receiver) SetFragmentTimeout(d time.Duration) { r.fragmentTimeout = d }

// LastReceivedSequence reports the highest sequence seen so far, or -1.
func (r *Receiver) LastReceivedSequence() int64 { return r.lastReceivedSequence }

// LastHandledSequence reports the highest sequence whose frames have been
// delivered, or -1.
func (r *Receiver) LastHandledSequence() int64 { return r.lastHandledSequence }
