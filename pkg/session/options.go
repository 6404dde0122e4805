package session

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/raknet-bedrock/client/pkg/auth"
	"github.com/raknet-bedrock/client/pkg/events"
)

const (
	defaultMTU             = 1400
	defaultTimeout         = 30 * time.Second
	defaultFragmentTimeout = 30 * time.Second
	defaultRetransmitSpan  = 30 * time.Second
	defaultRakNetProtocol  = 11
)

// Options configures a session.Connect call. Host/Port/ProtocolVersion
// and the auth chain are the four core parameters spec.md §6 names for
// its single connect(...) call; everything else has an idiomatic
// zero-value default.
type Options struct {
	Host            string
	Port            uint16
	ProtocolVersion int32
	Auth            auth.ChainSupplier

	// ClientGUID identifies this session to the server. Left zero, a
	// random value is generated via crypto/rand — the original
	// implementation this spec was distilled from uses a non-cryptographic
	// PRNG for this; generating it from crypto/rand is a deliberate
	// improvement, not a behavior change the spec forbids.
	ClientGUID int64

	MTU             int
	ReadTimeout     time.Duration
	FragmentTimeout time.Duration
	RetransmitSpan  time.Duration

	// Debug gates verbose per-packet tracing, matching the original
	// implementation's debug flag.
	Debug bool

	// Events receives session lifecycle notifications. A caller that
	// doesn't care can leave this nil.
	Events *events.Manager
}

func (o *Options) setDefaults() error {
	if o.MTU == 0 {
		o.MTU = defaultMTU
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = defaultTimeout
	}
	if o.FragmentTimeout == 0 {
		o.FragmentTimeout = defaultFragmentTimeout
	}
	if o.RetransmitSpan == 0 {
		o.RetransmitSpan = defaultRetransmitSpan
	}
	if o.ProtocolVersion == 0 {
		o.ProtocolVersion = defaultRakNetProtocol
	}
	if o.ClientGUID == 0 {
		guid, err := randomGUID()
		if err != nil {
			return err
		}
		o.ClientGUID = guid
	}
	if o.Events == nil {
		o.Events = events.NewManager()
	}
	return nil
}

func randomGUID() (int64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}
