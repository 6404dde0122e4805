package session

import (
	"context"
	"fmt"
	"net"
	"time"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/raknet-bedrock/client/pkg/crypto"
	"github.com/raknet-bedrock/client/pkg/events"
	"github.com/raknet-bedrock/client/pkg/gamepacket"
	"github.com/raknet-bedrock/client/pkg/raknet"
)

// Client drives one connection from Unconnected through LoggedIn (or
// Disconnected), holding the reliability cache/receiver, the game-packet
// codec, and whatever AEAD the encrypted handshake installs.
type Client struct {
	opts   Options
	conn   *net.UDPConn
	logger *logging.Logger

	state      State
	serverGUID uint64
	mtu        int

	cache    *raknet.FrameNumberCache
	receiver *raknet.Receiver
	codec    *gamepacket.Codec
	keys     *crypto.KeyPair

	pendingFrames [][]byte
	pendingGame   [][]byte
}

// Connect resolves host:port, drives the full handshake described in
// spec.md §4.E, and returns once the session reaches LoggedIn — or an
// error if any fatal condition from §7 occurs first.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	if err := opts.setDefaults(); err != nil {
		return nil, wrapErr(TransportFatal, Unconnected, err, "generate client GUID")
	}
	if opts.Auth == nil {
		return nil, newErr(ProtocolFatal, Unconnected, "session: Options.Auth is required")
	}
	if opts.Debug {
		logging.SetLevel(logging.DEBUG, "session")
	}

	raddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", opts.Host, opts.Port))
	if err != nil {
		return nil, wrapErr(TransportFatal, Unconnected, err, "resolve server address")
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, wrapErr(TransportFatal, Unconnected, err, "dial UDP socket")
	}

	c := &Client{
		opts:     opts,
		conn:     conn,
		logger:   logging.MustGetLogger("session"),
		state:    Unconnected,
		mtu:      opts.MTU,
		cache:    &raknet.FrameNumberCache{},
		receiver: raknet.NewReceiver(),
		codec:    gamepacket.NewCodec(),
		keys:     opts.Auth.KeyPair(),
	}
	c.receiver.SetRetransmitSpan(opts.RetransmitSpan)
	c.receiver.SetFragmentTimeout(opts.FragmentTimeout)

	if err := c.runHandshake(ctx); err != nil {
		c.setState(Disconnected)
		conn.Close()
		return nil, err
	}
	return c, nil
}

// State returns the session's current handshake state.
func (c *Client) State() State { return c.state }

// Close releases the underlying UDP socket.
func (c *Client) Close() error {
	c.setState(Disconnected)
	return c.conn.Close()
}

func (c *Client) setState(s State) {
	c.state = s
	c.opts.Events.Emit(events.Event{Type: events.StateChanged, Data: s})
}

func (c *Client) sendRaw(payload []byte) error {
	_, err := c.conn.Write(payload)
	return err
}

// sendFrame stamps payload as a single Frame of the given reliability,
// wraps it in a Datagram, records it for NACK-triggered retransmission,
// and writes it to the socket.
func (c *Client) sendFrame(reliability raknet.Reliability, payload []byte) error {
	dg := raknet.SendSingle(payload, reliability, c.cache)
	data := dg.Encode()
	c.receiver.RecordSent(dg.SequenceNumber, data)
	return c.sendRaw(data)
}

// sendBatch sends several frames coalesced into one Datagram; the
// handshake uses it for NewIncomingConnection + ConnectedPing.
// RequestNetworkSettings is sent afterwards in a separate Datagram, not
// in this one.
func (c *Client) sendBatch(frames []*raknet.Frame) error {
	dg := raknet.SendBatch(frames, c.cache)
	data := dg.Encode()
	c.receiver.RecordSent(dg.SequenceNumber, data)
	return c.sendRaw(data)
}

// sendGamePacket encodes a single application packet through the codec and
// sends it as one reliable-ordered frame, splitting across multiple Reliable
// frames via raknet.SplitPayload when the encoded envelope exceeds the
// negotiated MTU budget — per spec.md §4.E, which requires this of Login in
// particular ("send Login... split across multiple Reliable frames") since
// its JWT chain body routinely spans several kilobytes.
func (c *Client) sendGamePacket(payload []byte) error {
	envelope, err := c.codec.EncodeBatch([][]byte{payload})
	if err != nil {
		return err
	}
	if raknet.FitsUnfragmented(envelope, c.mtu) {
		return c.sendFrame(raknet.ReliableOrdered, envelope)
	}
	for _, dg := range raknet.SplitPayload(envelope, c.mtu, c.cache) {
		data := dg.Encode()
		c.receiver.RecordSent(dg.SequenceNumber, data)
		if err := c.sendRaw(data); err != nil {
			return err
		}
	}
	return nil
}

// readRaw blocks until one UDP datagram arrives or opts.ReadTimeout
// elapses, per spec.md §5's bounded blocking read.
func (c *Client) readRaw() ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout)); err != nil {
		return nil, err
	}
	buf := make([]byte, 65536)
	n, err := c.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
