package session

import (
	"fmt"
	"time"

	"github.com/raknet-bedrock/client/pkg/gamepacket"
	"github.com/raknet-bedrock/client/pkg/raknet"
)

// readConnectionSetup reads raw UDP payloads (phase 1, before any Datagram
// is exchanged) until one matches the expected connection-setup tag,
// reacting to IncompatibleProtocol as a protocol-fatal condition per
// spec.md §7 along the way.
func (c *Client) readConnectionSetup(expect raknet.PacketType) ([]byte, error) {
	for {
		payload, err := c.readRaw()
		if err != nil {
			return nil, wrapErr(TransportFatal, c.state, err, "read connection-setup packet")
		}
		tag := raknet.PacketTypeOf(payload[0])
		if tag == raknet.PacketIncompatibleProtocol {
			incompatible, decodeErr := raknet.DecodeIncompatibleProtocol(payload)
			if decodeErr != nil {
				return nil, wrapErr(ProtocolFatal, c.state, decodeErr, "decode IncompatibleProtocol")
			}
			return nil, newErr(ProtocolFatal, c.state,
				fmt.Sprintf("server rejected protocol version: server supports %d", incompatible.ServerProtocol))
		}
		if tag == expect {
			return payload, nil
		}
		c.logger.Debugf("ignoring unexpected connection-setup packet 0x%02x while awaiting 0x%02x", payload[0], byte(expect))
	}
}

// nextFramePayload returns the next assembled Frame body satisfying
// accept, transparently answering ConnectedPing with ConnectedPong and
// surfacing a DisconnectionNotification as a transport-fatal error.
// Payloads that don't satisfy accept are queued so a later wait can still
// find them (packets can arrive out of the order this client asks for
// them in).
func (c *Client) nextFramePayload(accept func([]byte) bool) ([]byte, error) {
	for i, queued := range c.pendingFrames {
		if accept(queued) {
			c.pendingFrames = append(c.pendingFrames[:i], c.pendingFrames[i+1:]...)
			return queued, nil
		}
	}

	for {
		raw, err := c.readRaw()
		if err != nil {
			return nil, wrapErr(TransportFatal, c.state, err, "read frame")
		}
		payloads, err := c.handleInbound(raw)
		if err != nil {
			return nil, err
		}
		for _, payload := range payloads {
			switch {
			case raknet.IsOnlineDisconnect(payload):
				return nil, newErr(TransportFatal, c.state, "server sent DisconnectionNotification")
			case len(payload) > 0 && raknet.OnlinePacketID(payload[0]) == raknet.ConnectedPing:
				if pingErr := c.respondToPing(payload); pingErr != nil {
					return nil, pingErr
				}
			case len(payload) > 0 && raknet.OnlinePacketID(payload[0]) == raknet.ConnectedPong:
				// liveness only, nothing to do
			case accept(payload):
				return payload, nil
			default:
				c.pendingFrames = append(c.pendingFrames, payload)
			}
		}
	}
}

func (c *Client) respondToPing(payload []byte) error {
	ping, err := raknet.DecodeConnectedPing(payload)
	if err != nil {
		return wrapErr(ProtocolFatal, c.state, err, "decode ConnectedPing")
	}
	pong := &raknet.ConnectedPongPacket{PingTime: ping.PingTime, PongTime: time.Now().UnixMilli()}
	return wrapErrIfNotNil(TransportFatal, c.state, c.sendFrame(raknet.Unreliable, pong.Encode()), "send ConnectedPong")
}

// nextGamePacket returns the next application packet of the given ID from
// inside a Game envelope, decompressing/decrypting per the codec's
// current EncodingMode and queuing any other packets it unwraps along
// the way for subsequent waits.
func (c *Client) nextGamePacket(id gamepacket.PacketID) ([]byte, error) {
	for i, queued := range c.pendingGame {
		gotID, err := gamepacket.PeekID(queued)
		if err == nil && gotID == id {
			c.pendingGame = append(c.pendingGame[:i], c.pendingGame[i+1:]...)
			return queued, nil
		}
	}

	for {
		envelope, err := c.nextFramePayload(raknet.IsGamePacket)
		if err != nil {
			return nil, err
		}
		packets, err := c.codec.DecodeBatch(envelope)
		if err != nil {
			return nil, wrapErr(CryptoFatal, c.state, err, "decode game batch")
		}
		var match []byte
		for _, pkt := range packets {
			gotID, err := gamepacket.PeekID(pkt)
			if err != nil {
				c.logger.Debugf("skipping malformed game packet: %v", err)
				continue
			}
			if gotID == id && match == nil {
				match = pkt
				continue
			}
			c.pendingGame = append(c.pendingGame, pkt)
		}
		if match != nil {
			return match, nil
		}
	}
}
