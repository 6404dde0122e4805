package session

import (
	"time"

	"github.com/raknet-bedrock/client/pkg/raknet"
)

// classify labels one received UDP payload so the receive loop knows
// which path to take: an ACK/NACK control packet, a reliability
// Datagram carrying application Frames, or a raw connection-setup packet
// exchanged before the reliable phase begins.
type payloadKind int

const (
	kindAck payloadKind = iota
	kindNack
	kindDatagram
	kindConnectionSetup
)

func classify(payload []byte) payloadKind {
	if len(payload) == 0 {
		return kindConnectionSetup
	}
	switch payload[0] {
	case raknet.AckTag:
		return kindAck
	case raknet.NackTag:
		return kindNack
	}
	if raknet.IsDatagram(payload) {
		return kindDatagram
	}
	return kindConnectionSetup
}

// handleInbound classifies and processes one received UDP payload,
// returning every application-layer Frame body it produced (empty for
// ACK/NACK/connection-setup packets that don't carry one).
func (c *Client) handleInbound(payload []byte) ([][]byte, error) {
	switch classify(payload) {
	case kindAck:
		ack, err := raknet.DecodeAck(payload)
		if err != nil {
			return nil, wrapErr(ProtocolFatal, c.state, err, "decode ACK")
		}
		c.logger.Debugf("ack received for %d sequence(s)", len(ack.Sequences))
		return nil, nil

	case kindNack:
		nack, err := raknet.DecodeAck(payload)
		if err != nil {
			return nil, wrapErr(ProtocolFatal, c.state, err, "decode NACK")
		}
		for _, seq := range nack.Sequences {
			if data, ok := c.receiver.Retransmit(seq); ok {
				if err := c.sendRaw(data); err != nil {
					return nil, wrapErr(TransportFatal, c.state, err, "retransmit after NACK")
				}
			}
		}
		return nil, nil

	case kindDatagram:
		dg, err := raknet.DecodeDatagram(payload)
		if err != nil {
			return nil, wrapErr(ProtocolFatal, c.state, err, "decode datagram")
		}
		c.receiver.EvictStaleFragments(time.Now())
		result := c.receiver.Receive(dg)
		if len(result.Acks) > 0 {
			if err := c.sendRaw(result.Acks); err != nil {
				return nil, wrapErr(TransportFatal, c.state, err, "send ACK")
			}
		}
		if len(result.Nacks) > 0 {
			if err := c.sendRaw(result.Nacks); err != nil {
				return nil, wrapErr(TransportFatal, c.state, err, "send NACK")
			}
		}
		return result.Payloads, nil

	default: // kindConnectionSetup
		return [][]byte{payload}, nil
	}
}
