package session

import "github.com/pkg/errors"

// Kind classifies why a session stopped, per spec.md §7's three fatal
// error kinds.
type Kind int

const (
	// TransportFatal covers socket/read errors and MTU negotiation
	// failure — the UDP path itself is unusable.
	TransportFatal Kind = iota
	// ProtocolFatal covers IncompatibleProtocol, a malformed
	// connection-setup packet, or a handshake reply the state machine
	// never expects in its current State.
	ProtocolFatal
	// CryptoFatal covers AEAD tag failures and malformed JWTs — the
	// derived session key cannot be trusted.
	CryptoFatal
)

func (k Kind) String() string {
	switch k {
	case TransportFatal:
		return "transport"
	case ProtocolFatal:
		return "protocol"
	case CryptoFatal:
		return "crypto"
	default:
		return "unknown"
	}
}

// Error wraps a causal error with the Kind that determines how a caller
// should react (retry the transport, give up on the server, rotate
// credentials, ...).
type Error struct {
	Kind  Kind
	State State
	cause error
}

func (e *Error) Error() string {
	return e.Kind.String() + " error in state " + e.State.String() + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

func wrapErr(kind Kind, state State, cause error, msg string) *Error {
	return &Error{Kind: kind, State: state, cause: errors.Wrap(cause, msg)}
}

func newErr(kind Kind, state State, msg string) *Error {
	return &Error{Kind: kind, State: state, cause: errors.New(msg)}
}
