// Package auth defines the narrow interface the external identity
// service must satisfy: spec.md §1 treats authentication as "assumed to
// yield a list of JWT strings, and a private EC key pair on curve P-384".
// This package owns nothing about how that chain is produced — XBL
// device-code flows, cached tokens, whatever — only the shape the
// handshake needs to forward it.
package auth

import (
	"github.com/raknet-bedrock/client/pkg/crypto"
)

// ChainSupplier is satisfied by whatever produces the signed JWT chain
// and EC key pair this client forwards verbatim in the Login packet.
type ChainSupplier interface {
	// Chain returns the ordered list of JWT strings proving the client's
	// identity.
	Chain() []string
	// KeyPair returns the P-384 key pair whose private half derives the
	// ServerToClientHandshake shared secret. The handshake signs nothing
	// with it.
	KeyPair() *crypto.KeyPair
}

// StaticSupplier is a ChainSupplier over an already-obtained chain and
// key pair — the common case when the caller ran its own auth flow out
// of process and hands this client the result.
type StaticSupplier struct {
	chain []string
	keys  *crypto.KeyPair
}

// NewStaticSupplier wraps a pre-fetched chain and key pair.
func NewStaticSupplier(chain []string, keys *crypto.KeyPair) *StaticSupplier {
	return &StaticSupplier{chain: chain, keys: keys}
}

func (s *StaticSupplier) Chain() []string          { return s.chain }
func (s *StaticSupplier) KeyPair() *crypto.KeyPair { return s.keys }
