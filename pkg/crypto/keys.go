// Package crypto implements the narrow cryptographic surface the
// handshake needs: ECDH key agreement on P-384, session-key derivation,
// and the non-standard "fake GCM" AEAD Bedrock actually speaks.
//
// The AEAD here is deliberately NOT a standard construction — per the
// design notes, it must match the peer bit-exactly, so this package is
// the one place in the repository that reaches for crypto/* primitives
// directly instead of a third-party AEAD: no published AEAD
// implementation will produce these bytes.
package crypto

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

// KeyPair is the client's ephemeral P-384 identity: the private key,
// whose public half PublicSPKI renders in the base64 DER
// SubjectPublicKeyInfo form a JWT `x5u` header carries.
type KeyPair struct {
	Private *ecdh.PrivateKey
}

// GenerateKeyPair creates a fresh P-384 EC key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdh.P384().GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: generate P-384 key")
	}
	return &KeyPair{Private: priv}, nil
}

// PublicSPKI returns the base64-encoded DER SubjectPublicKeyInfo form of
// the key pair's public key, for use as a JWT `x5u` header.
func (k *KeyPair) PublicSPKI() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(k.Private.PublicKey())
	if err != nil {
		return "", errors.Wrap(err, "crypto: marshal public SPKI")
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// ParsePublicSPKI decodes a peer's DER SubjectPublicKeyInfo (the `x5u`
// header value, already base64-decoded) into an ECDH public key on
// P-384.
func ParsePublicSPKI(der []byte) (*ecdh.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: parse peer SPKI")
	}
	switch key := pub.(type) {
	case *ecdh.PublicKey:
		return key, nil
	case *ecdsa.PublicKey:
		return key.ECDH()
	default:
		return nil, errors.New("crypto: peer public key is not an EC key")
	}
}

// B64URLDecode decodes base64url input, tolerant of missing padding — the
// form JWT header/payload segments use.
func B64URLDecode(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: base64url decode")
	}
	return b, nil
}
