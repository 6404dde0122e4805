package crypto

import (
	"crypto/ecdh"
	"crypto/sha256"

	"github.com/pkg/errors"
)

// SharedSecret performs classic ECDH between the local private key and
// the peer's public key, recovered from the peer's JWT `x5u` header.
func SharedSecret(local *ecdh.PrivateKey, peer *ecdh.PublicKey) ([]byte, error) {
	secret, err := local.ECDH(peer)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: ECDH agreement")
	}
	return secret, nil
}

// DeriveSessionKey computes K = SHA-256(salt ‖ shared_secret), per spec.md
// §4.D. salt is the base64-decoded `salt` field from the peer's JWT
// payload. The resulting 32 bytes are used directly as the AEAD key.
func DeriveSessionKey(salt, sharedSecret []byte) [32]byte {
	h := sha256.New()
	h.Write(salt)
	h.Write(sharedSecret)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
