package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"

	"github.com/pkg/errors"
)

// tagSize is the truncated SHA-256 tag length this construction appends
// to every ciphertext.
const tagSize = 8

// AEAD implements the "fake GCM" construction from spec.md §4.D: AES-256-CTR
// plus a truncated 8-byte SHA-256 tag, with independent per-direction
// monotonic packet counters. It is NOT interoperable with standard AES-GCM
// — see the package doc comment.
type AEAD struct {
	key       [32]byte
	block     cipher.Block
	sendCount uint64
	recvCount uint64
}

// NewAEAD constructs an AEAD from the session key derived via
// DeriveSessionKey. Both directions' counters start at zero.
func NewAEAD(key [32]byte) (*AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Wrap(err, "crypto: AES-256 cipher init")
	}
	return &AEAD{key: key, block: block}, nil
}

// iv returns the 16-byte CTR counter block: the first 12 bytes of the
// session key followed by four zero bytes, per the implementation contract
// in spec.md §4.D. This is safe ONLY
// because the key itself is single-use per session and never reused for
// a second AEAD construction.
func (a *AEAD) iv() []byte {
	iv := make([]byte, aes.BlockSize)
	copy(iv, a.key[:12])
	return iv
}

// Encrypt seals plaintext using the send-direction counter, advancing it
// by exactly one. Output is AES-CTR(plaintext) ‖ tag.
func (a *AEAD) Encrypt(plaintext []byte) []byte {
	counter := a.sendCount
	a.sendCount++

	ciphertext := a.xor(plaintext)
	tag := a.computeTag(counter, plaintext)
	return append(ciphertext, tag...)
}

// Decrypt opens an AEAD-framed message using the recv-direction counter,
// advancing it by exactly one. It returns an error if the tag doesn't
// match — this is the only way crypto fatal errors (§7 kind 3) surface
// from this package, e.g. when messages are re-ordered or tampered with.
func (a *AEAD) Decrypt(framed []byte) ([]byte, error) {
	if len(framed) < tagSize {
		return nil, errors.New("crypto: ciphertext shorter than tag")
	}
	counter := a.recvCount
	a.recvCount++

	ciphertext := framed[:len(framed)-tagSize]
	gotTag := framed[len(framed)-tagSize:]

	plaintext := a.xor(ciphertext)
	wantTag := a.computeTag(counter, plaintext)
	if !constantTimeEqual(gotTag, wantTag) {
		return nil, errors.New("crypto: AEAD tag mismatch")
	}
	return plaintext, nil
}

// xor runs the AES block cipher in CTR mode over data; CTR is symmetric,
// so this single helper serves both directions.
func (a *AEAD) xor(data []byte) []byte {
	stream := cipher.NewCTR(a.block, a.iv())
	out := make([]byte, len(data))
	stream.XORKeyStream(out, data)
	return out
}

// computeTag hashes counter_le64 ‖ plaintext ‖ key and truncates to
// tagSize, per spec.md §4.D.
func (a *AEAD) computeTag(counter uint64, plaintext []byte) []byte {
	h := sha256.New()
	var counterLE [8]byte
	binary.LittleEndian.PutUint64(counterLE[:], counter)
	h.Write(counterLE[:])
	h.Write(plaintext)
	h.Write(a.key[:])
	return h.Sum(nil)[:tagSize]
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
