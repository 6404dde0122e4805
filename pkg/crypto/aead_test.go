package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAEADRoundTrip(t *testing.T) {
	key := DeriveSessionKey([]byte("salt"), []byte("shared-secret"))
	sender, err := NewAEAD(key)
	require.NoError(t, err)
	receiver, err := NewAEAD(key)
	require.NoError(t, err)

	plaintext := []byte("resource pack client response")
	framed := sender.Encrypt(plaintext)

	decoded, err := receiver.Decrypt(framed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decoded)
}

func TestAEADCountersAdvance(t *testing.T) {
	key := DeriveSessionKey([]byte("salt"), []byte("secret"))
	sender, err := NewAEAD(key)
	require.NoError(t, err)
	receiver, err := NewAEAD(key)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		framed := sender.Encrypt([]byte("message"))
		_, err := receiver.Decrypt(framed)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, sender.sendCount)
	assert.EqualValues(t, 3, receiver.recvCount)
}

// Scenario 6 from spec.md §8: re-ordering two encrypted messages causes
// the second's tag verification to fail.
func TestAEADCounterTamperingDetected(t *testing.T) {
	key := DeriveSessionKey([]byte("salt"), []byte("secret"))
	sender, err := NewAEAD(key)
	require.NoError(t, err)
	receiver, err := NewAEAD(key)
	require.NoError(t, err)

	first := sender.Encrypt([]byte("one"))
	second := sender.Encrypt([]byte("two"))

	// Deliver out of order: second first, consuming recv counter 0 when
	// it was sealed under counter 1.
	_, err = receiver.Decrypt(second)
	assert.Error(t, err)

	// first was sealed under counter 0 but the receiver's counter is now
	// at 1, so it too fails.
	_, err = receiver.Decrypt(first)
	assert.Error(t, err)
}

func TestSharedSecretDeterministic(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	bob, err := GenerateKeyPair()
	require.NoError(t, err)

	aliceSecret, err := SharedSecret(alice.Private, bob.Private.PublicKey())
	require.NoError(t, err)
	bobSecret, err := SharedSecret(bob.Private, alice.Private.PublicKey())
	require.NoError(t, err)

	assert.Equal(t, aliceSecret, bobSecret)
}

func TestPublicSPKIRoundTrip(t *testing.T) {
	pair, err := GenerateKeyPair()
	require.NoError(t, err)

	spki, err := pair.PublicSPKI()
	require.NoError(t, err)

	der, err := base64.StdEncoding.DecodeString(spki)
	require.NoError(t, err)

	pub, err := ParsePublicSPKI(der)
	require.NoError(t, err)
	assert.Equal(t, pair.Private.PublicKey().Bytes(), pub.Bytes())
}
