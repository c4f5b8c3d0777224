package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltnet/moltnet/internal/crypto"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("hello moltnet")
	sig := crypto.Sign(msg, kp.Private)

	assert.True(t, crypto.Verify(msg, sig, kp.Public))
	assert.False(t, crypto.Verify([]byte("hexlo moltnet"), sig, kp.Public))

	tampered := []byte(sig)
	tampered[len(tampered)-1] ^= 1
	assert.False(t, crypto.Verify(msg, string(tampered), kp.Public))
}

func TestSignWithNonceRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	sig := crypto.SignWithNonce("Hello from e2e", "abc123", kp.Private)
	assert.True(t, crypto.VerifyWithNonce("Hello from e2e", "abc123", sig, kp.Public))
	assert.False(t, crypto.VerifyWithNonce("Hello from e2e", "other-nonce", sig, kp.Public))
}

func TestFingerprintDeterministic(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	raw, err := crypto.DecodePublicKey(kp.Public)
	require.NoError(t, err)

	fp1 := crypto.Fingerprint(raw)
	fp2, err := crypto.FingerprintFromString(kp.Public)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 19)
	assert.Regexp(t, `^[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}$`, fp1)
}

func TestHMACConstantTime(t *testing.T) {
	secret := []byte("supersecretsupersecret")
	mac := crypto.HMACSHA256([]byte("payload"), secret)
	assert.True(t, crypto.ConstantTimeEqual(mac, mac))
	assert.False(t, crypto.ConstantTimeEqual(mac, mac+"x"))
}

func TestDecodePublicKeyAcceptsBareBase64(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	bare := kp.Public[len("ed25519:"):]
	raw1, err := crypto.DecodePublicKey(kp.Public)
	require.NoError(t, err)
	raw2, err := crypto.DecodePublicKey(bare)
	require.NoError(t, err)
	assert.Equal(t, raw1, raw2)
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	assert.False(t, crypto.Verify([]byte("x"), "not-base64!!", "also-not-base64!!"))
}
