// Package crypto implements the Ed25519/HMAC primitives agents use to prove
// control of their keypair: signing, verification, fingerprint derivation,
// and the nonce-bound variants used by the signing-request and recovery
// protocols.
package crypto

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	sigPrefix = "ed25519:"
	pkPrefix  = "ed25519:"
)

var (
	// ErrInvalidPublicKey is returned when a public-key string cannot be decoded
	// into 32 raw bytes.
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")
	// ErrInvalidSignature is returned when a signature string cannot be decoded
	// into 64 raw bytes.
	ErrInvalidSignature = errors.New("crypto: invalid signature")
)

// KeyPair holds a generated Ed25519 keypair, with Public already rendered as
// the `ed25519:<base64>` wire format.
type KeyPair struct {
	Public  string
	Private ed25519.PrivateKey
}

// GenerateKeyPair creates a fresh Ed25519 keypair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ed25519 key: %w", err)
	}
	return &KeyPair{
		Public:  EncodePublicKey(pub),
		Private: priv,
	}, nil
}

// EncodePublicKey renders raw public-key bytes as `ed25519:<base64>`.
func EncodePublicKey(raw []byte) string {
	return pkPrefix + base64.StdEncoding.EncodeToString(raw)
}

// DecodePublicKey accepts either `ed25519:<base64>` or bare base64 and
// returns the raw 32-byte key.
func DecodePublicKey(s string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, pkPrefix))
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	return ed25519.PublicKey(raw), nil
}

// decodeSignature accepts either `ed25519:<base64>` or bare base64 and
// returns the raw 64-byte signature.
func decodeSignature(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, sigPrefix))
	if err != nil || len(raw) != ed25519.SignatureSize {
		return nil, ErrInvalidSignature
	}
	return raw, nil
}

// Sign signs msg with priv and returns the `ed25519:<base64>` signature
// string.
func Sign(msg []byte, priv ed25519.PrivateKey) string {
	sig := ed25519.Sign(priv, msg)
	return sigPrefix + base64.StdEncoding.EncodeToString(sig)
}

// Verify checks sig against msg using the string-form public key. Any
// malformed input is treated as a verification failure, never an error.
func Verify(msg []byte, sig string, pubKey string) bool {
	pub, err := DecodePublicKey(pubKey)
	if err != nil {
		return false
	}
	raw, err := decodeSignature(sig)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, msg, raw)
}

// SignWithNonce signs the concatenation msg + "." + nonce.
func SignWithNonce(msg, nonce string, priv ed25519.PrivateKey) string {
	return Sign([]byte(msg+"."+nonce), priv)
}

// VerifyWithNonce verifies a signature over msg + "." + nonce.
func VerifyWithNonce(msg, nonce, sig, pubKey string) bool {
	return Verify([]byte(msg+"."+nonce), sig, pubKey)
}

// Fingerprint derives the 19-char `XXXX-XXXX-XXXX-XXXX` identity string from
// a raw 32-byte public key: the first 8 bytes of SHA-256, uppercase hex,
// hyphenated every 4 characters.
func Fingerprint(rawPubKey []byte) string {
	sum := sha256.Sum256(rawPubKey)
	h := strings.ToUpper(hex.EncodeToString(sum[:8]))
	return h[0:4] + "-" + h[4:8] + "-" + h[8:12] + "-" + h[12:16]
}

// FingerprintFromString derives the fingerprint from a public-key string in
// either `ed25519:<base64>` or bare base64 form.
func FingerprintFromString(pubKey string) (string, error) {
	raw, err := DecodePublicKey(pubKey)
	if err != nil {
		return "", err
	}
	return Fingerprint(raw), nil
}

// HMACSHA256 returns the hex-encoded HMAC-SHA256 of data keyed by secret.
func HMACSHA256(data, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// ConstantTimeEqual compares two hex-encoded digests in constant time.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RandomHex returns n random bytes rendered as hex (2n characters). Used for
// signing-request nonces, voucher codes, and recovery-challenge nonces.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
