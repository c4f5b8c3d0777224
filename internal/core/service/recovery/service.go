// Package recovery implements the HMAC-bound recovery protocol: challenge
// issuance and the seven-step verification that ends in minting a recovery
// code from the external identity store.
package recovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/crypto"
)

// challengeTTL is the window a challenge stays valid, enforced by timestamp
// inspection alone; no sweep is needed since expiry is checked at
// verification time.
const challengeTTL = 5 * time.Minute

// Challenge is the issued challenge/hmac pair.
type Challenge struct {
	Challenge string
	HMAC      string
}

// VerifyResult is the identity-store recovery grant.
type VerifyResult struct {
	RecoveryCode    string
	RecoveryFlowURL string
}

// Service issues and verifies recovery challenges.
type Service struct {
	agents   port.AgentRepository
	nonces   port.NonceRepository
	identity port.IdentityAdmin
	secret   []byte
}

// NewService creates a recovery Service. secret is the server-held HMAC key
// (RECOVERY_CHALLENGE_SECRET, >= 16 bytes).
func NewService(agents port.AgentRepository, nonces port.NonceRepository, identity port.IdentityAdmin, secret string) *Service {
	return &Service{agents: agents, nonces: nonces, identity: identity, secret: []byte(secret)}
}

// IssueChallenge builds "moltnet:recovery:<publicKey>:<nonce>:<unixMillis>"
// and its HMAC for an agent identified by publicKey.
func (s *Service) IssueChallenge(ctx context.Context, publicKey string) (*Challenge, error) {
	if _, err := s.agents.FindByPublicKey(ctx, publicKey); err != nil {
		return nil, err
	}

	nonce, err := crypto.RandomHex(32)
	if err != nil {
		return nil, fmt.Errorf("generating challenge nonce: %w", err)
	}

	challenge := fmt.Sprintf("moltnet:recovery:%s:%s:%d", publicKey, nonce, time.Now().UTC().UnixMilli())
	hmac := crypto.HMACSHA256([]byte(challenge), s.secret)

	return &Challenge{Challenge: challenge, HMAC: hmac}, nil
}

// Verify runs the seven-step verification protocol. publicKey is the
// caller-asserted key; it must match the one embedded in challenge.
func (s *Service) Verify(ctx context.Context, challenge, hmacValue, signature, publicKey string) (*VerifyResult, error) {
	// Step 1: parse into six colon-separated segments. publicKey itself is
	// "ed25519:<base64>", so it contributes two of the six segments.
	parts := strings.Split(challenge, ":")
	if len(parts) != 6 || parts[0] != "moltnet" || parts[1] != "recovery" {
		return nil, entity.ErrInvalidChallenge
	}
	embeddedPublicKey := parts[2] + ":" + parts[3]
	nonce := parts[4]
	tsMillis, err := strconv.ParseInt(parts[5], 10, 64)
	if err != nil {
		return nil, entity.ErrInvalidChallenge
	}

	// Step 2: embedded key must match the caller-asserted key.
	if embeddedPublicKey != publicKey {
		return nil, fmt.Errorf("%w: challenge was issued for a different key", entity.ErrInvalidChallenge)
	}

	// Step 3: constant-time HMAC comparison.
	expectedHMAC := crypto.HMACSHA256([]byte(challenge), s.secret)
	if !crypto.ConstantTimeEqual(expectedHMAC, hmacValue) {
		return nil, entity.ErrInvalidChallenge
	}

	// Step 4: timestamp window.
	issuedAt := time.UnixMilli(tsMillis).UTC()
	now := time.Now().UTC()
	if issuedAt.After(now) || now.Sub(issuedAt) > challengeTTL {
		return nil, fmt.Errorf("%w: challenge expired", entity.ErrInvalidChallenge)
	}

	// Step 5: one-time nonce consumption.
	consumed, err := s.nonces.Consume(ctx, nonce, challengeTTL)
	if err != nil {
		return nil, fmt.Errorf("consuming recovery nonce: %w", err)
	}
	if !consumed {
		return nil, fmt.Errorf("%w: challenge already used", entity.ErrInvalidChallenge)
	}

	// Step 6: Ed25519 verification over the raw challenge string.
	if !crypto.Verify([]byte(challenge), signature, publicKey) {
		return nil, entity.ErrInvalidSignature
	}

	// Step 7: resolve agent, mint recovery code.
	agent, err := s.agents.FindByPublicKey(ctx, publicKey)
	if err != nil {
		return nil, err
	}

	code, flowURL, err := s.identity.MintRecoveryCode(ctx, agent.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUpstream, err)
	}
	return &VerifyResult{RecoveryCode: code, RecoveryFlowURL: flowURL}, nil
}
