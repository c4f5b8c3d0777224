package recovery

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/crypto"
)

const testSecret = "0123456789abcdef"

type fakeAgentRepo struct {
	byPublicKey map[string]*entity.Agent
}

func (r *fakeAgentRepo) FindByID(context.Context, string) (*entity.Agent, error) {
	return nil, entity.ErrAgentNotFound
}
func (r *fakeAgentRepo) FindByFingerprint(context.Context, string) (*entity.Agent, error) {
	return nil, entity.ErrAgentNotFound
}
func (r *fakeAgentRepo) FindByIdentityID(context.Context, string) (*entity.Agent, error) {
	return nil, entity.ErrAgentNotFound
}
func (r *fakeAgentRepo) FindByPublicKey(_ context.Context, publicKey string) (*entity.Agent, error) {
	a, ok := r.byPublicKey[publicKey]
	if !ok {
		return nil, entity.ErrAgentNotFound
	}
	return a, nil
}
func (r *fakeAgentRepo) Upsert(_ context.Context, _ port.Tx, a *entity.Agent) (*entity.Agent, error) {
	r.byPublicKey[a.PublicKey] = a
	return a, nil
}
func (r *fakeAgentRepo) Delete(context.Context, string) error { return nil }

type fakeNonceRepo struct {
	mu      sync.Mutex
	consumed map[string]bool
}

func newFakeNonceRepo() *fakeNonceRepo {
	return &fakeNonceRepo{consumed: make(map[string]bool)}
}

func (r *fakeNonceRepo) Consume(_ context.Context, nonce string, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.consumed[nonce] {
		return false, nil
	}
	r.consumed[nonce] = true
	return true, nil
}

func (r *fakeNonceRepo) PruneExpired(context.Context, time.Time) (int, error) { return 0, nil }

type fakeIdentityAdmin struct{}

func (fakeIdentityAdmin) CreateIdentity(context.Context, port.IdentityTraits) (string, error) {
	return "identity-1", nil
}
func (fakeIdentityAdmin) DeleteIdentity(context.Context, string) error { return nil }
func (fakeIdentityAdmin) MintRecoveryCode(_ context.Context, identityID string) (string, string, error) {
	return "recovery-code-1", "https://identity.example/recovery/flow-1", nil
}

func newTestAgentAndKeys(t *testing.T) (*entity.Agent, *crypto.KeyPair) {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	agent := &entity.Agent{ID: "agent-1", IdentityID: "identity-1", PublicKey: kp.Public}
	return agent, kp
}

func TestService_IssueChallenge_UnknownKeyIsNotFound(t *testing.T) {
	svc := NewService(&fakeAgentRepo{byPublicKey: map[string]*entity.Agent{}}, newFakeNonceRepo(), fakeIdentityAdmin{}, testSecret)

	_, err := svc.IssueChallenge(context.Background(), "ed25519:does-not-exist")
	assert.ErrorIs(t, err, entity.ErrAgentNotFound)
}

func TestService_IssueChallenge_ThenVerify_FullRoundTrip(t *testing.T) {
	agent, kp := newTestAgentAndKeys(t)
	agents := &fakeAgentRepo{byPublicKey: map[string]*entity.Agent{agent.PublicKey: agent}}
	svc := NewService(agents, newFakeNonceRepo(), fakeIdentityAdmin{}, testSecret)

	ch, err := svc.IssueChallenge(context.Background(), agent.PublicKey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ch.Challenge, "moltnet:recovery:"))

	signature := crypto.Sign([]byte(ch.Challenge), kp.Private)
	result, err := svc.Verify(context.Background(), ch.Challenge, ch.HMAC, signature, agent.PublicKey)

	require.NoError(t, err)
	assert.Equal(t, "recovery-code-1", result.RecoveryCode)
	assert.Equal(t, "https://identity.example/recovery/flow-1", result.RecoveryFlowURL)
}

func TestService_Verify_TamperedHMACIsInvalid(t *testing.T) {
	agent, kp := newTestAgentAndKeys(t)
	agents := &fakeAgentRepo{byPublicKey: map[string]*entity.Agent{agent.PublicKey: agent}}
	svc := NewService(agents, newFakeNonceRepo(), fakeIdentityAdmin{}, testSecret)

	ch, err := svc.IssueChallenge(context.Background(), agent.PublicKey)
	require.NoError(t, err)

	signature := crypto.Sign([]byte(ch.Challenge), kp.Private)
	_, err = svc.Verify(context.Background(), ch.Challenge, "not-the-real-hmac", signature, agent.PublicKey)
	assert.ErrorIs(t, err, entity.ErrInvalidChallenge)
}

func TestService_Verify_ReplayedNonceIsRejected(t *testing.T) {
	agent, kp := newTestAgentAndKeys(t)
	agents := &fakeAgentRepo{byPublicKey: map[string]*entity.Agent{agent.PublicKey: agent}}
	svc := NewService(agents, newFakeNonceRepo(), fakeIdentityAdmin{}, testSecret)

	ch, err := svc.IssueChallenge(context.Background(), agent.PublicKey)
	require.NoError(t, err)
	signature := crypto.Sign([]byte(ch.Challenge), kp.Private)

	_, err = svc.Verify(context.Background(), ch.Challenge, ch.HMAC, signature, agent.PublicKey)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), ch.Challenge, ch.HMAC, signature, agent.PublicKey)
	assert.ErrorIs(t, err, entity.ErrInvalidChallenge)
}

func TestService_Verify_ExpiredChallengeIsRejected(t *testing.T) {
	agent, kp := newTestAgentAndKeys(t)
	agents := &fakeAgentRepo{byPublicKey: map[string]*entity.Agent{agent.PublicKey: agent}}
	svc := NewService(agents, newFakeNonceRepo(), fakeIdentityAdmin{}, testSecret)

	staleMillis := time.Now().UTC().Add(-10 * time.Minute).UnixMilli()
	challenge := "moltnet:recovery:" + agent.PublicKey + ":somenonce:" + strconv.FormatInt(staleMillis, 10)
	hmacValue := crypto.HMACSHA256([]byte(challenge), []byte(testSecret))
	signature := crypto.Sign([]byte(challenge), kp.Private)

	_, err := svc.Verify(context.Background(), challenge, hmacValue, signature, agent.PublicKey)
	assert.ErrorIs(t, err, entity.ErrInvalidChallenge)
}

func TestService_Verify_KeyMismatchIsRejected(t *testing.T) {
	agent, kp := newTestAgentAndKeys(t)
	other, _ := newTestAgentAndKeys(t)
	agents := &fakeAgentRepo{byPublicKey: map[string]*entity.Agent{agent.PublicKey: agent, other.PublicKey: other}}
	svc := NewService(agents, newFakeNonceRepo(), fakeIdentityAdmin{}, testSecret)

	ch, err := svc.IssueChallenge(context.Background(), agent.PublicKey)
	require.NoError(t, err)
	signature := crypto.Sign([]byte(ch.Challenge), kp.Private)

	_, err = svc.Verify(context.Background(), ch.Challenge, ch.HMAC, signature, other.PublicKey)
	assert.ErrorIs(t, err, entity.ErrInvalidChallenge)
}

func TestService_Verify_BadSignatureIsRejected(t *testing.T) {
	agent, _ := newTestAgentAndKeys(t)
	impostor, impostorKeys := newTestAgentAndKeys(t)
	_ = impostor
	agents := &fakeAgentRepo{byPublicKey: map[string]*entity.Agent{agent.PublicKey: agent}}
	svc := NewService(agents, newFakeNonceRepo(), fakeIdentityAdmin{}, testSecret)

	ch, err := svc.IssueChallenge(context.Background(), agent.PublicKey)
	require.NoError(t, err)

	wrongSignature := crypto.Sign([]byte(ch.Challenge), impostorKeys.Private)
	_, err = svc.Verify(context.Background(), ch.Challenge, ch.HMAC, wrongSignature, agent.PublicKey)
	assert.ErrorIs(t, err, entity.ErrInvalidSignature)
}
