package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltnet/moltnet/internal/adapters/primary/http/dto"
	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/core/service/recovery"
	"github.com/moltnet/moltnet/internal/crypto"
)

type recoveryAgentRepo struct {
	port.AgentRepository
	byPublicKey map[string]*entity.Agent
}

func (r *recoveryAgentRepo) FindByPublicKey(_ context.Context, publicKey string) (*entity.Agent, error) {
	a, ok := r.byPublicKey[publicKey]
	if !ok {
		return nil, entity.ErrAgentNotFound
	}
	return a, nil
}

type recoveryNonceRepo struct {
	consumed map[string]bool
}

func (r *recoveryNonceRepo) Consume(_ context.Context, nonce string, _ time.Duration) (bool, error) {
	if r.consumed[nonce] {
		return false, nil
	}
	r.consumed[nonce] = true
	return true, nil
}

func (r *recoveryNonceRepo) PruneExpired(context.Context, time.Time) (int, error) { return 0, nil }

type recoveryIdentityAdmin struct{}

func (recoveryIdentityAdmin) CreateIdentity(context.Context, port.IdentityTraits) (string, error) {
	return "identity-1", nil
}
func (recoveryIdentityAdmin) DeleteIdentity(context.Context, string) error { return nil }
func (recoveryIdentityAdmin) MintRecoveryCode(context.Context, string) (string, string, error) {
	return "recovery-code-1", "https://identity.example/flow", nil
}

func newRecoveryTestRouter(t *testing.T, agent *entity.Agent) (*gin.Engine, *recoveryNonceRepo) {
	t.Helper()
	agents := &recoveryAgentRepo{byPublicKey: map[string]*entity.Agent{agent.PublicKey: agent}}
	nonces := &recoveryNonceRepo{consumed: make(map[string]bool)}
	svc := recovery.NewService(agents, nonces, recoveryIdentityAdmin{}, "0123456789abcdef")

	r := gin.New()
	api := r.Group("/")
	NewRecoveryController(svc).RegisterRoutes(api)
	return r, nonces
}

func TestRecoveryController_Challenge_UnknownKeyIsNotFound(t *testing.T) {
	agent := &entity.Agent{ID: "agent-1", PublicKey: "ed25519:known"}
	r, _ := newRecoveryTestRouter(t, agent)

	body, _ := json.Marshal(dto.RecoveryChallengeRequest{PublicKey: "ed25519:unknown"})
	req := httptest.NewRequest(http.MethodPost, "/recovery/challenge", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryController_ChallengeThenVerify_FullRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	agent := &entity.Agent{ID: "agent-1", IdentityID: "identity-1", PublicKey: kp.Public}
	r, _ := newRecoveryTestRouter(t, agent)

	chBody, _ := json.Marshal(dto.RecoveryChallengeRequest{PublicKey: agent.PublicKey})
	chReq := httptest.NewRequest(http.MethodPost, "/recovery/challenge", bytes.NewReader(chBody))
	chReq.Header.Set("Content-Type", "application/json")
	chRec := httptest.NewRecorder()
	r.ServeHTTP(chRec, chReq)
	require.Equal(t, http.StatusOK, chRec.Code)

	var chResp dto.RecoveryChallengeResponse
	require.NoError(t, json.Unmarshal(chRec.Body.Bytes(), &chResp))

	signature := crypto.Sign([]byte(chResp.Challenge), kp.Private)
	vBody, _ := json.Marshal(dto.RecoveryVerifyRequest{
		Challenge: chResp.Challenge, HMAC: chResp.HMAC, Signature: signature, PublicKey: agent.PublicKey,
	})
	vReq := httptest.NewRequest(http.MethodPost, "/recovery/verify", bytes.NewReader(vBody))
	vReq.Header.Set("Content-Type", "application/json")
	vRec := httptest.NewRecorder()
	r.ServeHTTP(vRec, vReq)

	assert.Equal(t, http.StatusOK, vRec.Code)
	var vResp dto.RecoveryVerifyResponse
	require.NoError(t, json.Unmarshal(vRec.Body.Bytes(), &vResp))
	assert.Equal(t, "recovery-code-1", vResp.RecoveryCode)
}

func TestRecoveryController_Verify_MissingFieldIsBadRequest(t *testing.T) {
	agent := &entity.Agent{ID: "agent-1", PublicKey: "ed25519:known"}
	r, _ := newRecoveryTestRouter(t, agent)

	body, _ := json.Marshal(map[string]string{"challenge": "x"})
	req := httptest.NewRequest(http.MethodPost, "/recovery/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
