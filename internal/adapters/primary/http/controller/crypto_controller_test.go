package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltnet/moltnet/internal/adapters/primary/http/dto"
	"github.com/moltnet/moltnet/internal/adapters/primary/http/middleware"
	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/core/service/signing"
	"github.com/moltnet/moltnet/internal/crypto"
)

// alwaysUnauthorizedValidator rejects every bearer token, enough to exercise
// the unauthenticated path of routes guarded by middleware.Auth.
type alwaysUnauthorizedValidator struct{}

func (alwaysUnauthorizedValidator) Validate(context.Context, string) (*entity.AuthContext, error) {
	return nil, entity.ErrUnauthorized
}

type noopAgentRepo struct{ port.AgentRepository }

type noopSigningRepo struct{ port.SigningRequestRepository }

func newCryptoTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	signingSvc := signing.NewService(noopSigningRepo{}, noopAgentRepo{}, nil)

	r := gin.New()
	api := r.Group("/")
	NewCryptoController(noopAgentRepo{}, signingSvc).RegisterRoutes(api, middleware.Auth(alwaysUnauthorizedValidator{}))
	return r
}

func TestCryptoController_Verify_ValidSignature(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sig := crypto.Sign([]byte("hello"), kp.Private)

	r := newCryptoTestRouter(t)

	body, _ := json.Marshal(dto.VerifyEd25519Request{Message: "hello", Signature: sig, PublicKey: kp.Public})
	req := httptest.NewRequest(http.MethodPost, "/crypto/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
}

func TestCryptoController_Verify_WrongKeyReportsFalse(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	other, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sig := crypto.Sign([]byte("hello"), kp.Private)

	r := newCryptoTestRouter(t)

	body, _ := json.Marshal(dto.VerifyEd25519Request{Message: "hello", Signature: sig, PublicKey: other.Public})
	req := httptest.NewRequest(http.MethodPost, "/crypto/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
}

func TestCryptoController_Verify_MissingFieldIsBadRequest(t *testing.T) {
	r := newCryptoTestRouter(t)

	body, _ := json.Marshal(map[string]string{"message": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/crypto/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestCryptoController_Identity_UnauthenticatedIsRejected(t *testing.T) {
	r := newCryptoTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/crypto/identity", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCryptoController_SigningRequests_MissingAuthHeaderIsRejected(t *testing.T) {
	r := newCryptoTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/crypto/signing-requests", bytes.NewReader([]byte(`{"message":"hi"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
