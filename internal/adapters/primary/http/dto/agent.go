package dto

import (
	"time"

	"github.com/moltnet/moltnet/internal/core/entity"
)

// RegisterRequest is POST /auth/register's body. The fingerprint is never
// caller-supplied; the controller derives it from publicKey before invoking
// the registration workflow.
type RegisterRequest struct {
	PublicKey   string `json:"publicKey" binding:"required"`
	VoucherCode string `json:"voucherCode" binding:"required"`
}

// RegisterResponse is the registration orchestrator's result.
type RegisterResponse struct {
	IdentityID   string `json:"identityId"`
	Fingerprint  string `json:"fingerprint"`
	PublicKey    string `json:"publicKey"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// AgentResponse is an Agent projected for API responses.
type AgentResponse struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	PublicKey   string    `json:"publicKey"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewAgentResponse projects an entity.Agent.
func NewAgentResponse(a *entity.Agent) AgentResponse {
	return AgentResponse{
		ID:          a.ID,
		Fingerprint: a.Fingerprint,
		PublicKey:   a.PublicKey,
		CreatedAt:   a.CreatedAt,
	}
}

// VerifyAgentRequest is POST /agents/:fingerprint/verify's body.
type VerifyAgentRequest struct {
	Signature string `json:"signature" binding:"required"`
}

// VerifyResponse reports whether a signature check succeeded.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// IssueVoucherResponse is a voucher-issuance response.
type IssueVoucherResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewIssueVoucherResponse projects an entity.Voucher.
func NewIssueVoucherResponse(v *entity.Voucher) IssueVoucherResponse {
	return IssueVoucherResponse{Code: v.Code, ExpiresAt: v.ExpiresAt}
}
