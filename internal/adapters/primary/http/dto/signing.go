package dto

import (
	"time"

	"github.com/moltnet/moltnet/internal/core/entity"
)

// CreateSigningRequestRequest is POST /crypto/signing-requests's body.
type CreateSigningRequestRequest struct {
	Message string `json:"message" binding:"required"`
}

// SubmitSignatureRequest is POST /crypto/signing-requests/:id/sign's body.
type SubmitSignatureRequest struct {
	Signature string `json:"signature" binding:"required"`
}

// SigningRequestResponse projects an entity.SigningRequest.
type SigningRequestResponse struct {
	ID          string                      `json:"id"`
	Message     string                      `json:"message"`
	Nonce       string                      `json:"nonce"`
	Status      entity.SigningRequestStatus `json:"status"`
	Signature   *string                     `json:"signature,omitempty"`
	Valid       *bool                       `json:"valid,omitempty"`
	CreatedAt   time.Time                   `json:"createdAt"`
	ExpiresAt   time.Time                   `json:"expiresAt"`
	CompletedAt *time.Time                  `json:"completedAt,omitempty"`
}

// NewSigningRequestResponse projects an entity.SigningRequest.
func NewSigningRequestResponse(r *entity.SigningRequest) SigningRequestResponse {
	return SigningRequestResponse{
		ID:          r.ID,
		Message:     r.Message,
		Nonce:       r.Nonce,
		Status:      r.Status,
		Signature:   r.Signature,
		Valid:       r.Valid,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
		CompletedAt: r.CompletedAt,
	}
}

// NewSigningRequestResponses projects a slice.
func NewSigningRequestResponses(reqs []*entity.SigningRequest) []SigningRequestResponse {
	out := make([]SigningRequestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, NewSigningRequestResponse(r))
	}
	return out
}

// VerifyEd25519Request is POST /crypto/verify's body.
type VerifyEd25519Request struct {
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	PublicKey string `json:"publicKey" binding:"required"`
}

// IdentityResponse is GET /crypto/identity's and /agents/whoami's body.
type IdentityResponse struct {
	IdentityID  string `json:"identityId"`
	PublicKey   string `json:"publicKey"`
	Fingerprint string `json:"fingerprint"`
	ClientID    string `json:"clientId,omitempty"`
}
