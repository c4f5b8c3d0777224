package port

import (
	"context"
	"time"

	"github.com/moltnet/moltnet/internal/core/entity"
)

// CreateSigningRequestParams are the inputs to SigningRequestRepository.Create.
type CreateSigningRequestParams struct {
	AgentID   string
	Message   string
	ExpiresAt *time.Time // defaults to now()+entity.DefaultSigningRequestTTL if nil
}

// UpdateSigningRequestStatusParams is the only mutation allowed after
// creation.
type UpdateSigningRequestStatusParams struct {
	Status      entity.SigningRequestStatus
	Signature   *string
	Valid       *bool
	CompletedAt *time.Time
	WorkflowID  *string
}

// ListSigningRequestsParams filters SigningRequestRepository.List.
type ListSigningRequestsParams struct {
	AgentID string
	Status  *entity.SigningRequestStatus
	Limit   int
	Offset  int
}

// SigningRequestRepository provides the signing-request state machine's
// storage.
type SigningRequestRepository interface {
	Create(ctx context.Context, p CreateSigningRequestParams) (*entity.SigningRequest, error)
	FindByID(ctx context.Context, id string) (*entity.SigningRequest, error)
	FindBySignature(ctx context.Context, signature string) (*entity.SigningRequest, error)
	UpdateStatus(ctx context.Context, id string, p UpdateSigningRequestStatusParams) (*entity.SigningRequest, error)
	CountByAgent(ctx context.Context, agentID string, status entity.SigningRequestStatus) (int, error)
	List(ctx context.Context, p ListSigningRequestsParams) ([]*entity.SigningRequest, error)
	// ExpirePastDue transitions pending rows with expires_at <= now to
	// expired and returns how many were swept.
	ExpirePastDue(ctx context.Context, now time.Time) (int, error)
}
