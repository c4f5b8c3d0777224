// Package signing implements the signing-request state machine: create,
// submit, and the public verify lookup.
package signing

import (
	"context"
	"fmt"
	"time"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/crypto"
)

type signingWaitPayload struct {
	SigningRequestID string `json:"signing_request_id"`
}

// Service drives signing-request creation, submission, and verification.
type Service struct {
	repo     port.SigningRequestRepository
	agents   port.AgentRepository
	workflow port.WorkflowRuntime
}

// NewService creates a signing Service.
func NewService(repo port.SigningRequestRepository, agents port.AgentRepository, workflow port.WorkflowRuntime) *Service {
	return &Service{repo: repo, agents: agents, workflow: workflow}
}

// Create inserts a pending signing request and kicks off the durable
// workflow that journals its lifecycle.
func (s *Service) Create(ctx context.Context, agentID, message string) (*entity.SigningRequest, error) {
	req, err := s.repo.Create(ctx, port.CreateSigningRequestParams{
		AgentID: agentID,
		Message: message,
	})
	if err != nil {
		return nil, fmt.Errorf("creating signing request: %w", err)
	}

	if _, err := s.workflow.EnqueueAsync(ctx, port.WorkflowSigningWait, signingWaitPayload{SigningRequestID: req.ID}); err != nil {
		return nil, fmt.Errorf("enqueueing signing-request workflow: %w", err)
	}
	return req, nil
}

// Submit verifies signature against the owning agent's public key and
// transitions the request to its terminal completed state.
func (s *Service) Submit(ctx context.Context, id, requesterAgentID, signature string) (*entity.SigningRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.AgentID != requesterAgentID {
		return nil, entity.ErrSigningRequestNotFound
	}

	now := time.Now().UTC()
	if req.IsExpiredAt(now) {
		return nil, entity.ErrSigningRequestExpired
	}
	if req.Status == entity.SigningRequestCompleted {
		return nil, entity.ErrSigningRequestAlreadyCompleted
	}

	agent, err := s.agents.FindByID(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}

	valid := crypto.VerifyWithNonce(req.Message, req.Nonce, signature, agent.PublicKey)

	updated, err := s.repo.UpdateStatus(ctx, id, port.UpdateSigningRequestStatusParams{
		Status:      entity.SigningRequestCompleted,
		Signature:   &signature,
		Valid:       &valid,
		CompletedAt: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("completing signing request: %w", err)
	}
	return updated, nil
}

// VerifyBySignature is the public verification lookup backing
// /agents/:fingerprint/verify: findBySignature -> loadAgent -> verifyWithNonce.
func (s *Service) VerifyBySignature(ctx context.Context, signature string) (bool, error) {
	req, err := s.repo.FindBySignature(ctx, signature)
	if err != nil {
		return false, err
	}

	agent, err := s.agents.FindByID(ctx, req.AgentID)
	if err != nil {
		return false, err
	}

	return crypto.VerifyWithNonce(req.Message, req.Nonce, signature, agent.PublicKey), nil
}

// List returns an agent's signing requests, optionally filtered by status.
func (s *Service) List(ctx context.Context, agentID string, status *entity.SigningRequestStatus, limit, offset int) ([]*entity.SigningRequest, error) {
	return s.repo.List(ctx, port.ListSigningRequestsParams{
		AgentID: agentID,
		Status:  status,
		Limit:   limit,
		Offset:  offset,
	})
}

// Get returns a signing request owned by agentID, or
// entity.ErrSigningRequestNotFound if it belongs to someone else.
func (s *Service) Get(ctx context.Context, id, agentID string) (*entity.SigningRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.AgentID != agentID {
		return nil, entity.ErrSigningRequestNotFound
	}
	return req, nil
}
