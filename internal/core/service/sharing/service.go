// Package sharing implements the diary-sharing invitation lifecycle: share,
// accept, decline, revoke.
package sharing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
)

type shareGrantPayload struct {
	DiaryID string `json:"diary_id"`
	AgentID string `json:"agent_id"`
	Role    string `json:"role"`
}

type shareRemovePayload struct {
	DiaryID string `json:"diary_id"`
	AgentID string `json:"agent_id"`
}

// Service implements the sharing invitation state machine.
type Service struct {
	shares        port.DiaryShareRepository
	agents        port.AgentRepository
	relationships port.RelationshipEngine
	workflow      port.WorkflowRuntime
}

// NewService creates a sharing Service.
func NewService(shares port.DiaryShareRepository, agents port.AgentRepository, relationships port.RelationshipEngine, workflow port.WorkflowRuntime) *Service {
	return &Service{shares: shares, agents: agents, relationships: relationships, workflow: workflow}
}

// ShareDiary invites targetFingerprint to diaryID with role.
func (s *Service) ShareDiary(ctx context.Context, diaryID, ownerID, targetFingerprint string, role entity.ShareRole) (*entity.DiaryShare, error) {
	allowed, err := s.relationships.CanManageDiary(ctx, diaryID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUpstream, err)
	}
	if !allowed {
		return nil, entity.ErrForbidden
	}

	target, err := s.agents.FindByFingerprint(ctx, targetFingerprint)
	if err != nil {
		return nil, err
	}
	if target.ID == ownerID {
		return nil, entity.ErrSelfShare
	}

	existing, err := s.shares.FindByDiaryAndAgent(ctx, diaryID, target.ID)
	if err != nil && !errors.Is(err, entity.ErrDiaryShareNotFound) {
		return nil, err
	}

	if existing != nil {
		if !existing.Status.IsTerminal() {
			return nil, entity.ErrAlreadyShared
		}
		return s.shares.Reopen(ctx, existing.ID, role)
	}

	return s.shares.Insert(ctx, &entity.DiaryShare{
		ID:         uuid.NewString(),
		DiaryID:    diaryID,
		SharedWith: target.ID,
		Role:       role,
		Status:     entity.ShareStatusPending,
		InvitedAt:  time.Now().UTC(),
	})
}

// AcceptInvitation transitions a pending share to accepted and grants the
// corresponding relationship tuple.
func (s *Service) AcceptInvitation(ctx context.Context, shareID, agentID string) (*entity.DiaryShare, error) {
	share, err := s.requirePendingFor(ctx, shareID, agentID)
	if err != nil {
		return nil, err
	}

	updated, err := s.shares.UpdateStatus(ctx, shareID, entity.ShareStatusAccepted, true)
	if err != nil {
		return nil, fmt.Errorf("accepting invitation: %w", err)
	}

	if _, err := s.workflow.EnqueueAsync(ctx, port.WorkflowDiaryShareGrant, shareGrantPayload{
		DiaryID: share.DiaryID,
		AgentID: agentID,
		Role:    string(share.Role),
	}); err != nil {
		return nil, fmt.Errorf("enqueueing share grant: %w", err)
	}
	return updated, nil
}

// DeclineInvitation transitions a pending share to declined.
func (s *Service) DeclineInvitation(ctx context.Context, shareID, agentID string) (*entity.DiaryShare, error) {
	if _, err := s.requirePendingFor(ctx, shareID, agentID); err != nil {
		return nil, err
	}
	return s.shares.UpdateStatus(ctx, shareID, entity.ShareStatusDeclined, true)
}

// RevokeShare transitions a pending or accepted share to revoked and, if it
// had been accepted, removes the relationship tuple.
func (s *Service) RevokeShare(ctx context.Context, shareID, ownerID string) (*entity.DiaryShare, error) {
	share, err := s.shares.FindByID(ctx, shareID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.relationships.CanManageDiary(ctx, share.DiaryID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUpstream, err)
	}
	if !allowed {
		return nil, entity.ErrForbidden
	}
	if !share.Status.CanTransitionTo(entity.ShareStatusRevoked) {
		return nil, entity.ErrWrongStatus
	}

	wasAccepted := share.Status == entity.ShareStatusAccepted

	updated, err := s.shares.UpdateStatus(ctx, shareID, entity.ShareStatusRevoked, true)
	if err != nil {
		return nil, fmt.Errorf("revoking share: %w", err)
	}

	if wasAccepted {
		if _, err := s.workflow.EnqueueAsync(ctx, port.WorkflowDiaryShareRemoveForAgent, shareRemovePayload{
			DiaryID: share.DiaryID,
			AgentID: share.SharedWith,
		}); err != nil {
			return nil, fmt.Errorf("enqueueing share relation cleanup: %w", err)
		}
	}
	return updated, nil
}

// ListPendingInvitations returns agentID's pending invitations.
func (s *Service) ListPendingInvitations(ctx context.Context, agentID string) ([]*entity.DiaryShare, error) {
	return s.shares.ListPendingForAgent(ctx, agentID)
}

func (s *Service) requirePendingFor(ctx context.Context, shareID, agentID string) (*entity.DiaryShare, error) {
	share, err := s.shares.FindByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if share.SharedWith != agentID {
		return nil, entity.ErrDiaryShareNotFound
	}
	if share.Status != entity.ShareStatusPending {
		return nil, entity.ErrWrongStatus
	}
	return share, nil
}
