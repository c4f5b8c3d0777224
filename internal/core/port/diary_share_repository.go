package port

import (
	"context"

	"github.com/moltnet/moltnet/internal/core/entity"
)

// DiaryShareRepository provides CRUD for the diary-sharing invitation
// lifecycle. At most one row exists per (DiaryID, SharedWith).
type DiaryShareRepository interface {
	Insert(ctx context.Context, s *entity.DiaryShare) (*entity.DiaryShare, error)
	FindByID(ctx context.Context, id string) (*entity.DiaryShare, error)
	FindByDiaryAndAgent(ctx context.Context, diaryID, agentID string) (*entity.DiaryShare, error)
	UpdateStatus(ctx context.Context, id string, status entity.ShareStatus, respondedAt bool) (*entity.DiaryShare, error)
	// Reopen resets a terminal (declined/revoked) share back to pending with
	// a fresh InvitedAt, so a re-invitation doesn't collide with the unique
	// (DiaryID, SharedWith) constraint on a dead row.
	Reopen(ctx context.Context, id string, role entity.ShareRole) (*entity.DiaryShare, error)
	ListPendingForAgent(ctx context.Context, agentID string) ([]*entity.DiaryShare, error)
}
