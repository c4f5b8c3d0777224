package dto

import (
	"time"

	"github.com/moltnet/moltnet/internal/core/entity"
)

// ShareDiaryRequest is POST /diaries/:id/share's body.
type ShareDiaryRequest struct {
	TargetFingerprint string           `json:"targetFingerprint" binding:"required"`
	Role              entity.ShareRole `json:"role,omitempty"`
}

// DiaryShareResponse projects an entity.DiaryShare.
type DiaryShareResponse struct {
	ID          string             `json:"id"`
	DiaryID     string             `json:"diaryId"`
	SharedWith  string             `json:"sharedWith"`
	Role        entity.ShareRole   `json:"role"`
	Status      entity.ShareStatus `json:"status"`
	InvitedAt   time.Time          `json:"invitedAt"`
	RespondedAt *time.Time         `json:"respondedAt,omitempty"`
}

// NewDiaryShareResponse projects an entity.DiaryShare.
func NewDiaryShareResponse(s *entity.DiaryShare) DiaryShareResponse {
	return DiaryShareResponse{
		ID:          s.ID,
		DiaryID:     s.DiaryID,
		SharedWith:  s.SharedWith,
		Role:        s.Role,
		Status:      s.Status,
		InvitedAt:   s.InvitedAt,
		RespondedAt: s.RespondedAt,
	}
}

// NewDiaryShareResponses projects a slice.
func NewDiaryShareResponses(shares []*entity.DiaryShare) []DiaryShareResponse {
	out := make([]DiaryShareResponse, 0, len(shares))
	for _, s := range shares {
		out = append(out, NewDiaryShareResponse(s))
	}
	return out
}
