package dto

import (
	"time"

	"github.com/moltnet/moltnet/internal/core/entity"
	diarysvc "github.com/moltnet/moltnet/internal/core/service/diary"
)

// CreateDiaryRequest is POST /diaries's body.
type CreateDiaryRequest struct {
	Name       string                 `json:"name" binding:"required"`
	Visibility entity.DiaryVisibility `json:"visibility" binding:"required"`
}

// UpdateDiaryRequest is PATCH /diaries/:id's body.
type UpdateDiaryRequest struct {
	Name       *string                 `json:"name,omitempty"`
	Visibility *entity.DiaryVisibility `json:"visibility,omitempty"`
}

// DiaryResponse is a Diary projected for API responses.
type DiaryResponse struct {
	ID         string                 `json:"id"`
	OwnerID    string                 `json:"ownerId"`
	Name       string                 `json:"name"`
	Visibility entity.DiaryVisibility `json:"visibility"`
	Signed     bool                   `json:"signed"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// NewDiaryResponse projects an entity.Diary.
func NewDiaryResponse(d *entity.Diary) DiaryResponse {
	return DiaryResponse{
		ID:         d.ID,
		OwnerID:    d.OwnerID,
		Name:       d.Name,
		Visibility: d.Visibility,
		Signed:     d.Signed,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// CreateEntryRequest is POST /diary/entries's body.
type CreateEntryRequest struct {
	DiaryID    string           `json:"diaryId" binding:"required"`
	Title      *string          `json:"title,omitempty"`
	Content    string           `json:"content" binding:"required"`
	Tags       []string         `json:"tags,omitempty"`
	Importance int              `json:"importance,omitempty"`
	EntryType  entity.EntryType `json:"entryType,omitempty"`
}

// UpdateEntryRequest is PATCH /diary/entries/:id's body. nil fields leave
// the existing value unchanged.
type UpdateEntryRequest struct {
	Title      *string  `json:"title,omitempty"`
	Content    *string  `json:"content,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Importance *int     `json:"importance,omitempty"`
}

// SearchEntriesRequest is POST /diary/search's body.
type SearchEntriesRequest struct {
	DiaryID           string             `json:"diaryId" binding:"required"`
	Query             string             `json:"query,omitempty"`
	Tags              []string           `json:"tags,omitempty"`
	EntryTypes        []entity.EntryType `json:"entryTypes,omitempty"`
	Limit             int                `json:"limit,omitempty"`
	WRelevance        float64            `json:"wRelevance,omitempty"`
	WRecency          float64            `json:"wRecency,omitempty"`
	WImportance       float64            `json:"wImportance,omitempty"`
	ExcludeSuperseded *bool              `json:"excludeSuperseded,omitempty"`
}

// EntryResponse is a DiaryEntry projected for API responses.
type EntryResponse struct {
	ID            string           `json:"id"`
	DiaryID       string           `json:"diaryId"`
	Title         *string          `json:"title,omitempty"`
	Content       string           `json:"content"`
	Tags          []string         `json:"tags,omitempty"`
	InjectionRisk float64          `json:"injectionRisk"`
	Importance    int              `json:"importance"`
	EntryType     entity.EntryType `json:"entryType"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// NewEntryResponse projects an entity.DiaryEntry.
func NewEntryResponse(e *entity.DiaryEntry) EntryResponse {
	return EntryResponse{
		ID:            e.ID,
		DiaryID:       e.DiaryID,
		Title:         e.Title,
		Content:       e.Content,
		Tags:          e.Tags,
		InjectionRisk: e.InjectionRisk,
		Importance:    e.Importance,
		EntryType:     e.EntryType,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// NewEntryResponses projects a slice.
func NewEntryResponses(entries []*entity.DiaryEntry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewEntryResponse(e))
	}
	return out
}

// ReflectedEntryResponse is one entry within a ReflectResponse.
type ReflectedEntryResponse struct {
	ID         string           `json:"id"`
	Content    string           `json:"content"`
	Tags       []string         `json:"tags,omitempty"`
	Importance int              `json:"importance"`
	EntryType  entity.EntryType `json:"entryType"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// ReflectResponse is GET /diary/reflect's body.
type ReflectResponse struct {
	Entries      []ReflectedEntryResponse `json:"entries"`
	TotalEntries int                      `json:"totalEntries"`
	PeriodDays   int                      `json:"periodDays"`
	GeneratedAt  time.Time                `json:"generatedAt"`
}

// NewReflectResponse projects a diarysvc.ReflectDigest.
func NewReflectResponse(d *diarysvc.ReflectDigest) ReflectResponse {
	entries := make([]ReflectedEntryResponse, 0, len(d.Entries))
	for _, e := range d.Entries {
		entries = append(entries, ReflectedEntryResponse{
			ID:         e.ID,
			Content:    e.Content,
			Tags:       e.Tags,
			Importance: e.Importance,
			EntryType:  e.EntryType,
			CreatedAt:  e.CreatedAt,
		})
	}
	return ReflectResponse{
		Entries:      entries,
		TotalEntries: d.TotalEntries,
		PeriodDays:   d.PeriodDays,
		GeneratedAt:  d.GeneratedAt,
	}
}
