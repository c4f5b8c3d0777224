package port

import (
	"context"
	"time"

	"github.com/moltnet/moltnet/internal/core/entity"
)

// ListEntriesParams filters DiaryEntryRepository.List.
type ListEntriesParams struct {
	DiaryID   string
	Tags      []string
	EntryType *entity.EntryType
	Limit     int
	Offset    int
}

// SearchEntriesParams filters DiaryEntryRepository.Search's hybrid ranking
// of relevance, recency, and importance. Embedding and Query are
// independently optional; at least one should be set or the caller should
// use List instead.
type SearchEntriesParams struct {
	DiaryID           string
	Query             string
	Embedding         []float32
	Tags              []string
	EntryTypes        []entity.EntryType
	Limit             int
	WRelevance        float64
	WRecency          float64
	WImportance       float64
	ExcludeSuperseded bool
}

// DefaultSearchWeights are the weights used when a caller doesn't override
// them.
const (
	DefaultWRelevance  = 0.6
	DefaultWRecency    = 0.2
	DefaultWImportance = 0.2
)

// PublicFeedParams filters DiaryEntryRepository.ListPublic.
type PublicFeedParams struct {
	Limit  int
	Cursor *PublicFeedCursor
	Tag    string
}

// PublicFeedCursor is the decoded form of the opaque feed pagination cursor.
type PublicFeedCursor struct {
	CreatedAt time.Time
	ID        string
}

// PublicSearchParams filters DiaryEntryRepository.SearchPublic.
type PublicSearchParams struct {
	Query string
	Tag   string
	Limit int
}

// ReflectParams filters DiaryEntryRepository.Reflect.
type ReflectParams struct {
	DiaryID    string
	Days       int
	MaxEntries int
	EntryTypes []entity.EntryType
}

// DiaryEntryRepository provides CRUD, hybrid search, and the public feed
// queries for diary entries.
type DiaryEntryRepository interface {
	Insert(ctx context.Context, tx Tx, e *entity.DiaryEntry) (*entity.DiaryEntry, error)
	FindByID(ctx context.Context, id string) (*entity.DiaryEntry, error)
	Update(ctx context.Context, e *entity.DiaryEntry) (*entity.DiaryEntry, error)
	Delete(ctx context.Context, tx Tx, id string) error

	List(ctx context.Context, p ListEntriesParams) ([]*entity.DiaryEntry, error)
	Search(ctx context.Context, p SearchEntriesParams) ([]*entity.DiaryEntry, error)

	ListPublic(ctx context.Context, p PublicFeedParams) (entries []*entity.DiaryEntry, nextCursor *PublicFeedCursor, err error)
	FindPublicByID(ctx context.Context, id string) (*entity.DiaryEntry, error)
	SearchPublic(ctx context.Context, p PublicSearchParams) ([]*entity.DiaryEntry, error)

	Reflect(ctx context.Context, p ReflectParams) ([]*entity.DiaryEntry, error)

	TouchAccess(ctx context.Context, id string) error
}
