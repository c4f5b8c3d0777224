// Package diary implements diary and entry CRUD, the write pipeline
// (embed + scan + relationship grant), hybrid search, and the reflection
// digest.
package diary

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
)

type diaryOwnerGrantPayload struct {
	DiaryID string `json:"diary_id"`
	AgentID string `json:"agent_id"`
}

type entryOwnerGrantPayload struct {
	EntryID string `json:"entry_id"`
	AgentID string `json:"agent_id"`
}

type entryRemoveRelationsPayload struct {
	EntryID string `json:"entry_id"`
}

// Service implements diary and entry operations.
type Service struct {
	diaries       port.DiaryRepository
	entries       port.DiaryEntryRepository
	relationships port.RelationshipEngine
	embedding     port.EmbeddingService
	injection     port.InjectionScanner
	workflow      port.WorkflowRuntime
	tx            port.TransactionRunner
}

// NewService creates a diary Service.
func NewService(
	diaries port.DiaryRepository,
	entries port.DiaryEntryRepository,
	relationships port.RelationshipEngine,
	embedding port.EmbeddingService,
	injection port.InjectionScanner,
	workflow port.WorkflowRuntime,
	tx port.TransactionRunner,
) *Service {
	return &Service{
		diaries:       diaries,
		entries:       entries,
		relationships: relationships,
		embedding:     embedding,
		injection:     injection,
		workflow:      workflow,
		tx:            tx,
	}
}

// CreateDiary inserts a diary and asynchronously grants the owner tuple.
func (s *Service) CreateDiary(ctx context.Context, ownerID, name string, visibility entity.DiaryVisibility) (*entity.Diary, error) {
	if !entity.ValidDiaryVisibility(visibility) {
		return nil, entity.ErrInvalidVisibility
	}

	now := time.Now().UTC()
	d := &entity.Diary{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Name:       name,
		Visibility: visibility,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var created *entity.Diary
	err := s.tx.RunReadCommitted(ctx, func(ctx context.Context, tx port.Tx) error {
		c, err := s.diaries.Create(ctx, tx, d)
		created = c
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating diary: %w", err)
	}

	if _, err := s.workflow.EnqueueAsync(ctx, port.WorkflowDiaryOwnerGrant, diaryOwnerGrantPayload{
		DiaryID: created.ID,
		AgentID: ownerID,
	}); err != nil {
		return nil, fmt.Errorf("enqueueing diary owner grant: %w", err)
	}
	return created, nil
}

func (s *Service) GetDiary(ctx context.Context, id string) (*entity.Diary, error) {
	return s.diaries.FindByID(ctx, id)
}

func (s *Service) ListDiaries(ctx context.Context, ownerID string) ([]*entity.Diary, error) {
	return s.diaries.ListByOwner(ctx, ownerID)
}

func (s *Service) UpdateDiary(ctx context.Context, d *entity.Diary) (*entity.Diary, error) {
	d.UpdatedAt = time.Now().UTC()
	return s.diaries.Update(ctx, d)
}

// DeleteDiary cascades to entries at the database level; the relationship
// tuples for the diary and every owned entry are removed
// best-effort by the caller emitting removeDiaryRelations separately, since
// that's a read of "all entries under this diary" the repository already
// has cheaper access to than this service does.
func (s *Service) DeleteDiary(ctx context.Context, id string) error {
	return s.tx.RunReadCommitted(ctx, func(ctx context.Context, tx port.Tx) error {
		return s.diaries.Delete(ctx, tx, id)
	})
}

// CreateEntryParams are the inputs to CreateEntry.
type CreateEntryParams struct {
	DiaryID     string
	RequesterID string
	Title       *string
	Content     string
	Tags        []string
	Importance  int
	EntryType   entity.EntryType
}

// CreateEntry runs the entry write pipeline: authorize, embed, scan, insert,
// grant.
func (s *Service) CreateEntry(ctx context.Context, p CreateEntryParams) (*entity.DiaryEntry, error) {
	allowed, err := s.relationships.CanWriteDiary(ctx, p.DiaryID, p.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUpstream, err)
	}
	if !allowed {
		return nil, entity.ErrForbidden
	}

	if p.EntryType == "" {
		p.EntryType = entity.EntryTypeEpisodic
	}
	if !entity.ValidEntryType(p.EntryType) {
		return nil, entity.ErrInvalidEntryType
	}
	if p.Importance == 0 {
		p.Importance = entity.DefaultImportance
	}

	embedding, err := s.embedding.EmbedPassage(ctx, p.Content)
	if err != nil {
		return nil, fmt.Errorf("embedding entry content: %w", err)
	}

	risk, err := s.injection.Score(ctx, p.Content)
	if err != nil {
		return nil, fmt.Errorf("scanning entry content: %w", err)
	}

	now := time.Now().UTC()
	entry := &entity.DiaryEntry{
		ID:            uuid.NewString(),
		DiaryID:       p.DiaryID,
		Title:         p.Title,
		Content:       p.Content,
		Embedding:     embedding,
		Tags:          p.Tags,
		InjectionRisk: risk,
		Importance:    p.Importance,
		EntryType:     p.EntryType,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var created *entity.DiaryEntry
	err = s.tx.RunReadCommitted(ctx, func(ctx context.Context, tx port.Tx) error {
		c, err := s.entries.Insert(ctx, tx, entry)
		created = c
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("inserting entry: %w", err)
	}

	if _, err := s.workflow.EnqueueAsync(ctx, port.WorkflowDiaryEntryOwnerGrant, entryOwnerGrantPayload{
		EntryID: created.ID,
		AgentID: p.RequesterID,
	}); err != nil {
		return nil, fmt.Errorf("enqueueing entry owner grant: %w", err)
	}
	return created, nil
}

// UpdateEntryParams are the inputs to UpdateEntry. nil fields leave the
// existing value unchanged, except Content: a non-nil Content always
// triggers re-embedding since there's no cheap way to tell "unchanged" from
// "set to the same value" without a prior read.
type UpdateEntryParams struct {
	ID          string
	RequesterID string
	Title       *string
	Content     *string
	Tags        []string
	Importance  *int
}

func (s *Service) UpdateEntry(ctx context.Context, p UpdateEntryParams) (*entity.DiaryEntry, error) {
	existing, err := s.entries.FindByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.relationships.CanEditEntry(ctx, p.ID, p.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUpstream, err)
	}
	if !allowed {
		return nil, entity.ErrForbidden
	}

	if p.Title != nil {
		existing.Title = p.Title
	}
	if p.Tags != nil {
		existing.Tags = p.Tags
	}
	if p.Importance != nil {
		existing.Importance = *p.Importance
	}
	if p.Content != nil {
		existing.Content = *p.Content

		embedding, err := s.embedding.EmbedPassage(ctx, *p.Content)
		if err != nil {
			return nil, fmt.Errorf("embedding entry content: %w", err)
		}
		existing.Embedding = embedding

		risk, err := s.injection.Score(ctx, *p.Content)
		if err != nil {
			return nil, fmt.Errorf("scanning entry content: %w", err)
		}
		existing.InjectionRisk = risk
	}
	existing.UpdatedAt = time.Now().UTC()

	return s.entries.Update(ctx, existing)
}

// DeleteEntry removes the row then fires the removeEntryRelations workflow.
func (s *Service) DeleteEntry(ctx context.Context, id, requesterID string) error {
	allowed, err := s.relationships.CanDeleteEntry(ctx, id, requesterID)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrUpstream, err)
	}
	if !allowed {
		return entity.ErrForbidden
	}

	err = s.tx.RunReadCommitted(ctx, func(ctx context.Context, tx port.Tx) error {
		return s.entries.Delete(ctx, tx, id)
	})
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}

	if _, err := s.workflow.EnqueueAsync(ctx, port.WorkflowDiaryEntryRemoveRelations, entryRemoveRelationsPayload{EntryID: id}); err != nil {
		return fmt.Errorf("enqueueing entry relation cleanup: %w", err)
	}
	return nil
}

func (s *Service) GetEntry(ctx context.Context, id string) (*entity.DiaryEntry, error) {
	entry, err := s.entries.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.entries.TouchAccess(ctx, id); err != nil {
		return nil, fmt.Errorf("recording entry access: %w", err)
	}
	return entry, nil
}

func (s *Service) ListEntries(ctx context.Context, p port.ListEntriesParams) ([]*entity.DiaryEntry, error) {
	return s.entries.List(ctx, p)
}

// Search embeds the query with the "query: " prefix before hybrid ranking.
// If params.Query is empty the embedding step is skipped and the repository
// falls back to its own list/rank behavior.
func (s *Service) Search(ctx context.Context, diaryID, query string, opts port.SearchEntriesParams) ([]*entity.DiaryEntry, error) {
	opts.DiaryID = diaryID
	opts.Query = query

	if query != "" {
		embedding, err := s.embedding.EmbedQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embedding search query: %w", err)
		}
		opts.Embedding = embedding
	}
	if opts.WRelevance == 0 && opts.WRecency == 0 && opts.WImportance == 0 {
		opts.WRelevance = port.DefaultWRelevance
		opts.WRecency = port.DefaultWRecency
		opts.WImportance = port.DefaultWImportance
	}
	return s.entries.Search(ctx, opts)
}

// ReflectDigest is the projected shape Reflect returns.
type ReflectDigest struct {
	Entries      []ReflectedEntry
	TotalEntries int
	PeriodDays   int
	GeneratedAt  time.Time
}

// ReflectedEntry is one projected entry within a ReflectDigest.
type ReflectedEntry struct {
	ID         string
	Content    string
	Tags       []string
	Importance int
	EntryType  entity.EntryType
	CreatedAt  time.Time
}

// Reflect returns a recent-entries digest scoped to the given lookback
// window and entry types.
func (s *Service) Reflect(ctx context.Context, diaryID string, days, maxEntries int, entryTypes []entity.EntryType) (*ReflectDigest, error) {
	if days <= 0 {
		days = 7
	}
	if maxEntries <= 0 {
		maxEntries = 50
	}

	entries, err := s.entries.Reflect(ctx, port.ReflectParams{
		DiaryID:    diaryID,
		Days:       days,
		MaxEntries: maxEntries,
		EntryTypes: entryTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("building reflection digest: %w", err)
	}

	projected := make([]ReflectedEntry, 0, len(entries))
	for _, e := range entries {
		projected = append(projected, ReflectedEntry{
			ID:         e.ID,
			Content:    e.Content,
			Tags:       e.Tags,
			Importance: e.Importance,
			EntryType:  e.EntryType,
			CreatedAt:  e.CreatedAt,
		})
	}

	return &ReflectDigest{
		Entries:      projected,
		TotalEntries: len(projected),
		PeriodDays:   days,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}
