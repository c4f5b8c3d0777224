// Package feed implements the visibility-scoped public feed: cursor-paginated
// listing, single-entry lookup, and public hybrid search, all restricted to
// visibility='public' at the repository layer.
package feed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
)

// Service implements the public feed operations.
type Service struct {
	entries port.DiaryEntryRepository
}

// NewService creates a feed Service.
func NewService(entries port.DiaryEntryRepository) *Service {
	return &Service{entries: entries}
}

type cursorPayload struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// EncodeCursor renders an opaque pagination token from a repository cursor.
func EncodeCursor(c *port.PublicFeedCursor) string {
	if c == nil {
		return ""
	}
	raw, _ := json.Marshal(cursorPayload{CreatedAt: c.CreatedAt, ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses an opaque pagination token back into a repository
// cursor. An empty string decodes to a nil cursor (first page).
func DecodeCursor(token string) (*port.PublicFeedCursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, entity.ErrInvalidCursor
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, entity.ErrInvalidCursor
	}
	return &port.PublicFeedCursor{CreatedAt: p.CreatedAt, ID: p.ID}, nil
}

// ListPublic returns one page of the public feed plus the cursor for the
// next page (empty string if there isn't one).
func (s *Service) ListPublic(ctx context.Context, limit int, cursorToken, tag string) ([]*entity.DiaryEntry, string, error) {
	cursor, err := DecodeCursor(cursorToken)
	if err != nil {
		return nil, "", err
	}

	entries, next, err := s.entries.ListPublic(ctx, port.PublicFeedParams{
		Limit:  limit,
		Cursor: cursor,
		Tag:    tag,
	})
	if err != nil {
		return nil, "", fmt.Errorf("listing public feed: %w", err)
	}
	return entries, EncodeCursor(next), nil
}

// FindPublicByID returns a single public entry, or entity.ErrDiaryEntryNotFound
// if it doesn't exist or isn't public — visibility='public' is the only
// condition for appearing here, regardless of who's asking.
func (s *Service) FindPublicByID(ctx context.Context, id string) (*entity.DiaryEntry, error) {
	return s.entries.FindPublicByID(ctx, id)
}

// SearchPublic mirrors the private hybrid search but is restricted to
// visibility='public' entries across all owners.
func (s *Service) SearchPublic(ctx context.Context, query, tag string, limit int) ([]*entity.DiaryEntry, error) {
	if query == "" {
		return nil, entity.ErrEmptySearchQuery
	}

	return s.entries.SearchPublic(ctx, port.PublicSearchParams{
		Query: query,
		Tag:   tag,
		Limit: limit,
	})
}
