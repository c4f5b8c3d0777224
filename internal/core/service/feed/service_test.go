package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
)

type fakeEntryRepo struct {
	port.DiaryEntryRepository
	listParams  port.PublicFeedParams
	searchQuery string
	entries     []*entity.DiaryEntry
	nextCursor  *port.PublicFeedCursor
}

func (r *fakeEntryRepo) ListPublic(_ context.Context, p port.PublicFeedParams) ([]*entity.DiaryEntry, *port.PublicFeedCursor, error) {
	r.listParams = p
	return r.entries, r.nextCursor, nil
}

func (r *fakeEntryRepo) FindPublicByID(_ context.Context, id string) (*entity.DiaryEntry, error) {
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, entity.ErrDiaryEntryNotFound
}

func (r *fakeEntryRepo) SearchPublic(_ context.Context, p port.PublicSearchParams) ([]*entity.DiaryEntry, error) {
	r.searchQuery = p.Query
	return r.entries, nil
}

func TestEncodeDecodeCursor_RoundTrips(t *testing.T) {
	original := &port.PublicFeedCursor{CreatedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), ID: "entry-1"}

	token := EncodeCursor(original)
	assert.NotEmpty(t, token)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, original.ID, decoded.ID)
	assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
}

func TestDecodeCursor_EmptyStringIsFirstPage(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeCursor_InvalidTokenIsRejected(t *testing.T) {
	_, err := DecodeCursor("not-valid-base64!!!")
	assert.ErrorIs(t, err, entity.ErrInvalidCursor)
}

func TestService_ListPublic_PassesThroughTagAndReturnsEncodedCursor(t *testing.T) {
	repo := &fakeEntryRepo{
		entries:    []*entity.DiaryEntry{{ID: "entry-1"}},
		nextCursor: &port.PublicFeedCursor{CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), ID: "entry-1"},
	}
	svc := NewService(repo)

	entries, next, err := svc.ListPublic(context.Background(), 10, "", "robotics")

	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.NotEmpty(t, next)
	assert.Equal(t, "robotics", repo.listParams.Tag)
	assert.Equal(t, 10, repo.listParams.Limit)
}

func TestService_ListPublic_InvalidCursorTokenIsRejected(t *testing.T) {
	svc := NewService(&fakeEntryRepo{})

	_, _, err := svc.ListPublic(context.Background(), 10, "%%%not-base64%%%", "")
	assert.ErrorIs(t, err, entity.ErrInvalidCursor)
}

func TestService_SearchPublic_EmptyQueryIsRejected(t *testing.T) {
	svc := NewService(&fakeEntryRepo{})

	_, err := svc.SearchPublic(context.Background(), "", "", 10)
	assert.ErrorIs(t, err, entity.ErrEmptySearchQuery)
}

func TestService_SearchPublic_PassesQueryThrough(t *testing.T) {
	repo := &fakeEntryRepo{entries: []*entity.DiaryEntry{{ID: "entry-1"}}}
	svc := NewService(repo)

	entries, err := svc.SearchPublic(context.Background(), "find me", "", 10)

	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "find me", repo.searchQuery)
}
