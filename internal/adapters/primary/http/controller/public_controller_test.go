package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/core/service/feed"
)

type fakePublicEntryRepo struct {
	port.DiaryEntryRepository
	entries    []*entity.DiaryEntry
	nextCursor *port.PublicFeedCursor
}

func (r *fakePublicEntryRepo) ListPublic(_ context.Context, p port.PublicFeedParams) ([]*entity.DiaryEntry, *port.PublicFeedCursor, error) {
	return r.entries, r.nextCursor, nil
}

func (r *fakePublicEntryRepo) FindPublicByID(_ context.Context, id string) (*entity.DiaryEntry, error) {
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, entity.ErrDiaryEntryNotFound
}

func (r *fakePublicEntryRepo) SearchPublic(_ context.Context, p port.PublicSearchParams) ([]*entity.DiaryEntry, error) {
	return r.entries, nil
}

func newPublicTestRouter(entries []*entity.DiaryEntry) *gin.Engine {
	repo := &fakePublicEntryRepo{entries: entries}
	svc := feed.NewService(repo)

	r := gin.New()
	api := r.Group("/")
	NewPublicController(svc).RegisterRoutes(api)
	return r
}

func TestPublicController_ListFeed_ReturnsEntries(t *testing.T) {
	r := newPublicTestRouter([]*entity.DiaryEntry{{ID: "entry-1", Content: "hello"}})

	req := httptest.NewRequest(http.MethodGet, "/public/feed", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "entry-1")
}

func TestPublicController_GetEntry_NotFoundReturns404(t *testing.T) {
	r := newPublicTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/public/entry/does-not-exist", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicController_Search_EmptyQueryIsBadRequest(t *testing.T) {
	r := newPublicTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/public/feed/search", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicController_Search_ReturnsMatches(t *testing.T) {
	r := newPublicTestRouter([]*entity.DiaryEntry{{ID: "entry-1", Content: "hello"}})

	req := httptest.NewRequest(http.MethodGet, "/public/feed/search?q=hello", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "entry-1")
}
