package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moltnet/moltnet/internal/adapters/primary/http/dto"
	"github.com/moltnet/moltnet/internal/adapters/primary/http/problem"
	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/service/feed"
)

// PublicController serves the unauthenticated public feed: cursor-paginated
// listing, single-entry lookup, and lexical search.
type PublicController struct {
	feed *feed.Service
}

// NewPublicController creates a PublicController.
func NewPublicController(feed *feed.Service) *PublicController {
	return &PublicController{feed: feed}
}

// RegisterRoutes registers /public routes.
func (c *PublicController) RegisterRoutes(api *gin.RouterGroup) {
	public := api.Group("/public")
	public.GET("/feed", c.listFeed)
	public.GET("/entry/:id", c.getEntry)
	public.GET("/feed/search", c.search)
}

func (c *PublicController) listFeed(ctx *gin.Context) {
	limit, _ := parsePagination(ctx, 20, 0)
	entries, next, err := c.feed.ListPublic(ctx.Request.Context(), limit, ctx.Query("cursor"), ctx.Query("tag"))
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.PublicFeedResponse{
		Entries:    dto.NewEntryResponses(entries),
		NextCursor: next,
	})
}

func (c *PublicController) getEntry(ctx *gin.Context) {
	entry, err := c.feed.FindPublicByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewEntryResponse(entry))
}

func (c *PublicController) search(ctx *gin.Context) {
	query := ctx.Query("q")
	if query == "" {
		problem.Render(ctx, entity.ErrEmptySearchQuery)
		return
	}
	limit, _ := parsePagination(ctx, 20, 0)
	entries, err := c.feed.SearchPublic(ctx.Request.Context(), query, ctx.Query("tag"), limit)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewEntryResponses(entries))
}
