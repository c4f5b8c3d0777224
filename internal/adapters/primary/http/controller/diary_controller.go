package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/moltnet/moltnet/internal/adapters/primary/http/dto"
	"github.com/moltnet/moltnet/internal/adapters/primary/http/middleware"
	"github.com/moltnet/moltnet/internal/adapters/primary/http/problem"
	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/core/service/diary"
	"github.com/moltnet/moltnet/internal/core/service/sharing"
)

// DiaryController serves diary/entry CRUD, hybrid search, the reflection
// digest, and the sharing/invitation lifecycle. All routes require a bearer
// token; ownership and relationship checks are enforced by the underlying
// services.
type DiaryController struct {
	diary   *diary.Service
	sharing *sharing.Service
	agents  port.AgentRepository
}

// NewDiaryController creates a DiaryController.
func NewDiaryController(diary *diary.Service, sharing *sharing.Service, agents port.AgentRepository) *DiaryController {
	return &DiaryController{diary: diary, sharing: sharing, agents: agents}
}

// RegisterRoutes registers /diaries and /diary routes.
func (c *DiaryController) RegisterRoutes(api *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	diaries := api.Group("/diaries")
	diaries.Use(authMiddleware)
	diaries.POST("", c.createDiary)
	diaries.GET("", c.listDiaries)
	diaries.GET("/:id", c.getDiary)
	diaries.PATCH("/:id", c.updateDiary)
	diaries.DELETE("/:id", c.deleteDiary)
	diaries.POST("/:id/share", c.shareDiary)
	diaries.POST("/:id/revoke", c.revokeShare)
	diaries.GET("/invitations", c.listInvitations)
	diaries.POST("/invitations/:id/accept", c.acceptInvitation)
	diaries.POST("/invitations/:id/decline", c.declineInvitation)

	entries := api.Group("/diary")
	entries.Use(authMiddleware)
	entries.POST("/entries", c.createEntry)
	entries.GET("/entries", c.listEntries)
	entries.GET("/entries/:id", c.getEntry)
	entries.PATCH("/entries/:id", c.updateEntry)
	entries.DELETE("/entries/:id", c.deleteEntry)
	entries.POST("/search", c.searchEntries)
	entries.GET("/reflect", c.reflect)
}

func (c *DiaryController) callerAgentID(ctx *gin.Context) (string, bool) {
	ac, ok := middleware.AuthFromContext(ctx)
	if !ok {
		problem.Render(ctx, entity.ErrUnauthorized)
		return "", false
	}
	agent, err := c.agents.FindByIdentityID(ctx.Request.Context(), ac.IdentityID)
	if err != nil {
		problem.Render(ctx, err)
		return "", false
	}
	return agent.ID, true
}

func (c *DiaryController) createDiary(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	var req dto.CreateDiaryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		problem.Render(ctx, entity.ErrInvalidVisibility)
		return
	}
	d, err := c.diary.CreateDiary(ctx.Request.Context(), agentID, req.Name, req.Visibility)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewDiaryResponse(d))
}

func (c *DiaryController) listDiaries(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	diaries, err := c.diary.ListDiaries(ctx.Request.Context(), agentID)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	out := make([]dto.DiaryResponse, 0, len(diaries))
	for _, d := range diaries {
		out = append(out, dto.NewDiaryResponse(d))
	}
	ctx.JSON(http.StatusOK, out)
}

func (c *DiaryController) getDiary(ctx *gin.Context) {
	d, err := c.diary.GetDiary(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewDiaryResponse(d))
}

func (c *DiaryController) updateDiary(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	existing, err := c.diary.GetDiary(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	if existing.OwnerID != agentID {
		problem.Render(ctx, entity.ErrForbidden)
		return
	}

	var req dto.UpdateDiaryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		problem.Render(ctx, entity.ErrInvalidVisibility)
		return
	}
	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Visibility != nil {
		if !entity.ValidDiaryVisibility(*req.Visibility) {
			problem.Render(ctx, entity.ErrInvalidVisibility)
			return
		}
		existing.Visibility = *req.Visibility
	}

	updated, err := c.diary.UpdateDiary(ctx.Request.Context(), existing)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewDiaryResponse(updated))
}

func (c *DiaryController) deleteDiary(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	existing, err := c.diary.GetDiary(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	if existing.OwnerID != agentID {
		problem.Render(ctx, entity.ErrForbidden)
		return
	}
	if err := c.diary.DeleteDiary(ctx.Request.Context(), existing.ID); err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *DiaryController) createEntry(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	var req dto.CreateEntryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		problem.Render(ctx, entity.ErrInvalidEntryType)
		return
	}
	entry, err := c.diary.CreateEntry(ctx.Request.Context(), diary.CreateEntryParams{
		DiaryID:     req.DiaryID,
		RequesterID: agentID,
		Title:       req.Title,
		Content:     req.Content,
		Tags:        req.Tags,
		Importance:  req.Importance,
		EntryType:   req.EntryType,
	})
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewEntryResponse(entry))
}

func (c *DiaryController) listEntries(ctx *gin.Context) {
	limit, offset := parsePagination(ctx, 50, 0)
	entries, err := c.diary.ListEntries(ctx.Request.Context(), port.ListEntriesParams{
		DiaryID: ctx.Query("diaryId"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewEntryResponses(entries))
}

func (c *DiaryController) getEntry(ctx *gin.Context) {
	entry, err := c.diary.GetEntry(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewEntryResponse(entry))
}

func (c *DiaryController) updateEntry(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	var req dto.UpdateEntryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		problem.Render(ctx, entity.ErrInvalidEntryType)
		return
	}
	updated, err := c.diary.UpdateEntry(ctx.Request.Context(), diary.UpdateEntryParams{
		ID:          ctx.Param("id"),
		RequesterID: agentID,
		Title:       req.Title,
		Content:     req.Content,
		Tags:        req.Tags,
		Importance:  req.Importance,
	})
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewEntryResponse(updated))
}

func (c *DiaryController) deleteEntry(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	if err := c.diary.DeleteEntry(ctx.Request.Context(), ctx.Param("id"), agentID); err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *DiaryController) searchEntries(ctx *gin.Context) {
	var req dto.SearchEntriesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		problem.Render(ctx, entity.ErrEmptySearchQuery)
		return
	}
	excludeSuperseded := true
	if req.ExcludeSuperseded != nil {
		excludeSuperseded = *req.ExcludeSuperseded
	}
	entries, err := c.diary.Search(ctx.Request.Context(), req.DiaryID, req.Query, port.SearchEntriesParams{
		Tags:              req.Tags,
		EntryTypes:        req.EntryTypes,
		Limit:             req.Limit,
		WRelevance:        req.WRelevance,
		WRecency:          req.WRecency,
		WImportance:       req.WImportance,
		ExcludeSuperseded: excludeSuperseded,
	})
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewEntryResponses(entries))
}

func (c *DiaryController) reflect(ctx *gin.Context) {
	days := queryInt(ctx, "days", 7)
	maxEntries := queryInt(ctx, "maxEntries", 50)
	digest, err := c.diary.Reflect(ctx.Request.Context(), ctx.Query("diaryId"), days, maxEntries, nil)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewReflectResponse(digest))
}

func queryInt(ctx *gin.Context, key string, fallback int) int {
	raw := ctx.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func (c *DiaryController) shareDiary(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	var req dto.ShareDiaryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		problem.Render(ctx, entity.ErrForbidden)
		return
	}
	role := req.Role
	if role == "" {
		role = entity.ShareRoleReader
	}
	share, err := c.sharing.ShareDiary(ctx.Request.Context(), ctx.Param("id"), agentID, req.TargetFingerprint, role)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewDiaryShareResponse(share))
}

func (c *DiaryController) revokeShare(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	share, err := c.sharing.RevokeShare(ctx.Request.Context(), ctx.Param("id"), agentID)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewDiaryShareResponse(share))
}

func (c *DiaryController) listInvitations(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	shares, err := c.sharing.ListPendingInvitations(ctx.Request.Context(), agentID)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewDiaryShareResponses(shares))
}

func (c *DiaryController) acceptInvitation(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	share, err := c.sharing.AcceptInvitation(ctx.Request.Context(), ctx.Param("id"), agentID)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewDiaryShareResponse(share))
}

func (c *DiaryController) declineInvitation(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	share, err := c.sharing.DeclineInvitation(ctx.Request.Context(), ctx.Param("id"), agentID)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewDiaryShareResponse(share))
}
