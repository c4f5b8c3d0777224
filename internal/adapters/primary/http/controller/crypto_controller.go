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
	"github.com/moltnet/moltnet/internal/core/service/signing"
	"github.com/moltnet/moltnet/internal/crypto"
)

// CryptoController serves standalone Ed25519 verification, the caller's own
// identity, and the signing-request lifecycle.
type CryptoController struct {
	agents  port.AgentRepository
	signing *signing.Service
}

// NewCryptoController creates a CryptoController.
func NewCryptoController(agents port.AgentRepository, signing *signing.Service) *CryptoController {
	return &CryptoController{agents: agents, signing: signing}
}

// RegisterRoutes registers /crypto routes. authMiddleware guards every route
// but the standalone verify endpoint.
func (c *CryptoController) RegisterRoutes(api *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	cr := api.Group("/crypto")
	cr.POST("/verify", c.verify)
	cr.GET("/identity", authMiddleware, c.identity)

	sr := cr.Group("/signing-requests")
	sr.Use(authMiddleware)
	sr.POST("", c.create)
	sr.GET("", c.list)
	sr.GET("/:id", c.get)
	sr.POST("/:id/sign", c.sign)
}

func (c *CryptoController) verify(ctx *gin.Context) {
	var req dto.VerifyEd25519Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		problem.Render(ctx, entity.ErrInvalidSignature)
		return
	}
	valid := crypto.Verify([]byte(req.Message), req.Signature, req.PublicKey)
	ctx.JSON(http.StatusOK, dto.VerifyResponse{Valid: valid})
}

func (c *CryptoController) identity(ctx *gin.Context) {
	ac, ok := middleware.AuthFromContext(ctx)
	if !ok {
		problem.Render(ctx, entity.ErrUnauthorized)
		return
	}
	ctx.JSON(http.StatusOK, dto.IdentityResponse{
		IdentityID:  ac.IdentityID,
		PublicKey:   ac.PublicKey,
		Fingerprint: ac.Fingerprint,
	})
}

func (c *CryptoController) callerAgentID(ctx *gin.Context) (string, bool) {
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

func (c *CryptoController) create(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	var req dto.CreateSigningRequestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		problem.Render(ctx, entity.ErrInvalidSignature)
		return
	}
	created, err := c.signing.Create(ctx.Request.Context(), agentID, req.Message)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSigningRequestResponse(created))
}

func (c *CryptoController) list(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}

	var status *entity.SigningRequestStatus
	if raw := ctx.Query("status"); raw != "" {
		s := entity.SigningRequestStatus(raw)
		status = &s
	}

	limit, offset := parsePagination(ctx, 50, 0)
	reqs, err := c.signing.List(ctx.Request.Context(), agentID, status, limit, offset)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSigningRequestResponses(reqs))
}

func (c *CryptoController) get(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	req, err := c.signing.Get(ctx.Request.Context(), ctx.Param("id"), agentID)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSigningRequestResponse(req))
}

func (c *CryptoController) sign(ctx *gin.Context) {
	agentID, ok := c.callerAgentID(ctx)
	if !ok {
		return
	}
	var req dto.SubmitSignatureRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		problem.Render(ctx, entity.ErrInvalidSignature)
		return
	}
	updated, err := c.signing.Submit(ctx.Request.Context(), ctx.Param("id"), agentID, req.Signature)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSigningRequestResponse(updated))
}

// parsePagination reads limit/offset query params, falling back to
// defaultLimit/defaultOffset on missing or malformed values.
func parsePagination(ctx *gin.Context, defaultLimit, defaultOffset int) (limit, offset int) {
	limit = defaultLimit
	offset = defaultOffset
	if raw := ctx.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if raw := ctx.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
