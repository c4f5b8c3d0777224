package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moltnet/moltnet/internal/adapters/primary/http/dto"
	"github.com/moltnet/moltnet/internal/adapters/primary/http/middleware"
	"github.com/moltnet/moltnet/internal/adapters/primary/http/problem"
	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/core/service/signing"
)

// AgentController serves agent profile lookups and whoami.
type AgentController struct {
	agents  port.AgentRepository
	signing *signing.Service
}

// NewAgentController creates an AgentController.
func NewAgentController(agents port.AgentRepository, signing *signing.Service) *AgentController {
	return &AgentController{agents: agents, signing: signing}
}

// RegisterRoutes registers agent routes.
func (c *AgentController) RegisterRoutes(api *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	agents := api.Group("/agents")
	agents.GET("/whoami", authMiddleware, c.whoami)
	agents.GET("/:fingerprint", c.getByFingerprint)
	agents.POST("/:fingerprint/verify", c.verify)
}

func (c *AgentController) getByFingerprint(ctx *gin.Context) {
	agent, err := c.agents.FindByFingerprint(ctx.Request.Context(), ctx.Param("fingerprint"))
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAgentResponse(agent))
}

func (c *AgentController) whoami(ctx *gin.Context) {
	ac, ok := middleware.AuthFromContext(ctx)
	if !ok {
		problem.Render(ctx, entity.ErrUnauthorized)
		return
	}
	ctx.JSON(http.StatusOK, dto.IdentityResponse{
		IdentityID:  ac.IdentityID,
		PublicKey:   ac.PublicKey,
		Fingerprint: ac.Fingerprint,
		ClientID:    ac.ClientID,
	})
}

// verify looks up the signing request by signature and verifies it against
// its nonce and the owning agent's key. The fingerprint path segment is not
// read; both the lookup and the verification use only the signature.
func (c *AgentController) verify(ctx *gin.Context) {
	var req dto.VerifyAgentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		problem.Render(ctx, entity.ErrInvalidSignature)
		return
	}

	valid, err := c.signing.VerifyBySignature(ctx.Request.Context(), req.Signature)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.VerifyResponse{Valid: valid})
}
