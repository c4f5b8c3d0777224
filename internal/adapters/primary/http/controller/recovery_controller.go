package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moltnet/moltnet/internal/adapters/primary/http/dto"
	"github.com/moltnet/moltnet/internal/adapters/primary/http/problem"
	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/service/recovery"
)

// RecoveryController serves the HMAC-bound recovery challenge/verify flow.
type RecoveryController struct {
	recovery *recovery.Service
}

// NewRecoveryController creates a RecoveryController.
func NewRecoveryController(recovery *recovery.Service) *RecoveryController {
	return &RecoveryController{recovery: recovery}
}

// RegisterRoutes registers /recovery routes.
func (c *RecoveryController) RegisterRoutes(api *gin.RouterGroup) {
	r := api.Group("/recovery")
	r.POST("/challenge", c.challenge)
	r.POST("/verify", c.verify)
}

func (c *RecoveryController) challenge(ctx *gin.Context) {
	var req dto.RecoveryChallengeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		problem.Render(ctx, entity.ErrInvalidPublicKey)
		return
	}
	ch, err := c.recovery.IssueChallenge(ctx.Request.Context(), req.PublicKey)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.RecoveryChallengeResponse{Challenge: ch.Challenge, HMAC: ch.HMAC})
}

func (c *RecoveryController) verify(ctx *gin.Context) {
	var req dto.RecoveryVerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		problem.Render(ctx, entity.ErrInvalidChallenge)
		return
	}
	result, err := c.recovery.Verify(ctx.Request.Context(), req.Challenge, req.HMAC, req.Signature, req.PublicKey)
	if err != nil {
		problem.Render(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.RecoveryVerifyResponse{
		RecoveryCode:    result.RecoveryCode,
		RecoveryFlowURL: result.RecoveryFlowURL,
	})
}
