package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthController serves liveness probes.
type HealthController struct{}

// NewHealthController creates a HealthController.
func NewHealthController() *HealthController {
	return &HealthController{}
}

// RegisterRoutes registers /health and /healthz.
func (c *HealthController) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", c.health)
	r.GET("/healthz", c.health)
}

func (c *HealthController) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}
