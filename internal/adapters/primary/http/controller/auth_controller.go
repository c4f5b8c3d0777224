package controller

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/moltnet/moltnet/internal/adapters/primary/http/dto"
	"github.com/moltnet/moltnet/internal/adapters/primary/http/middleware"
	"github.com/moltnet/moltnet/internal/adapters/primary/http/problem"
	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/service/registration"
	"github.com/moltnet/moltnet/internal/core/service/voucher"
	"github.com/moltnet/moltnet/internal/crypto"
	"github.com/moltnet/moltnet/internal/infra/config"
)

// AuthController handles registration, voucher issuance, and the OAuth2
// token reverse proxy.
type AuthController struct {
	registration *registration.Service
	vouchers     *voucher.Service
	oauth        config.OAuthConfig
	httpClient   *http.Client
}

// NewAuthController creates an AuthController.
func NewAuthController(registration *registration.Service, vouchers *voucher.Service, oauth config.OAuthConfig) *AuthController {
	return &AuthController{
		registration: registration,
		vouchers:     vouchers,
		oauth:        oauth,
		httpClient:   &http.Client{},
	}
}

// RegisterRoutes registers auth/voucher/token routes.
func (c *AuthController) RegisterRoutes(api *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	api.POST("/auth/register", c.register)
	api.POST("/oauth2/token", c.proxyToken)

	vouchers := api.Group("/vouchers")
	vouchers.Use(authMiddleware)
	vouchers.POST("", c.issueVoucher)
}

func (c *AuthController) register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		problem.Render(ctx, entity.ErrInvalidPublicKey)
		return
	}

	fingerprint, err := crypto.FingerprintFromString(req.PublicKey)
	if err != nil {
		problem.Render(ctx, entity.ErrInvalidPublicKey)
		return
	}

	result, err := c.registration.Register(ctx.Request.Context(), req.PublicKey, fingerprint, req.VoucherCode)
	if err != nil {
		problem.Render(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.RegisterResponse{
		IdentityID:   result.IdentityID,
		Fingerprint:  result.Fingerprint,
		PublicKey:    result.PublicKey,
		ClientID:     result.ClientID,
		ClientSecret: result.ClientSecret,
	})
}

func (c *AuthController) issueVoucher(ctx *gin.Context) {
	ac, ok := middleware.AuthFromContext(ctx)
	if !ok {
		problem.Render(ctx, entity.ErrUnauthorized)
		return
	}

	v, err := c.vouchers.Issue(ctx.Request.Context(), ac.IdentityID)
	if err != nil {
		problem.Render(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewIssueVoucherResponse(v))
}

// proxyToken reverse-proxies client_credentials token requests to the
// upstream authorization server's public endpoint. Only that grant type is
// forwarded; anything else is rejected before the request ever leaves this
// process.
func (c *AuthController) proxyToken(ctx *gin.Context) {
	raw, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		problem.Render(ctx, entity.ErrUnsupportedGrantType)
		return
	}

	form, err := url.ParseQuery(string(raw))
	if err != nil || form.Get("grant_type") != "client_credentials" {
		problem.Render(ctx, entity.ErrUnsupportedGrantType)
		return
	}

	upstreamReq, err := http.NewRequestWithContext(ctx.Request.Context(), http.MethodPost,
		c.oauth.PublicURL+"/oauth2/token", bytes.NewReader(raw))
	if err != nil {
		problem.Render(ctx, errors.New("building upstream token request"))
		return
	}
	upstreamReq.ContentLength = int64(len(raw))
	upstreamReq.Header = ctx.Request.Header.Clone()

	resp, err := c.httpClient.Do(upstreamReq)
	if err != nil {
		problem.Render(ctx, entity.ErrUpstream)
		return
	}
	defer resp.Body.Close()

	ctx.Status(resp.StatusCode)
	ctx.Header("Content-Type", resp.Header.Get("Content-Type"))
	_, _ = io.Copy(ctx.Writer, resp.Body)
}
