// Package jwtverify validates locally-verifiable JWT bearer tokens against a
// JWKS endpoint, refreshed on its own cached schedule.
package jwtverify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/infra/config"
)

// moltnetClaims captures the enriched `moltnet:*` custom claims alongside
// the registered set.
type moltnetClaims struct {
	jwt.RegisteredClaims
	IdentityID  string   `json:"moltnet:identity_id,omitempty"`
	PublicKey   string   `json:"moltnet:public_key,omitempty"`
	Fingerprint string   `json:"moltnet:fingerprint,omitempty"`
	ClientID    string   `json:"client_id,omitempty"`
	Scope       string   `json:"scope,omitempty"`
	ScopeList   []string `json:"scp,omitempty"`
}

func (c moltnetClaims) scopes() []string {
	if len(c.ScopeList) > 0 {
		return c.ScopeList
	}
	if c.Scope != "" {
		return strings.Fields(c.Scope)
	}
	return nil
}

// Verifier validates JWTs against a JWKS endpoint, falling back to OAuth2
// client metadata when enriched claims are absent.
type Verifier struct {
	jwks    keyfunc.Keyfunc
	cfg     *config.AuthConfig
	clients port.OAuthClientAdmin
}

// New builds a Verifier, fetching the JWKS once up front. keyfunc then
// refreshes it on its own cached schedule, so key rotation is picked up on
// cache expiry rather than by forced invalidation.
func New(ctx context.Context, cfg *config.AuthConfig, clients port.OAuthClientAdmin) (*Verifier, error) {
	if cfg.JWKSURL == "" {
		return nil, fmt.Errorf("jwtverify: jwks_url not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.JWKSURL})
	if err != nil {
		return nil, fmt.Errorf("initializing JWKS: %w", err)
	}

	return &Verifier{jwks: jwks, cfg: cfg, clients: clients}, nil
}

// Validate parses and verifies a JWT bearer string. Verification, issuer and
// client-metadata failures return entity.ErrUnauthorized (wrapped or bare); a
// token without a client_id claim returns entity.ErrMissingClientID. The
// dispatcher falls through to introspection on any of these.
func (v *Verifier) Validate(ctx context.Context, bearer string) (*entity.AuthContext, error) {
	var claims moltnetClaims
	token, err := jwt.ParseWithClaims(bearer, &claims, v.jwks.Keyfunc,
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", entity.ErrUnauthorized, err)
	}

	if v.cfg.Issuer != "" {
		issuer, err := claims.GetIssuer()
		if err != nil || issuer != v.cfg.Issuer {
			return nil, entity.ErrUnauthorized
		}
	}

	if claims.ClientID == "" {
		return nil, entity.ErrMissingClientID
	}

	ac := &entity.AuthContext{
		IdentityID:  claims.IdentityID,
		PublicKey:   claims.PublicKey,
		Fingerprint: claims.Fingerprint,
		ClientID:    claims.ClientID,
		Scopes:      claims.scopes(),
	}

	if ac.IdentityID == "" || ac.PublicKey == "" || ac.Fingerprint == "" {
		if err := v.enrichFromClientMetadata(ctx, ac); err != nil {
			return nil, err
		}
	}

	return ac, nil
}

func (v *Verifier) enrichFromClientMetadata(ctx context.Context, ac *entity.AuthContext) error {
	meta, err := v.clients.GetClientMetadata(ctx, ac.ClientID)
	if err != nil {
		return fmt.Errorf("%w: fetching client metadata: %v", entity.ErrUnauthorized, err)
	}
	if ac.IdentityID == "" {
		ac.IdentityID = meta["identity_id"]
	}
	if ac.PublicKey == "" {
		ac.PublicKey = meta["public_key"]
	}
	if ac.Fingerprint == "" {
		ac.Fingerprint = meta["fingerprint"]
	}
	return nil
}

var _ port.TokenValidator = (*Verifier)(nil)
