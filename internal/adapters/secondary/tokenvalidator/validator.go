// Package tokenvalidator dispatches a bearer token to the local JWKS
// verifier or to opaque-token introspection depending on its shape.
package tokenvalidator

import (
	"context"
	"strings"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
)

// Dispatcher routes bearer tokens to a local JWT verifier or an opaque-token
// introspector based on the token's shape.
type Dispatcher struct {
	jwt    port.TokenValidator
	opaque port.TokenValidator
}

// New creates a Dispatcher. jwt may be nil if no JWKS URL is configured, in
// which case every token is routed to introspection.
func New(jwt, opaque port.TokenValidator) *Dispatcher {
	return &Dispatcher{jwt: jwt, opaque: opaque}
}

// Validate dispatches on prefix: ory_at_/ory_ht_ and anything that isn't a
// three-segment JWT go straight to introspection; a failed local JWT
// verification falls through to introspection rather than failing closed,
// so server-side revocation still works even when the signature still
// checks out.
func (d *Dispatcher) Validate(ctx context.Context, bearer string) (*entity.AuthContext, error) {
	if looksOpaque(bearer) || d.jwt == nil {
		return d.opaque.Validate(ctx, bearer)
	}

	ac, err := d.jwt.Validate(ctx, bearer)
	if err == nil {
		return ac, nil
	}
	return d.opaque.Validate(ctx, bearer)
}

func looksOpaque(bearer string) bool {
	if strings.HasPrefix(bearer, "ory_at_") || strings.HasPrefix(bearer, "ory_ht_") {
		return true
	}
	return strings.Count(bearer, ".") != 2
}

var _ port.TokenValidator = (*Dispatcher)(nil)
