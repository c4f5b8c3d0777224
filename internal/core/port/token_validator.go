package port

import (
	"context"

	"github.com/moltnet/moltnet/internal/core/entity"
)

// TokenValidator resolves a bearer token string into an AuthContext,
// dispatching between opaque-token introspection and local JWT/JWKS
// verification.
type TokenValidator interface {
	Validate(ctx context.Context, bearer string) (*entity.AuthContext, error)
}
