package port

import "context"

// IdentityTraits is the subset of identity-store traits MoltNet manages.
type IdentityTraits struct {
	PublicKey   string
	VoucherCode string
}

// IdentityAdmin is the narrow admin-API surface MoltNet consumes from the
// external identity store, so the core never depends on the store's full
// client or wire format.
type IdentityAdmin interface {
	// CreateIdentity creates an identity with a random placeholder password
	// and the given traits, returning its identity id.
	CreateIdentity(ctx context.Context, traits IdentityTraits) (identityID string, err error)
	// DeleteIdentity is the best-effort registration-rollback compensation
	// run when a later registration step fails after the identity was created.
	DeleteIdentity(ctx context.Context, identityID string) error
	// MintRecoveryCode issues a one-time recovery code/flow for an existing
	// identity.
	MintRecoveryCode(ctx context.Context, identityID string) (recoveryCode, recoveryFlowURL string, err error)
}

// OAuthClientAdmin mints and describes OAuth2 clients against the external
// authorization server.
type OAuthClientAdmin interface {
	// MintClientCredentialsClient creates a client_credentials-scoped OAuth2
	// client carrying metadata.
	MintClientCredentialsClient(ctx context.Context, metadata map[string]string) (clientID, clientSecret string, err error)
	// GetClientMetadata fetches a client's metadata, used by the token
	// validator when enriched claims are absent from the token itself.
	GetClientMetadata(ctx context.Context, clientID string) (map[string]string, error)
}
