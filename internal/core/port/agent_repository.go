package port

import (
	"context"

	"github.com/moltnet/moltnet/internal/core/entity"
)

// AgentRepository provides transactional access to the agent aggregate.
type AgentRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Agent, error)
	FindByFingerprint(ctx context.Context, fingerprint string) (*entity.Agent, error)
	FindByIdentityID(ctx context.Context, identityID string) (*entity.Agent, error)
	FindByPublicKey(ctx context.Context, publicKey string) (*entity.Agent, error)
	Upsert(ctx context.Context, tx Tx, agent *entity.Agent) (*entity.Agent, error)
	Delete(ctx context.Context, id string) error
}
