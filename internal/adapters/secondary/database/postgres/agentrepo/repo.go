// Package agentrepo implements port.AgentRepository against PostgreSQL.
package agentrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltnet/moltnet/internal/adapters/secondary/database/postgres"
	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
)

// New creates an agent repository.
func New(pool *pgxpool.Pool) port.AgentRepository {
	return &Repository{pool: pool}
}

// Repository implements port.AgentRepository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func scanAgent(row pgx.Row) (*entity.Agent, error) {
	var a entity.Agent
	err := row.Scan(&a.ID, &a.IdentityID, &a.PublicKey, &a.Fingerprint, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning agent: %w", err)
	}
	return &a, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*entity.Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, queryFindByID, id))
}

func (r *Repository) FindByFingerprint(ctx context.Context, fingerprint string) (*entity.Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, queryFindByFingerprint, fingerprint))
}

func (r *Repository) FindByIdentityID(ctx context.Context, identityID string) (*entity.Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, queryFindByIdentityID, identityID))
}

func (r *Repository) FindByPublicKey(ctx context.Context, publicKey string) (*entity.Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, queryFindByPublicKey, publicKey))
}

func (r *Repository) Upsert(ctx context.Context, tx port.Tx, agent *entity.Agent) (*entity.Agent, error) {
	row := postgres.Conn(r.pool, tx).QueryRow(ctx, queryUpsert,
		agent.ID, agent.IdentityID, agent.PublicKey, agent.Fingerprint, agent.CreatedAt, agent.UpdatedAt)
	return scanAgent(row)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, queryDelete, id)
	if err != nil {
		return fmt.Errorf("deleting agent: %w", err)
	}
	return nil
}

var _ port.AgentRepository = (*Repository)(nil)
