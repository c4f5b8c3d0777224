// Package noncerepo implements port.NonceRepository, the single-use
// recovery-nonce ledger backing replay prevention.
package noncerepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltnet/moltnet/internal/core/port"
)

const (
	queryConsume = `
		INSERT INTO used_recovery_nonces (nonce, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (nonce) DO NOTHING`

	queryPruneExpired = `DELETE FROM used_recovery_nonces WHERE expires_at <= $1`
)

// New creates a nonce repository.
func New(pool *pgxpool.Pool) port.NonceRepository {
	return &Repository{pool: pool}
}

// Repository implements port.NonceRepository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func (r *Repository) Consume(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	tag, err := r.pool.Exec(ctx, queryConsume, nonce, time.Now().UTC().Add(ttl))
	if err != nil {
		return false, fmt.Errorf("consuming recovery nonce: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, queryPruneExpired, now)
	if err != nil {
		return 0, fmt.Errorf("pruning recovery nonces: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

var _ port.NonceRepository = (*Repository)(nil)
