package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltnet/moltnet/internal/core/port"
)

// TxRunner implements port.TransactionRunner against a pgxpool.Pool.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner creates a TxRunner.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

func (r *TxRunner) run(ctx context.Context, isoLevel pgx.TxIsoLevel, fn func(ctx context.Context, tx port.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: isoLevel})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(ctx, &pgxTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// RunSerializable runs fn under SERIALIZABLE isolation, required for voucher
// issuance's per-issuer cap-enforcement invariant.
func (r *TxRunner) RunSerializable(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) error {
	return r.run(ctx, pgx.Serializable, fn)
}

// RunReadCommitted runs fn at the default READ COMMITTED isolation.
func (r *TxRunner) RunReadCommitted(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) error {
	return r.run(ctx, pgx.ReadCommitted, fn)
}

var _ port.TransactionRunner = (*TxRunner)(nil)
