// Package postgres provides the pgx/v5 connection pool and the
// TransactionRunner used by orchestrators that need SERIALIZABLE or
// READ COMMITTED multi-repository mutations.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/infra/config"
)

// NewPool creates a pgx connection pool from the given database config.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database DSN: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxPoolSize)
	poolCfg.MinConns = int32(cfg.MinPoolSize)
	poolCfg.MaxConnIdleTime = cfg.MaxIdleTimeDuration()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// Close closes the pool, logging any issue rather than propagating it since
// it only ever runs during shutdown.
func Close(pool *pgxpool.Pool) {
	if pool == nil {
		return
	}
	pool.Close()
	slog.Info("database pool closed")
}

// pgxTx adapts pgx.Tx to port.Tx.
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Unwrap() any { return t.tx }

// Unwrap extracts the concrete pgx.Tx from a port.Tx, or returns nil
// (meaning "use the pool directly") if tx is nil.
func Unwrap(tx port.Tx) pgx.Tx {
	if tx == nil {
		return nil
	}
	pt, ok := tx.(*pgxTx)
	if !ok {
		return nil
	}
	return pt.tx
}

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting repository
// methods accept either a pooled connection or an in-flight transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconnCommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgconnCommandTag aliases pgconn.CommandTag to avoid importing pgconn in
// every repo file just for the Exec return type.
type pgconnCommandTag = interface {
	RowsAffected() int64
}

// Conn returns tx if non-nil, otherwise pool, both satisfying Querier.
func Conn(pool *pgxpool.Pool, tx port.Tx) Querier {
	if t := Unwrap(tx); t != nil {
		return txQuerier{t}
	}
	return poolQuerier{pool}
}

type txQuerier struct{ tx pgx.Tx }

func (q txQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconnCommandTag, error) {
	return q.tx.Exec(ctx, sql, args...)
}
func (q txQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return q.tx.Query(ctx, sql, args...)
}
func (q txQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return q.tx.QueryRow(ctx, sql, args...)
}

type poolQuerier struct{ pool *pgxpool.Pool }

func (q poolQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconnCommandTag, error) {
	return q.pool.Exec(ctx, sql, args...)
}
func (q poolQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return q.pool.Query(ctx, sql, args...)
}
func (q poolQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return q.pool.QueryRow(ctx, sql, args...)
}
