// Package voucherrepo implements port.VoucherRepository against PostgreSQL,
// backing the SERIALIZABLE issuance cap and atomic single-winner redemption.
package voucherrepo

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

// New creates a voucher repository.
func New(pool *pgxpool.Pool) port.VoucherRepository {
	return &Repository{pool: pool}
}

// Repository implements port.VoucherRepository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func scanVoucher(row pgx.Row) (*entity.Voucher, error) {
	var v entity.Voucher
	err := row.Scan(&v.ID, &v.Code, &v.IssuerID, &v.RedeemedBy, &v.ExpiresAt, &v.RedeemedAt, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning voucher: %w", err)
	}
	return &v, nil
}

func (r *Repository) CountActiveByIssuer(ctx context.Context, tx port.Tx, issuerID string) (int, error) {
	var count int
	err := postgres.Conn(r.pool, tx).QueryRow(ctx, queryCountActiveByIssuer, issuerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting active vouchers: %w", err)
	}
	return count, nil
}

func (r *Repository) Insert(ctx context.Context, tx port.Tx, v *entity.Voucher) (*entity.Voucher, error) {
	row := postgres.Conn(r.pool, tx).QueryRow(ctx, queryInsert, v.ID, v.Code, v.IssuerID, v.ExpiresAt, v.CreatedAt)
	inserted, err := scanVoucher(row)
	if err != nil {
		return nil, err
	}
	if inserted == nil {
		return nil, fmt.Errorf("inserting voucher: no row returned")
	}
	return inserted, nil
}

func (r *Repository) Redeem(ctx context.Context, tx port.Tx, code, redeemerID string) (*entity.Voucher, error) {
	row := postgres.Conn(r.pool, tx).QueryRow(ctx, queryRedeem, redeemerID, code)
	return scanVoucher(row)
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*entity.Voucher, error) {
	v, err := scanVoucher(r.pool.QueryRow(ctx, queryFindByCode, code))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, entity.ErrVoucherNotFound
	}
	return v, nil
}

var _ port.VoucherRepository = (*Repository)(nil)
