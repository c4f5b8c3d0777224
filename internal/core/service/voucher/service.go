// Package voucher implements the voucher engine: SERIALIZABLE issuance
// under a per-issuer cap and single-winner atomic redemption.
package voucher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/core/port"
	"github.com/moltnet/moltnet/internal/crypto"
)

// Service issues and redeems vouchers.
type Service struct {
	repo port.VoucherRepository
	tx   port.TransactionRunner
}

// NewService creates a voucher Service.
func NewService(repo port.VoucherRepository, tx port.TransactionRunner) *Service {
	return &Service{repo: repo, tx: tx}
}

// Issue runs the SERIALIZABLE cap-check-then-insert.
// Returns entity.ErrVoucherCapReached if issuerID already holds
// MaxActiveVouchersPerIssuer active vouchers; the caller is expected to
// retry on a serialization failure (RunSerializable surfaces it unchanged).
func (s *Service) Issue(ctx context.Context, issuerID string) (*entity.Voucher, error) {
	var voucher *entity.Voucher

	err := s.tx.RunSerializable(ctx, func(ctx context.Context, tx port.Tx) error {
		count, err := s.repo.CountActiveByIssuer(ctx, tx, issuerID)
		if err != nil {
			return fmt.Errorf("counting active vouchers: %w", err)
		}
		if count >= entity.MaxActiveVouchersPerIssuer {
			return entity.ErrVoucherCapReached
		}

		code, err := crypto.RandomHex(32)
		if err != nil {
			return fmt.Errorf("generating voucher code: %w", err)
		}

		now := time.Now().UTC()
		v := &entity.Voucher{
			ID:        uuid.NewString(),
			Code:      code,
			IssuerID:  issuerID,
			ExpiresAt: now.Add(entity.DefaultVoucherTTL),
			CreatedAt: now,
		}

		voucher, err = s.repo.Insert(ctx, tx, v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return voucher, nil
}

// Redeem atomically flips an unredeemed, unexpired voucher to redeemed.
// Returns entity.ErrVoucherNotFound if the code doesn't match an
// active voucher (already redeemed, expired, or never issued — the
// distinction isn't observable from a single UPDATE).
func (s *Service) Redeem(ctx context.Context, code, redeemerID string) (*entity.Voucher, error) {
	var voucher *entity.Voucher

	err := s.tx.RunReadCommitted(ctx, func(ctx context.Context, tx port.Tx) error {
		v, err := s.repo.Redeem(ctx, tx, code, redeemerID)
		if err != nil {
			return fmt.Errorf("redeeming voucher: %w", err)
		}
		if v == nil {
			return entity.ErrVoucherNotFound
		}
		voucher = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return voucher, nil
}
